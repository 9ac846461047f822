package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finscore/internal/cli"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Lending portfolio risk score and high-risk items",
	RunE:  runRisk,
}

func init() {
	rootCmd.AddCommand(riskCmd)
}

func runRisk(cmd *cobra.Command, _ []string) error {
	user, err := userID()
	if err != nil {
		return err
	}
	eng, cleanup, err := openEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	r, err := eng.AssessRisk(cmd.Context(), user)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(r)
	}

	p := r.Portfolio
	if p.TotalCount == 0 {
		fmt.Printf("\n  No lending records for %s.\n", user)
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("LENDING RISK  as of %s", cli.FormatDate(eng.Now()))))
	fmt.Println()
	fmt.Print(cli.RenderScore("Risk", r.RiskScore, false))
	fmt.Println()

	top := "-"
	if p.TopPerson != "" {
		top = fmt.Sprintf("%s (%s)", p.TopPerson, cli.FormatShare(p.TopPersonShare))
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Portfolio",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Records", cli.FormatNumber(int64(p.TotalCount))},
			{"Open", cli.FormatNumber(int64(p.OpenCount))},
			{"Overdue", cli.FormatNumber(int64(p.OverdueCount))},
			{"Completed", cli.FormatNumber(int64(p.CompletedCount))},
			{"Last 30 Days", cli.FormatNumber(int64(p.RecentCount))},
			{"---"},
			{"Lent Out", cli.FormatMoney(p.LentOutstanding)},
			{"Borrowed", cli.FormatMoney(p.BorrowedOutstanding)},
			{"Top Counterparty", top},
		},
	}))
	fmt.Println()

	if len(r.HighRiskItems) > 0 {
		rows := make([][]string, 0, len(r.HighRiskItems))
		for _, it := range r.HighRiskItems {
			due := "-"
			if it.DueOn != nil {
				due = cli.FormatDate(*it.DueOn)
			}
			rows = append(rows, []string{
				it.Person,
				cli.FormatLabel(string(it.Kind)),
				cli.FormatMoney(it.Outstanding),
				due,
				it.Reason,
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "High Risk",
			Headers: []string{"Person", "Kind", "Outstanding", "Due", "Reason"},
			Rows:    rows,
		}))
		fmt.Println()
	}

	fmt.Println("  Recommendations")
	fmt.Print(cli.RenderRecommendations(r.Recommendations))
	fmt.Println()
	return nil
}
