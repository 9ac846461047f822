package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finscore/internal/cli"
	"github.com/theirongolddev/finscore/internal/model"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Full spending report for the period",
	RunE:  runReport,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Spending breakdown by category",
	RunE:  sectionRunner(func(r *model.AnalyticsReport) any { return r.CategoryBreakdown }, renderCategories),
}

var budgetsCmd = &cobra.Command{
	Use:   "budgets",
	Short: "Budget utilization for the period",
	RunE: sectionRunner(func(r *model.AnalyticsReport) any {
		return struct {
			Performance []model.BudgetPerformance `json:"budget_performance"`
			Summary     model.BudgetSummary       `json:"budget_summary"`
		}{r.BudgetPerformance, r.BudgetSummary}
	}, renderBudgets),
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Spending trend of the recent week against the rest of the period",
	RunE:  sectionRunner(func(r *model.AnalyticsReport) any { return r.Trend }, renderTrend),
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Financial health score with its factors",
	RunE:  sectionRunner(func(r *model.AnalyticsReport) any { return r.HealthScore }, renderHealth),
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Period-end spending projections and overage warnings",
	RunE:  sectionRunner(func(r *model.AnalyticsReport) any { return r.Projections }, renderProjections),
}

func init() {
	rootCmd.AddCommand(reportCmd, categoriesCmd, budgetsCmd, trendCmd, healthCmd, projectCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	r, err := loadReport(cmd.Context())
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(r)
	}
	if isNoData(r) {
		printNoData(r)
		return nil
	}

	printHeader("SPENDING REPORT", r)
	renderSummary(r)
	renderHealth(r)
	renderCategories(r)
	renderBudgets(r)
	renderTrend(r)
	renderProjections(r)

	fmt.Println()
	fmt.Println("  Recommendations")
	fmt.Print(cli.RenderRecommendations(r.Recommendations))
	fmt.Println()
	return nil
}

// sectionRunner builds a RunE printing one part of the report, as JSON
// with --json or through render otherwise.
func sectionRunner(pick func(*model.AnalyticsReport) any, render func(*model.AnalyticsReport)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		r, err := loadReport(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(pick(r))
		}
		if isNoData(r) {
			printNoData(r)
			return nil
		}
		printHeader(strings.ToUpper(cmd.Short), r)
		render(r)
		fmt.Println()
		return nil
	}
}

func printHeader(title string, r *model.AnalyticsReport) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s  %s %s to %s", title,
		r.Period.Label, cli.FormatDate(r.Period.Start), cli.FormatDate(r.Period.End))))
	fmt.Println()
}

func printNoData(r *model.AnalyticsReport) {
	fmt.Printf("\n  No transactions or budgets for %s in %s to %s.\n",
		r.UserID, cli.FormatDate(r.Period.Start), cli.FormatDate(r.Period.End))
	fmt.Println("  Import records with `finscore import <path>`.")
}

func renderSummary(r *model.AnalyticsReport) {
	s := r.Summary
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Spent", cli.FormatMoney(s.TotalAmount)},
			{"Transactions", cli.FormatNumber(int64(s.TransactionCount))},
			{"Average", cli.FormatMoney(s.AverageAmount)},
			{"Per Day", cli.FormatMoney(s.DailyAverage)},
			{"---"},
			{"Budgeted", cli.FormatMoney(r.BudgetSummary.TotalBudgeted)},
			{"Utilization", cli.FormatPercent(r.BudgetSummary.OverallUtilization)},
		},
	}))
	fmt.Println()
}

func renderCategories(r *model.AnalyticsReport) {
	if len(r.CategoryBreakdown) == 0 {
		fmt.Println("  No spending in this period.")
		return
	}
	rows := make([][]string, 0, len(r.CategoryBreakdown))
	for _, c := range r.CategoryBreakdown {
		rows = append(rows, []string{
			c.Category,
			cli.FormatMoney(c.Total),
			cli.FormatNumber(int64(c.Count)),
			cli.FormatMoney(c.Average),
			cli.FormatPercent(c.PercentageOfTotal),
			cli.FormatLabel(string(c.Frequency)),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Categories",
		Headers: []string{"Category", "Total", "Count", "Average", "Share", "Frequency"},
		Rows:    rows,
	}))
	for _, c := range r.CategoryBreakdown {
		fmt.Println(cli.RenderHorizontalBar(fmt.Sprintf("%-14.14s", c.Category), c.PercentageOfTotal, 100, 40))
	}
	fmt.Println()
}

func renderBudgets(r *model.AnalyticsReport) {
	if len(r.BudgetPerformance) == 0 {
		fmt.Println("  No active budgets overlap this period.")
		return
	}
	rows := make([][]string, 0, len(r.BudgetPerformance)+2)
	for _, b := range r.BudgetPerformance {
		rows = append(rows, []string{
			b.Category,
			cli.FormatMoney(b.BudgetAmount),
			cli.FormatMoney(b.SpentAmount),
			cli.FormatMoney(b.RemainingAmount),
			cli.FormatPercent(b.UtilizationPercentage),
			cli.StatusText(b.Status),
		})
	}
	bs := r.BudgetSummary
	rows = append(rows, []string{"---"}, []string{
		"Total",
		cli.FormatMoney(bs.TotalBudgeted),
		cli.FormatMoney(bs.TotalSpent),
		cli.FormatMoney(bs.TotalBudgeted.Sub(bs.TotalSpent)),
		cli.FormatPercent(bs.OverallUtilization),
		fmt.Sprintf("%d over", bs.OverBudgetCount),
	})
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Budgets",
		Headers: []string{"Category", "Budget", "Spent", "Remaining", "Used", "Status"},
		Rows:    rows,
	}))
	fmt.Println()
}

func renderTrend(r *model.AnalyticsReport) {
	t := r.Trend
	rows := [][]string{
		{"Direction", cli.FormatLabel(string(t.Direction))},
		{"Change", cli.FormatSignedPercent(t.MagnitudePercent)},
		{"Recent Avg/Day", cli.FormatMoney(t.RecentAverage)},
		{"Earlier Avg/Day", cli.FormatMoney(t.EarlierAverage)},
		{"Average/Day", cli.FormatMoney(t.AverageDaily)},
		{"Active Days", cli.FormatNumber(int64(t.SampleCount))},
	}
	if t.Highest != nil {
		rows = append(rows, []string{"Highest Day", dayCell(t.Highest)})
	}
	if t.Lowest != nil {
		rows = append(rows, []string{"Lowest Day", dayCell(t.Lowest)})
	}
	fmt.Print(cli.RenderTable(cli.Table{Title: "Trend", Headers: []string{"Metric", "Value"}, Rows: rows}))
	fmt.Println()
}

func dayCell(d *model.DayBucket) string {
	return fmt.Sprintf("%s %s  %s",
		cli.FormatDayOfWeek(int(d.Date.Weekday())), cli.FormatDate(d.Date), cli.FormatMoney(d.Amount))
}

func renderHealth(r *model.AnalyticsReport) {
	fmt.Print(cli.RenderScore("Health", r.HealthScore, true))
	fmt.Println()
}

func renderProjections(r *model.AnalyticsReport) {
	if len(r.Projections) == 0 {
		fmt.Println("  No projections.")
		return
	}
	rows := make([][]string, 0, len(r.Projections))
	for _, p := range r.Projections {
		scope := p.Category
		if scope == "" {
			scope = "Overall"
		}
		overage := "-"
		if p.Warning != nil {
			overage = fmt.Sprintf("%s (cap %s/day)",
				cli.FormatMoney(p.Warning.Overage), cli.FormatMoney(p.Warning.SuggestedDailyCap))
		}
		rows = append(rows, []string{
			scope,
			cli.FormatMoney(p.TotalSpend),
			cli.FormatMoney(p.ProjectedTotal),
			cli.FormatMoneyPtr(p.Budget),
			fmt.Sprintf("%d/%d", p.DaysElapsed, p.DaysElapsed+p.DaysRemaining),
			overage,
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Projections",
		Headers: []string{"Scope", "So Far", "Projected", "Budget", "Days", "Overage"},
		Rows:    rows,
	}))
	fmt.Println()
}
