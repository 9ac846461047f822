package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/finscore/internal/cli"
	"github.com/theirongolddev/finscore/internal/config"
	"github.com/theirongolddev/finscore/internal/period"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	c := cfg
	ttl := strconv.Itoa(c.Cache.TTLMinutes)

	periods := make([]huh.Option[string], 0, len(period.Labels))
	for _, l := range period.Labels {
		periods = append(periods, huh.NewOption(cli.FormatLabel(string(l)), string(l)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("User id").
				Description("Whose records to analyze.").
				Value(&c.General.UserID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("user id is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Default period").
				Options(periods...).
				Value(&c.General.DefaultPeriod),
			huh.NewInput().
				Title("Import directory").
				Description("Where `finscore import` looks for .jsonl exports (optional).").
				Value(&c.General.ImportDir),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Record store").
				Options(
					huh.NewOption("SQLite (local file)", "sqlite"),
					huh.NewOption("PostgreSQL", "postgres"),
				).
				Value(&c.Store.Driver),
			huh.NewInput().
				Title("Connection string").
				Description("Postgres URL, or a SQLite path (blank for the default).").
				Value(&c.Store.DSN),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Cache reports?").
				Value(&c.Cache.Enabled),
			huh.NewInput().
				Title("Cache TTL (minutes)").
				Value(&ttl).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 {
						return errors.New("enter a whole number of minutes")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(cli.ThemeNames()...)...).
				Value(&c.Appearance.Theme),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing saved.")
			return nil
		}
		return err
	}

	c.Cache.TTLMinutes, _ = strconv.Atoi(ttl)
	c.General.UserID = strings.TrimSpace(c.General.UserID)
	if err := c.Validate(); err != nil {
		return err
	}
	if err := config.Save(c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `finscore setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
