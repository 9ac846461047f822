package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finscore/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	if flagJSON {
		return printJSON(cfg)
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default period: %s\n", cfg.General.DefaultPeriod)
	if cfg.General.UserID != "" {
		fmt.Printf("    User:           %s\n", cfg.General.UserID)
	} else {
		fmt.Println("    User:           not set")
	}
	if cfg.General.ImportDir != "" {
		fmt.Printf("    Import dir:     %s\n", cfg.General.ImportDir)
	}
	fmt.Printf("    Log level:      %s\n", cfg.General.LogLevel)
	fmt.Println()

	fmt.Println("  [Store]")
	fmt.Printf("    Driver: %s\n", cfg.Store.Driver)
	switch {
	case cfg.Store.DSN != "":
		fmt.Printf("    DSN:    %s\n", maskDSN(cfg.Store.DSN))
	case cfg.Store.Driver == "sqlite":
		fmt.Printf("    Path:   %s (default)\n", config.DefaultDBPath())
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("    Invalid: %v\n", err)
	} else if user, err := userID(); err == nil {
		if st, err := openStore(); err != nil {
			fmt.Printf("    Status: unavailable (%v)\n", err)
		} else {
			defer func() { _ = st.Close() }()
			if c, err := st.Counts(cmd.Context(), user); err == nil {
				fmt.Printf("    Records: %d transactions, %d budgets, %d lending\n", c.Transactions, c.Budgets, c.Lendings)
			}
		}
	}
	fmt.Println()

	fmt.Println("  [Cache]")
	fmt.Printf("    Enabled: %v\n", cfg.Cache.Enabled)
	fmt.Printf("    TTL:     %s\n", cfg.Cache.TTL())
	fmt.Printf("    Memory:  %d MB\n", cfg.Cache.MemoryMB)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Schedule: %s\n", cfg.Daemon.Schedule)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:    %s\n", cfg.Appearance.Theme)
	fmt.Printf("    Locale:   %s\n", cfg.Appearance.Locale)
	fmt.Printf("    Currency: %s\n", cfg.Appearance.Currency)
	fmt.Println()

	fmt.Println("  Run `finscore setup` to reconfigure.")
	return nil
}

// maskDSN hides the password of a URL-style DSN.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return dsn[:scheme+3] + creds[:colon] + ":****" + dsn[at:]
	}
	return dsn
}
