package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finscore/internal/cli"
	"github.com/theirongolddev/finscore/internal/config"
	"github.com/theirongolddev/finscore/internal/ingest"
	"github.com/theirongolddev/finscore/internal/store"
)

var (
	flagImportForce  bool
	flagImportDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import expense, budget and lending records from JSONL files",
	Long: "Import records from a .jsonl file or every .jsonl file under a directory.\n" +
		"Unchanged files are skipped; use --force to re-import them.",
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&flagImportForce, "force", false, "Re-import files even if unchanged")
	importCmd.Flags().BoolVar(&flagImportDryRun, "dry-run", false, "Parse and count records without writing")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	path := cfg.General.ImportDir
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no import path: pass one or set general.import_dir in %s", config.ConfigPath())
	}

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		fmt.Fprintf(os.Stderr, "\r  Parsing %s", cli.RenderProgressBar(current, total, 20))
	}

	if flagImportDryRun {
		res, err := ingest.Load(path, progressFn)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(struct {
				*ingest.LoadResult
				Found store.Counts `json:"found"`
			}{res, store.Counts{
				Transactions: len(res.Records.Transactions),
				Budgets:      len(res.Records.Budgets),
				Lendings:     len(res.Records.Lendings),
			}})
		}
		clearProgress()
		fmt.Printf("  %s files, %s transactions, %s budgets, %s lending records (%d parse errors)\n",
			cli.FormatNumber(int64(res.ParsedFiles)),
			cli.FormatNumber(int64(len(res.Records.Transactions))),
			cli.FormatNumber(int64(len(res.Records.Budgets))),
			cli.FormatNumber(int64(len(res.Records.Lendings))),
			res.ParseErrors)
		return nil
	}

	user, err := userID()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	res, err := ingest.ImportChanged(cmd.Context(), path, user, st, flagImportForce, progressFn)
	if err != nil {
		return err
	}

	purged, err := store.NewReportCache(st).Purge(cmd.Context())
	if err != nil {
		log.WithError(err).Warn("purging expired reports")
	}
	log.WithField("purged", purged).Debug("report cache purged")

	counts, err := st.Counts(cmd.Context(), user)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(struct {
			*ingest.ImportResult
			Stored store.Counts `json:"stored"`
		}{res, counts})
	}

	clearProgress()
	if res.TotalFiles == 0 {
		fmt.Printf("  No .jsonl files found at %s\n", path)
		return nil
	}
	fmt.Printf("  %d files: %d unchanged, %d imported (%s records)\n",
		res.TotalFiles, res.Unchanged, res.Reparsed, cli.FormatNumber(int64(res.Imported)))
	if res.Untracked > 0 {
		fmt.Printf("  %d deleted files forgotten\n", res.Untracked)
	}
	fmt.Printf("  Stored for %s: %s transactions, %s budgets, %s lending records\n", user,
		cli.FormatNumber(int64(counts.Transactions)),
		cli.FormatNumber(int64(counts.Budgets)),
		cli.FormatNumber(int64(counts.Lendings)))
	if res.ParseErrors > 0 || res.FileErrors > 0 {
		fmt.Fprintf(os.Stderr, "\n  %d lines and %d files could not be parsed\n", res.ParseErrors, res.FileErrors)
	}
	return nil
}

func clearProgress() {
	if !flagQuiet {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
}
