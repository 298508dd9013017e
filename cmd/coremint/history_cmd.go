package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/coremint/coremint/internal/journal"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var errJournalDisabled = errors.New("journal is disabled in config")

func init() {
	rootCmd.AddCommand(newHistoryCmd())
}

func newHistoryCmd() *cobra.Command {
	var (
		filter journal.Filter
		runs   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past uploads recorded in the journal",
		Example: `  coremint history --runs
  coremint history --run 0b6f9c1e-... --limit 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Journal.Disabled {
				return errJournalDisabled
			}
			cmd.SilenceUsage = true

			j := journal.New(cfg.Journal.Path)
			if err := j.Open(); err != nil {
				return err
			}
			defer j.Close()

			if runs {
				summaries, err := j.Runs(cmd.Context(), filter.Limit)
				if err != nil {
					return err
				}
				printRuns(cmd.OutOrStdout(), summaries)
				return nil
			}

			entries, err := j.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&runs, "runs", false, "summarise runs instead of listing files")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "only entries of this run")
	cmd.Flags().StringVar(&filter.Source, "source", "", "only entries uploaded from this source")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "maximum rows")
	return cmd
}

func printRuns(w io.Writer, runs []*journal.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, gray.Render("no runs recorded"))
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-11s %5d files  %9s  %s\n",
			cyan.Render(r.RunID),
			r.Backend,
			r.Files,
			humanize.IBytes(uint64(r.Bytes)),
			gray.Render(humanize.Time(r.StartedAt)),
		)
	}
}

func printEntries(w io.Writer, entries []*journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, gray.Render("no uploads recorded"))
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s\n", green.Render(e.URI), e.Source)
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			gray.Render(humanize.Time(e.UploadedAt)),
			e.ContentType,
			humanize.IBytes(uint64(e.Size)),
			gray.Render(e.RunID),
		)
	}
}
