package main

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/consolidate"
	"curator/internal/dupes"
)

func newConsolidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var execute bool

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Copy keepers into the library and remove redundant copies",
		Long: `Applies every recorded decision: keepers and unique files are
copied with hash verification into the library, then removable members
are deleted from the staging tree (after an optional verified backup).

Respects the configured dry_run default; --execute disables dry-run
for this invocation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, logger *slog.Logger, store *catalog.Store) error {
				analysis, err := dupes.New(cfg, store, logger).Analyze(cmd.Context())
				if err != nil {
					return err
				}

				executor := consolidate.New(cfg, store, ctx.guard(cfg, logger), logger).
					WithProgress(newProgressBar("consolidating"))
				if execute {
					executor.SetDryRun(false)
				}
				result, err := executor.Run(cmd.Context(), analysis)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				if result.DryRun {
					fmt.Fprintln(out, "Dry run: nothing was copied or removed")
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Metric", "Value"},
					[][]string{
						{"Files kept", fmt.Sprintf("%d", result.FilesKept)},
						{"Already in library", fmt.Sprintf("%d", result.FilesAlreadyKept)},
						{"Files removed", fmt.Sprintf("%d", result.FilesRemoved)},
						{"Files skipped", fmt.Sprintf("%d", result.FilesSkipped)},
						{"Groups completed", fmt.Sprintf("%d", result.GroupsCompleted)},
						{"Groups failed", fmt.Sprintf("%d", result.GroupsFailed)},
						{"Space saved", humanize.IBytes(uint64(result.BytesSaved))},
					},
				))
				for _, line := range result.Errors {
					fmt.Fprintf(out, "error: %s\n", line)
				}
				fmt.Fprintf(out, "Report: %s\n", consolidate.ReportPath(cfg.Paths.ReportDir, result.RunID))
				if !result.Success {
					return fmt.Errorf("run %s finished with %d errors", result.RunID, len(result.Errors))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run result as JSON")
	cmd.Flags().BoolVar(&execute, "execute", false, "Disable dry-run for this invocation")
	return cmd
}
