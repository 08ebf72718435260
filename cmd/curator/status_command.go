package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog counts, group states, and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, logger *slog.Logger, store *catalog.Store) error {
				files, err := store.CountFiles(cmd.Context())
				if err != nil {
					return err
				}
				states, err := store.DecisionStateCounts(cmd.Context())
				if err != nil {
					return err
				}
				runs, err := store.RunReports(cmd.Context())
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, map[string]any{
						"files":        files,
						"group_states": states,
						"runs":         runs,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Catalog: %d files (%s)\n\n", files, store.Path())

				stateRows := make([][]string, 0, len(states))
				for _, state := range []catalog.GroupState{
					catalog.StatePending, catalog.StateCopying, catalog.StateCopied,
					catalog.StateCopyFailed, catalog.StateRemoving,
					catalog.StateCompleted, catalog.StatePartial,
				} {
					if n := states[state]; n > 0 {
						stateRows = append(stateRows, []string{string(state), fmt.Sprintf("%d", n)})
					}
				}
				if len(stateRows) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"Group state", "Count"},
						stateRows,
					))
				} else {
					fmt.Fprintln(out, "No decisions recorded yet")
				}

				if len(runs) > 0 {
					runRows := make([][]string, 0, len(runs))
					for i, run := range runs {
						if i == 5 {
							break
						}
						runRows = append(runRows, []string{
							run.RunID,
							run.StartedAt.Local().Format(time.DateTime),
							yesNo(run.DryRun),
							fmt.Sprintf("%d", run.FilesKept),
							fmt.Sprintf("%d", run.FilesRemoved),
							humanize.IBytes(uint64(run.BytesSaved)),
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"Run", "Started", "Dry run", "Kept", "Removed", "Saved"},
						runRows,
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}
