package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Hash every media file under the configured scan roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, logger *slog.Logger, store *catalog.Store) error {
				s := scanner.New(cfg, store, logger).
					WithProgress(newProgressBar("scanning"))
				result, err := s.Run(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(result.Roots))
				for _, st := range result.Roots {
					rows = append(rows, []string{
						st.Root,
						fmt.Sprintf("%d", st.FilesHashed),
						fmt.Sprintf("%d", st.FilesSkipped),
						fmt.Sprintf("%d", st.FilesFailed),
						humanize.IBytes(uint64(st.BytesHashed)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Root", "Hashed", "Unchanged", "Failed", "Bytes"},
					rows,
				))
				fmt.Fprintf(out, "Manifest: %s\n", result.ManifestPath)
				fmt.Fprintf(out, "Scanned %d files (%s) in %s\n",
					result.FilesHashed,
					humanize.IBytes(uint64(result.BytesHashed)),
					result.Duration.Round(time.Millisecond))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the scan result as JSON")
	return cmd
}
