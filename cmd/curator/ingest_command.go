package main

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/ingest"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var execute bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Copy configured source volumes into the staging tree",
		Long: `Copies the media files on every configured source volume into
staging_dir/<label> with hash verification, writing one manifest per
volume. The volumes themselves are only ever read, and files already
staged with a matching size are skipped so an interrupted ingest
resumes.

Respects the configured dry_run default; --execute disables dry-run
for this invocation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, logger *slog.Logger, store *catalog.Store) error {
				ing := ingest.New(cfg, ctx.guard(cfg, logger), logger).
					WithProgress(newProgressBar("ingesting"))
				if execute {
					ing.SetDryRun(false)
				}
				result, err := ing.Run(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				if result.DryRun {
					fmt.Fprintln(out, "Dry run: nothing was staged")
				}
				rows := make([][]string, 0, len(result.Volumes))
				for _, v := range result.Volumes {
					rows = append(rows, []string{
						v.Label,
						fmt.Sprintf("%d", v.FilesCopied),
						fmt.Sprintf("%d", v.FilesStaged),
						fmt.Sprintf("%d", v.FilesFailed),
						humanize.IBytes(uint64(v.BytesCopied)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Volume", "Copied", "Already staged", "Failed", "Bytes"},
					rows,
				))
				for _, line := range result.Errors {
					fmt.Fprintf(out, "error: %s\n", line)
				}
				fmt.Fprintf(out, "Ingested %d files (%s) from %d volumes\n",
					result.FilesCopied,
					humanize.IBytes(uint64(result.BytesCopied)),
					result.VolumesProcessed)
				if len(result.Errors) > 0 {
					return fmt.Errorf("ingest finished with %d errors", len(result.Errors))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the ingest result as JSON")
	cmd.Flags().BoolVar(&execute, "execute", false, "Disable dry-run for this invocation")
	return cmd
}
