package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/dupes"
	"curator/internal/fileutil"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var fullReport bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Group scanned files into duplicate sets and rank them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, logger *slog.Logger, store *catalog.Store) error {
				analysis, err := dupes.New(cfg, store, logger).Analyze(cmd.Context())
				if err != nil {
					return err
				}

				reportPath := filepath.Join(cfg.Paths.ReportDir, "duplicates.txt")
				if err := os.MkdirAll(cfg.Paths.ReportDir, 0o755); err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(reportPath, []byte(dupes.ReportString(analysis)), 0o644); err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, analysis)
				}
				out := cmd.OutOrStdout()
				if fullReport {
					var b strings.Builder
					if err := dupes.WriteGroupReport(&b, analysis); err != nil {
						return err
					}
					fmt.Fprint(out, b.String())
				}
				if err := dupes.WriteSummary(out, analysis); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nFull report: %s\n", reportPath)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the analysis as JSON")
	cmd.Flags().BoolVar(&fullReport, "full", false, "Print every group, not just the summary")
	return cmd
}
