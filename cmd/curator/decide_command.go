package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/decision"
	"curator/internal/dupes"
)

func newDecideCommand(ctx *commandContext) *cobra.Command {
	decideCmd := &cobra.Command{
		Use:   "decide",
		Short: "Record keep/remove decisions for duplicate groups",
	}

	decideCmd.AddCommand(newDecideAutoCommand(ctx))
	decideCmd.AddCommand(newDecideReviewCommand(ctx))
	decideCmd.AddCommand(newDecideExportCommand(ctx))
	decideCmd.AddCommand(newDecideImportCommand(ctx))

	return decideCmd
}

func newDecideAutoCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Accept the ranking for every undecided group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, logger *slog.Logger, store *catalog.Store) error {
				analysis, err := dupes.New(cfg, store, logger).Analyze(cmd.Context())
				if err != nil {
					return err
				}
				recorder := decision.NewRecorder(store, logger)

				groups := analysis.Groups
				if !overwrite {
					groups, err = recorder.Unresolved(cmd.Context(), analysis)
					if err != nil {
						return err
					}
				}
				for _, group := range groups {
					if err := recorder.RecordAuto(cmd.Context(), group); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d auto decisions (%d groups total)\n",
					len(groups), len(analysis.Groups))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Re-record groups that already have a decision")
	return cmd
}

func newDecideReviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Review undecided groups interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, logger *slog.Logger, store *catalog.Store) error {
				analysis, err := dupes.New(cfg, store, logger).Analyze(cmd.Context())
				if err != nil {
					return err
				}
				recorder := decision.NewRecorder(store, logger)
				unresolved, err := recorder.Unresolved(cmd.Context(), analysis)
				if err != nil {
					return err
				}
				if len(unresolved) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Every group already has a decision")
					return nil
				}
				session := decision.NewSession(recorder, cmd.InOrStdin(), cmd.OutOrStdout())
				recorded, err := session.Run(cmd.Context(), unresolved)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nRecorded %d decisions, %d still unresolved\n",
					recorded, len(unresolved)-recorded)
				return nil
			})
		},
	}
}

func newDecideExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write all recorded decisions to a decision file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, logger *slog.Logger, store *catalog.Store) error {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				recorder := decision.NewRecorder(store, logger)
				if err := recorder.Export(cmd.Context(), f); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported decisions to %s\n", args[0])
				return nil
			})
		},
	}
}

func newDecideImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Record decisions from a decision file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, logger *slog.Logger, store *catalog.Store) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				analysis, err := dupes.New(cfg, store, logger).Analyze(cmd.Context())
				if err != nil {
					return err
				}
				recorder := decision.NewRecorder(store, logger)
				n, err := recorder.Import(cmd.Context(), analysis, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d decisions from %s\n", n, args[0])
				return nil
			})
		},
	}
}
