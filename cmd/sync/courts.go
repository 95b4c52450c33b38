package main

import (
	"context"

	"courtsync/internal/app"

	"github.com/spf13/cobra"
)

func courtsCmd() *cobra.Command {
	var all bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "courts",
		Short: "Sync AYO fields into courts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				stats, err := a.Services.Courts.Sync(ctx, !all, dryRun)
				return writeStats(cmd.OutOrStdout(), stats, err)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include inactive fields")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing them")
	return cmd
}

func previewCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what a court sync would change",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				stats, err := a.Services.Courts.PreviewSync(ctx, !all)
				return writeStats(cmd.OutOrStdout(), stats, err)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include inactive fields")
	return cmd
}
