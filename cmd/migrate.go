package cmd

import (
	"context"

	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-changelog/library/log"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long:  `migrate stored data`,
	Args:  gcmd.NoExtraArgs,
}

var migrateLegacyCMD = &cobra.Command{
	Use:   "legacy",
	Short: "convert plain text entries",
	Long: `Rewrite entries stored as bare text into the JSON entry format.

An image stored in the media store under the same key becomes the
entry's only media item. With --dry nothing is written.`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		stack, err := setupChangelog(ctx)
		if err != nil {
			log.Logger.Panic("setup changelog", zap.Error(err))
		}
		defer stack.Close(ctx)

		dry := gconfig.Shared.GetBool("dry")
		report, err := stack.svc.MigrateLegacy(ctx, dry)
		if err != nil {
			log.Logger.Panic("migrate legacy entries", zap.Error(err))
		}

		log.Logger.Info("legacy entries migrated",
			zap.Bool("dry", dry),
			zap.Int("converted", report.Converted),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed))
	},
}

func init() {
	rootCMD.AddCommand(migrateCMD)
	migrateCMD.AddCommand(migrateLegacyCMD)
}
