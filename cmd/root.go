// Package cmd command line
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gutils "github.com/Laisky/go-utils/v6"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-changelog/library/config"
	"github.com/Laisky/laisky-changelog/library/log"
)

var rootCMD = &cobra.Command{
	Use:   "laisky-changelog",
	Short: "laisky-changelog",
	Long:  `personal changelog publishing service`,
	Args:  gcmd.NoExtraArgs,
}

func initialize(ctx context.Context, cmd *cobra.Command) error {
	if err := gconfig.Shared.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind pflags")
	}

	if err := setupSettings(ctx); err != nil {
		return errors.Wrap(err, "setup settings")
	}
	if err := setupLogger(ctx); err != nil {
		return errors.Wrap(err, "setup logger")
	}
	if err := validateStartupConfig(); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func setupSettings(_ context.Context) error {
	// mode
	if gconfig.Shared.GetBool("debug") {
		fmt.Println("run in debug mode")
		gconfig.Shared.Set("log-level", "debug")
	} else { // prod mode
		fmt.Println("run in prod mode")
	}

	// clock
	gutils.SetInternalClock(100 * time.Millisecond)

	// load configuration
	if cfgPath := gconfig.Shared.GetString("config"); cfgPath != "" {
		config.LoadFromFile(cfgPath)
	}

	return nil
}

func setupLogger(_ context.Context) error {
	lvl := gconfig.Shared.GetString("log-level")
	if err := log.Logger.ChangeLevel(logSDK.Level(lvl)); err != nil {
		return errors.Wrapf(err, "change log level to %q", lvl)
	}

	return nil
}

func init() {
	rootCMD.PersistentFlags().Bool("debug", false, "run in debug mode")
	rootCMD.PersistentFlags().Bool("dry", false, "run in dry mode")
	rootCMD.PersistentFlags().String("listen", "localhost:8080", "like `localhost:8080`")
	rootCMD.PersistentFlags().StringP("config", "c", "", "config file path, like /etc/laisky-changelog/settings.yml")
	rootCMD.PersistentFlags().String("log-level", "info", "`debug/info/error`")
}

// Execute execute root command
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		logSDK.Shared.Panic("start", zap.Error(err))
	}
}
