package cmd

import (
	"context"
	"os/signal"
	"syscall"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-changelog/internal/web"
	"github.com/Laisky/laisky-changelog/internal/web/changelog/controller"
	"github.com/Laisky/laisky-changelog/library/config"
	"github.com/Laisky/laisky-changelog/library/log"
	"github.com/Laisky/laisky-changelog/library/throttle"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `HTTP API and preview page of the changelog`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := runAPI(ctx); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func runAPI(ctx context.Context) error {
	stack, err := setupChangelog(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	defer stack.Close(context.WithoutCancel(ctx))

	ctl, err := controller.New(stack.svc,
		controller.WithPreviewTitle(gconfig.Shared.GetString("settings.changelog.title")),
		// every image at the limit plus room for the text fields
		controller.WithMaxBodyBytes(config.MaxUploadBytes()*16+(1<<20)),
	)
	if err != nil {
		return errors.Wrap(err, "new changelog controller")
	}

	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	serverOpts := []web.ServerOption{
		web.WithAllowedOrigins(config.AllowedOrigins()),
		web.WithMediaDir(stack.mediaDir),
		web.WithMetric(gconfig.Shared.GetBool("settings.web.metric")),
	}
	if cfg, ok := config.WriteThrottle(); ok {
		th, err := throttle.New(cfg)
		if err != nil {
			return errors.Wrap(err, "new write throttle")
		}
		serverOpts = append(serverOpts, web.WithWriteThrottle(th))
	}

	server, err := web.NewServer(ctl, serverOpts...)
	if err != nil {
		return errors.Wrap(err, "new server")
	}

	return web.RunServer(ctx, gconfig.Shared.GetString("listen"), server)
}

func init() {
	rootCMD.AddCommand(apiCMD)
}
