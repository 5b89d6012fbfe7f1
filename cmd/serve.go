package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/quietdash/quietdash/internal/api"
	"github.com/quietdash/quietdash/internal/apikeys"
	"github.com/quietdash/quietdash/internal/auth"
	"github.com/quietdash/quietdash/internal/cache"
	"github.com/quietdash/quietdash/internal/crypto"
	"github.com/quietdash/quietdash/internal/display"
	"github.com/quietdash/quietdash/internal/metrics"
	"github.com/quietdash/quietdash/internal/notify/email"
	"github.com/quietdash/quietdash/internal/scheduler"
	"github.com/quietdash/quietdash/internal/waitlist"
	"github.com/quietdash/quietdash/internal/widgets"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the QuietDash API server",
	Long:  `Start the QuietDash API server and the background audience sync job.`,
	Example: `quietdash serve --config config.yml
quietdash serve -c /path/to/config.yml --log-level debug
`,
	RunE: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) error {
	cfg, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	encryptor, err := crypto.New(cfg.Encryption.Key)
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}

	mailer, err := email.New(cfg.Email, cfg.MarketingURL)
	if err != nil {
		return fmt.Errorf("failed to create email sender: %w", err)
	}

	widgetService := widgets.New(db)
	waitlistService := waitlist.New(db, mailer, cfg.ReferralBaseURL)
	displayCache := cache.NewDisplayCache(cfg.Cache)

	server, err := api.New(cfg, api.Services{
		Auth:            auth.New(db, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)),
		APIKeys:         apikeys.New(db, encryptor),
		Widgets:         widgetService,
		Renderer:        display.NewRenderer(cfg.Display.Title, cfg.GetDisplayLocation(), widgetService, displayCache),
		DisplaySettings: display.NewSettingsService(db),
		Waitlist:        waitlistService,
	}, log.GetLevel() == log.DebugLevel)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	sched, err := scheduler.New()
	if err != nil {
		return err
	}
	if cfg.AudienceSync != nil && cfg.AudienceSync.Enabled {
		if err := sched.AddAudienceSyncJob(cfg.AudienceSync.Schedule, waitlistService); err != nil {
			return fmt.Errorf("failed to schedule audience sync: %w", err)
		}
	}

	if err := metrics.RegisterCaches(displayCache); err != nil {
		return fmt.Errorf("failed to register cache metrics: %w", err)
	}
	if err := metrics.RegisterJobs(sched); err != nil {
		return fmt.Errorf("failed to register job metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	g.Go(func() error {
		sched.Start()
		<-ctx.Done()
		return sched.Stop()
	})

	log.Info("quietdash started successfully", "listen", cfg.Listen)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("quietdash stopped")
	return nil
}
