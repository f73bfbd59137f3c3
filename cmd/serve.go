package cmd

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/authenticator"
	"github.com/blogem/linkedin-login/config"
	"github.com/blogem/linkedin-login/controllers"
	"github.com/blogem/linkedin-login/database"
	"github.com/blogem/linkedin-login/logger"
	"github.com/blogem/linkedin-login/metrics"
	"github.com/blogem/linkedin-login/repositories"
	"github.com/blogem/linkedin-login/services"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the LinkedIn login endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// buildHandler wires repositories, services and controllers into the router
func buildHandler(cfg *config.Config, db *sql.DB, opts authenticator.Options, log *zap.Logger) (http.Handler, error) {
	variant, err := cfg.Variant()
	if err != nil {
		return nil, err
	}

	repos := repositories.NewRepositories(db, cfg.SiteCacheTTL)
	m := metrics.New()
	events := services.EventSinks{
		services.NewLogSink(log),
		services.NewAuditSink(repos.Audit, log),
		m,
	}

	srvs := services.NewServices(repos, authenticator.NewFactory(opts), events, services.Config{
		Variant:         variant,
		Scope:           cfg.LinkedIn.Scope,
		PendingTokenTTL: cfg.LinkedIn.PendingTTL,
	}, log)

	ctrl := controllers.NewControllers(srvs, controllers.Config{PublicURL: cfg.PublicURL}, log)

	return setupRouter(routerDeps{
		ctrl:     ctrl,
		sites:    repos.Sites,
		metrics:  m,
		session:  cfg.Session,
		useHTTPS: cfg.UseHTTPS,
		log:      log,
	})
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(logger.Config{Env: cfg.LogEnv, Level: cfg.LogLevel, ServiceName: "linkedin-login"})
	defer log.Sync()

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := authenticator.DefaultOptions()
	opts.Timeout = cfg.LinkedIn.Timeout

	handler, err := buildHandler(cfg, db, opts, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("database", cfg.DatabasePath),
			zap.String("handshake", cfg.LinkedIn.Handshake),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
