package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/claimsportal/claimgate/pkg/cli/config"
	httpctrl "github.com/claimsportal/claimgate/pkg/controller/http"
	"github.com/claimsportal/claimgate/pkg/service/worker"
	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var baseURL string
	var staticDir string
	var sweepInterval time.Duration
	var repoCfg config.Repository
	var keycloakCfg config.Keycloak
	var backendCfg config.Backend
	var archiveCfg config.Archive
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("CLAIMGATE_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Public URL of the portal (e.g., https://claims.example.com)",
			Sources:     cli.EnvVars("CLAIMGATE_BASE_URL"),
			Destination: &baseURL,
		},
		&cli.StringFlag{
			Name:        "static-dir",
			Usage:       "Directory of the built frontend served for non-API paths",
			Sources:     cli.EnvVars("CLAIMGATE_STATIC_DIR"),
			Destination: &staticDir,
		},
		&cli.DurationFlag{
			Name:        "session-sweep-interval",
			Usage:       "Interval of deleting unusable sessions",
			Value:       time.Hour,
			Sources:     cli.EnvVars("CLAIMGATE_SESSION_SWEEP_INTERVAL"),
			Destination: &sweepInterval,
		},
	}

	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, keycloakCfg.Flags()...)
	flags = append(flags, backendCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Serve configuration",
				"addr", addr,
				"base_url", baseURL,
				"repository", repoCfg,
				"keycloak", keycloakCfg,
				"backend", backendCfg,
				"archive", archiveCfg,
				"sentry", sentryCfg,
			)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flush()

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			sessionUC, err := keycloakCfg.Configure(repo, baseURL)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if keycloakCfg.IsNoAuthMode() {
				logging.Default().Warn("Running in no-auth mode (development only)")
			}

			api, err := backendCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure claims API client")
			}

			ucOpts := []usecase.Option{usecase.WithSession(sessionUC)}
			gcs, err := archiveCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if gcs != nil {
				defer func() {
					if err := gcs.Close(); err != nil {
						logging.Default().Error("failed to close export archive", "error", err.Error())
					}
				}()
				ucOpts = append(ucOpts, usecase.WithArchive(gcs))
			}

			uc := usecase.New(repo, api, ucOpts...)

			// No-auth mode keeps its single session in memory, nothing to sweep
			var sweeper *worker.SessionSweeper
			if !keycloakCfg.IsNoAuthMode() {
				sweeper = worker.NewSessionSweeper(repo, sweepInterval)
				if err := sweeper.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start session sweeper")
				}
			}

			httpOpts := []httpctrl.Options{httpctrl.WithVersion(version)}
			if staticDir != "" {
				httpOpts = append(httpOpts, httpctrl.WithStaticFS(os.DirFS(staticDir)))
				logging.Default().Info("Serving frontend", "dir", staticDir)
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc.Session, uc.Claim, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if sweeper != nil {
					sweeper.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if sweeper != nil {
					sweeper.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
