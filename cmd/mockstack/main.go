// mockstack CLI - serves user-defined mock HTTP APIs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mockstack/mockstack/internal/storage"
	"github.com/mockstack/mockstack/pkg/config"
	"github.com/mockstack/mockstack/pkg/engine"
	"github.com/mockstack/mockstack/pkg/logging"
	"github.com/mockstack/mockstack/pkg/metrics"
	"github.com/mockstack/mockstack/pkg/upload"
)

// Build-time variables set via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	root := &cobra.Command{
		Use:     "mockstack",
		Short:   "Serve user-defined mock HTTP APIs",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
	}
	root.AddCommand(serveCmd(), validateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "mockstack.yaml", "configuration file (YAML or JSON)")
	return cmd
}

func validateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file without starting the server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("Configuration OK: %d project(s), %d account(s)\n",
				len(cfg.Projects), len(cfg.Accounts))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "mockstack.yaml", "configuration file (YAML or JSON)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	})

	projects, accounts, submissions, err := buildStores(cfg)
	if err != nil {
		return err
	}

	var uploader upload.Uploader
	if cfg.S3 != nil {
		uploader, err = upload.NewS3Uploader(ctx, *cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to configure s3 uploads: %w", err)
		}
	}

	handler := engine.NewHandler(projects, accounts, submissions, uploader)

	opts := []engine.ServerOption{engine.WithLogger(log)}
	if cfg.Metrics {
		opts = append(opts, engine.WithMetrics(metrics.New()))
	}
	srv := engine.NewServer(cfg.Listen, handler, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		log.Info("received signal, shutting down", "signal", s.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildStores(cfg *config.Config) (storage.ProjectStore, storage.AccountStore, storage.SubmissionStore, error) {
	ctx := context.Background()

	projects := storage.NewMemoryProjectStore()
	for i := range cfg.Projects {
		if err := projects.Put(ctx, &cfg.Projects[i]); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to register project %q: %w", cfg.Projects[i].Name, err)
		}
	}

	var (
		accounts    storage.AccountStore
		submissions storage.SubmissionStore
	)
	if cfg.DataFile != "" {
		fs, err := storage.OpenFileStore(cfg.DataFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open data file: %w", err)
		}
		accounts = fs.Accounts()
		submissions = fs.Submissions()
	} else {
		accounts = storage.NewMemoryAccountStore()
		submissions = storage.NewMemorySubmissionStore()
	}

	for i := range cfg.Accounts {
		acct := &cfg.Accounts[i]
		// Keep counters from a previous run when the data file already
		// tracks this account
		if _, err := accounts.Get(ctx, acct.ID); err == nil {
			continue
		}
		if err := accounts.Save(ctx, acct); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to register account %q: %w", acct.ID, err)
		}
	}

	return projects, accounts, submissions, nil
}
