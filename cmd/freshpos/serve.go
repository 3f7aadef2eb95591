package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"freshpos/internal/config"
	"freshpos/internal/http/handlers"
	"freshpos/internal/i18n"
	applog "freshpos/internal/log"
	"freshpos/internal/repos"
)

const (
	janitorEvery    = time.Minute
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the terminal web server",
		Long: `Serve the terminal screen, the JSON API under /api/v1, the manager catalog
pages under /admin and Prometheus metrics on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), c.cfg)
		},
	}
	f := cmd.Flags()
	f.String("port", "", "listen port (port)")
	f.String("catalog", "", "CSV catalog imported on start (catalog_csv)")
	f.String("language", "", "fixed terminal language code; empty negotiates per browser (default_language)")
	v := c.loader.Viper()
	for flag, key := range map[string]string{"port": "port", "catalog": "catalog_csv", "language": "default_language"} {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind --%s: %v", flag, err))
		}
	}
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	// an unwritable log file is reported by Setup; stdout keeps working
	_, _ = applog.Setup(cfg.LogFile, cfg.LogLevel)
	if cfg.DefaultLanguage != "" && !i18n.Default().Has(cfg.DefaultLanguage) {
		return fmt.Errorf("default_language %q: %w", cfg.DefaultLanguage, i18n.ErrUnknownLanguage)
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		applog.Error(nil, "db.open", err, map[string]any{"dsn": cfg.DBDSN})
		return err
	}
	defer db.Close()

	deps := handlers.NewDeps(db, cfg)
	if err := deps.Auth.EnsureManager(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("seed manager: %w", err)
	}
	if cfg.CatalogCSV != "" {
		n, err := importFile(deps.Catalog, cfg.CatalogCSV)
		if err != nil {
			applog.Error(nil, "catalog.import.start", err, map[string]any{"file": cfg.CatalogCSV})
			return err
		}
		applog.Audit(nil, "catalog.import.start", map[string]any{"file": cfg.CatalogCSV, "count": n})
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go deps.Terminal.RunJanitor(ctx, janitorEvery, cfg.SessionIdle)

	app := handlers.NewApp(cfg, deps)
	errc := make(chan error, 1)
	go func() { errc <- app.Listen(cfg.Addr()) }()
	applog.Info(nil, "server.start", map[string]any{
		"addr":             cfg.Addr(),
		"db":               cfg.DBDSN,
		"default_language": cfg.DefaultLanguage,
		"freshness_window": cfg.FreshnessWindow.String(),
		"time_zone":        cfg.TimeZone,
	})

	select {
	case err := <-errc:
		if err != nil {
			applog.Error(nil, "server.listen", err, nil)
		}
		return err
	case <-ctx.Done():
	}
	applog.Info(nil, "server.shutdown", nil)
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
