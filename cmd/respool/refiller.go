package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/yuku/respool"
	"go.uber.org/zap"
)

func newRefillerCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refiller",
		Short: "Refill the pool whenever any process signals low water",
		Long: `Refiller keeps the pool topped up. It listens for the low-water
notifications that acquisitions in background refill mode publish through
PostgreSQL, and also checks the pool every --interval. An interval of 0
turns polling off so only notifications trigger refills.

Only the postgres backend carries notifications between processes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runRefiller(ctx)
		},
	}
	cmd.Flags().Duration("interval", respool.DefaultRefillInterval, "How often to check the pool without being signalled (0 disables polling)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func (a *app) runRefiller(ctx context.Context) error {
	if backend := a.v.GetString("backend"); backend != backendPostgres {
		return fmt.Errorf("refiller requires the %s backend: given %q", backendPostgres, backend)
	}
	conf, err := a.poolConfig()
	if err != nil {
		return err
	}
	conf.RefillMode = respool.RefillBackground
	conf.RefillInterval = pollInterval(a.v.GetDuration("interval"))

	db, manager, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	defer manager.Close()

	if _, err := manager.Open(ctx, conf); err != nil {
		return err
	}

	if addr := a.v.GetString("metrics-addr"); addr != "" {
		srv := &http.Server{Addr: addr, Handler: metricsHandler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.log.Info("refiller started", zap.String("group", conf.GroupKey))
	err = manager.Listen(ctx)
	if errors.Is(err, context.Canceled) {
		a.log.Info("refiller stopped")
		return nil
	}
	return err
}

// pollInterval maps the --interval flag to Config.RefillInterval, where
// zero would mean the default and a negative value disables polling.
func pollInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return -1
	}
	return d
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
