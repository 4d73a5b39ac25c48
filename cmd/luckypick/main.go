package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dustin/luckypick/internal/analytics"
	"github.com/dustin/luckypick/internal/auth"
	"github.com/dustin/luckypick/internal/config"
	"github.com/dustin/luckypick/internal/geo"
	"github.com/dustin/luckypick/internal/ingest"
	"github.com/dustin/luckypick/internal/logging"
	"github.com/dustin/luckypick/internal/mail"
	"github.com/dustin/luckypick/internal/metrics"
	"github.com/dustin/luckypick/internal/payment"
	"github.com/dustin/luckypick/internal/reports"
	"github.com/dustin/luckypick/internal/server"
	"github.com/dustin/luckypick/internal/sse"
	"github.com/dustin/luckypick/internal/storage"
	"github.com/dustin/luckypick/internal/version"
)

var (
	statsPeriod string
	statsDate   string
	statsFormat string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "luckypick",
		Short:         "Fortune draw site backend with visitor analytics",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServeCmd,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (default)",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	})
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print store driver, size and row counts",
		Args:  cobra.NoArgs,
		RunE:  runStatusCmd,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "luckypick", version.String())
		},
	})
	return rootCmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a stats snapshot",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsPeriod, "period", "day", "day or month")
	cmd.Flags().StringVar(&statsDate, "date", "", "YYYY-MM-DD, or YYYY-MM for month (default: today, UTC)")
	cmd.Flags().StringVar(&statsFormat, "format", "text", "text, json or csv")
	return cmd
}

// loadConfig resolves configuration and installs the logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func openStore(cfg config.Config) (*storage.Storage, error) {
	store, err := storage.NewWithOptions(cfg.DBPath, storage.Options{
		MaxConnections: cfg.DBMaxConnections,
		QueryTimeout:   cfg.DBQueryTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	return store, nil
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	period, err := analytics.ParsePeriod(statsPeriod)
	if err != nil {
		return err
	}
	format, err := reports.ParseFormat(statsFormat)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ref := statsDate
	if ref == "" {
		ref = analytics.FormatDate(time.Now())
	}
	snap, err := analytics.NewAggregator(store).Query(cmd.Context(), period, ref)
	if err != nil {
		return err
	}
	return reports.Render(cmd.OutOrStdout(), format, reports.Report{
		Period:      period,
		Ref:         ref,
		GeneratedAt: time.Now().UTC(),
		Snapshot:    snap,
	})
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.GetStatus(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "driver:      %s\n", st.Driver)
	fmt.Fprintf(out, "size:        %s\n", st.SizeHuman)
	fmt.Fprintf(out, "counters:    %d\n", st.Stats.Counters)
	fmt.Fprintf(out, "list items:  %d\n", st.Stats.ListItems)
	fmt.Fprintf(out, "set members: %d\n", st.Stats.SetMembers)
	return nil
}

func runServeCmd(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !cfg.Production() {
		slog.Warn("running in development mode; session cookies are not Secure")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	geoLookup, err := geo.Open(cfg.MaxMindDBPath, geo.DefaultCacheConfig())
	if err != nil {
		slog.Warn("geo fallback disabled", "error", err)
		geoLookup = nil
	}
	defer geoLookup.Close()

	var m *metrics.Metrics
	hub := sse.NewHub(sse.WithDropHandler(func() { m.RecordSSEDropped() }))
	m = metrics.New(metrics.Providers{
		SSEClients: hub.ClientCount,
		DBSize: func() int64 {
			n, _ := store.FileSize()
			return n
		},
		DBStats: func() metrics.DBStats {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			st, err := store.GetStats(ctx)
			if err != nil {
				slog.Warn("store stats for metrics failed", "error", err)
			}
			return metrics.DBStats{Counters: st.Counters, ListItems: st.ListItems, SetMembers: st.SetMembers}
		},
		GeoCacheRate: func() float64 { return geoLookup.CacheStats().HitRate },
	})
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	recOpts := analytics.RecorderOptions{
		LegacyMonthlyCounter: cfg.TrackLegacyMonthlyCounter,
		AnonymizeIP:          cfg.PrivacyAnonymizeOctet,
	}
	if geoLookup != nil {
		recOpts.Geo = geoLookup
	}
	tracker := analytics.NewTracker(analytics.NewRecorder(store, recOpts), analytics.TrackerOptions{
		Workers:  cfg.TrackWorkers,
		Timeout:  cfg.TrackTimeout,
		Observer: m,
		OnRecorded: func(v analytics.Visit) {
			if err := hub.Publish("visit", v); err != nil {
				slog.Warn("publish visit failed", "error", err)
			}
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.VisitLogPath != "" {
		ingest.New(cfg.VisitLogPath, tracker, ingest.Options{Observer: m}).Start(ctx)
	}

	handler := server.New(cfg, server.Deps{
		Store:      store,
		Aggregator: analytics.NewAggregator(store),
		Tracker:    tracker,
		Auth: auth.New(auth.Config{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
			Secret:        cfg.JWTSecret,
			TTL:           cfg.SessionTTL,
			SecureCookie:  cfg.Production(),
		}),
		Hub:    hub,
		Mailer: mail.LogMailer{ProviderConfigured: cfg.ResendAPIKey != ""},
		Payments: payment.New(payment.Config{
			ClientKey: cfg.PaymentClientKey,
			BaseURL:   cfg.BaseURL,
			Price:     cfg.FortunePrice,
		}),
		Metrics: m,
	})
	defer handler.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.ListenAddr, "version", version.Version, "store", store.Driver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	// Disconnect streams first so Shutdown is not held open by them.
	hub.Close()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	if err := tracker.Close(shutdownCtx); err != nil {
		slog.Warn("visits still recording at shutdown", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}
