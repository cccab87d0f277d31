package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/vainnor/flightlog/analyst"
	"github.com/vainnor/flightlog/api"
	"github.com/vainnor/flightlog/collector"
	"github.com/vainnor/flightlog/config"
	"github.com/vainnor/flightlog/db"
	"github.com/vainnor/flightlog/llm"
	"github.com/vainnor/flightlog/metrics"
	"github.com/vainnor/flightlog/schema"
	logfetcher "github.com/vainnor/flightlog/services/log_fetcher"
	"github.com/vainnor/flightlog/session"
	"github.com/vainnor/flightlog/summary"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $FLIGHTLOG_CONFIG)")
	inspect := flag.String("inspect", "", "decode a single log file or URL, print its summary and exit")
	listen := flag.String("listen", "", "listen address, overrides LISTEN_ADDR")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flightlog: %v\n", err)
		os.Exit(2)
	}
	if *listen != "" {
		cfg.Server.ListenAddr = *listen
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *inspect != "" {
		if err := runInspect(ctx, cfg, *inspect); err != nil {
			logger.Error("inspect failed", "source", *inspect, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func limits(cfg config.Config) collector.Limits {
	return collector.Limits{
		MaxMessages: cfg.Decode.MaxMessages,
		MaxDuration: cfg.Decode.MaxDuration(),
	}
}

// runInspect decodes one log and prints what the upload endpoint would report.
func runInspect(ctx context.Context, cfg config.Config, target string) error {
	var src collector.Source = collector.FileSource{Path: target}
	if logfetcher.IsURL(target) {
		fetch := logfetcher.New(target)
		fetch.Context = ctx
		src = fetch
	}

	c := collector.NewCollector(schema.Default(), session.NewStore(), collector.WithLimits(limits(cfg)))
	result, err := c.Decode(ctx, src)
	if err != nil {
		return err
	}

	fmt.Printf("Available message types: %v\n", summary.Types(result.Messages))
	fmt.Printf("Decoded %d messages\n", len(result.Messages))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary.WithSkipped(summary.Summarize(result.Messages), result.Skipped))
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store := session.NewStore()
	opts := []collector.Option{
		collector.WithLimits(limits(cfg)),
		collector.WithLogger(logger),
		collector.WithMetrics(m),
	}

	// Initialize database connection
	var archive *db.Archive
	if cfg.Database.Enabled() {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		opened, err := db.Open(connectCtx, cfg.Database.Settings())
		cancel()
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer opened.Close()
		archive = opened
		opts = append(opts, collector.WithArchive(archive))
		logger.Info("upload archive enabled", "host", cfg.Database.Host, "database", cfg.Database.Name)
	}

	c := collector.NewCollector(schema.Default(), store, opts...)

	var provider llm.Provider
	if cfg.LLM.Enabled() {
		httpClient := &http.Client{Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second}
		provider = llm.NewOpenAI(httpClient, cfg.LLM.BaseURL, cfg.LLM.APIKey)
		logger.Info("language model enabled", "base_url", cfg.LLM.BaseURL, "model", cfg.LLM.Model)
	} else {
		logger.Warn("no LLM API key set, chat answers will report the model as unavailable")
	}
	a := analyst.New(provider, cfg.LLM.Model,
		analyst.WithMaxTokens(cfg.LLM.MaxTokens),
		analyst.WithThresholds(cfg.Insight.Thresholds()),
		analyst.WithLogger(logger),
		analyst.WithMetrics(m),
	)

	routerCfg := api.Config{
		Collector:      c,
		Sessions:       store,
		Analyst:        a,
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		APIKeys:        cfg.Server.APIKeys,
		MasterKey:      cfg.Server.MasterKey,
		Logger:         logger,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}
	if archive != nil {
		routerCfg.Archive = archive
		routerCfg.Keys = archive
	}

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "addr", srv.Addr)
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
