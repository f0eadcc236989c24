package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"streamcal/internal/capture"
	"streamcal/internal/config"
	"streamcal/internal/format"
	"streamcal/internal/ics"
	"streamcal/internal/live"
	appLog "streamcal/internal/log"
	"streamcal/internal/schedule"
	"streamcal/internal/termview"
	"streamcal/internal/tz"
	"streamcal/internal/web"
)

const (
	fetchTimeout    = 20 * time.Second
	liveTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type flagConfig struct {
	configPath string
	listen     string
	locale     string
	once       bool
	snapshot   string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.locale != "" {
		conf.Locale = flags.locale
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"locale", conf.Locale,
		"policy", conf.Policy,
		"refresh", conf.RefreshCron,
		"schedule_url", ics.RedactURL(conf.ScheduleURL),
		"live", conf.LiveURL != "",
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := format.LoadCatalog()
	if err != nil {
		appLog.Error("failed to load locales", err)
		os.Exit(1)
	}
	if !slices.Contains(catalog.Languages(), conf.Locale) {
		appLog.Warn("locale not shipped; phrases fall back to English", "locale", conf.Locale, "available", strings.Join(catalog.Languages(), ","))
	}
	svc := newService(conf)

	switch {
	case flags.once:
		err = runOnce(ctx, conf, svc, catalog)
	case flags.snapshot != "":
		err = runSnapshot(ctx, conf, svc, catalog, flags.snapshot)
	default:
		err = runServer(ctx, conf, svc, catalog)
	}
	if err != nil {
		appLog.Error("streamcal exiting with error", err)
		os.Exit(1)
	}
	appLog.Info("streamcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./streamcal.yaml", "Path to config file (.yaml or .toml)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.locale, "locale", "", "Phrase locale, e.g. en or ro (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch the schedule, print it and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Render the widget page to this PNG path and exit")

	flag.Parse()

	return cfg
}

func newService(conf *config.Config) *schedule.Service {
	fetcher := ics.NewFetcher(conf.CacheDir, fetchTimeout)
	return schedule.NewService(
		fetcher,
		ics.Source{ID: "schedule", URL: conf.ScheduleURL},
		conf.DefaultZone,
		schedule.Options{
			Policy:    schedule.Policy(conf.Policy),
			NextCount: conf.NextCount,
			Horizon:   time.Duration(conf.HorizonDays) * 24 * time.Hour,
		},
	)
}

// runOnce refreshes the schedule and prints it to stdout.
func runOnce(ctx context.Context, conf *config.Config, svc *schedule.Service, catalog *format.Catalog) error {
	now := time.Now()
	snap, refreshErr := svc.Refresh(ctx, now)

	f := format.New(catalog.Localizer(conf.Locale), conf.Timezone, format.Hour12(conf.Hour12, conf.Timezone))
	opts := termview.Options{
		Styled: termview.IsTerminal(os.Stdout),
		Limit:  1 + conf.ExpandedCount,
	}
	if err := termview.Print(os.Stdout, f, snap, now, opts); err != nil {
		return err
	}
	return refreshErr
}

// runSnapshot serves the widget on an ephemeral loopback port, captures
// /schedule to path and exits.
func runSnapshot(ctx context.Context, conf *config.Config, svc *schedule.Service, catalog *format.Catalog, path string) error {
	if _, err := svc.Refresh(ctx, time.Now()); err != nil {
		appLog.Warn("snapshot will show the load failure", "err", err)
	}

	local := *conf
	local.BasicAuth = nil
	srv := web.NewServer(&local, svc, catalog)
	if conf.LiveURL != "" {
		st, err := live.NewChecker(conf.LiveURL, liveTimeout).Check(ctx, live.State{})
		if err != nil {
			appLog.Warn("live check failed", "err", err)
		}
		srv.SetLive(st)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("snapshot listener: %w", err)
	}
	httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("snapshot server failed", err)
		}
	}()
	defer shutdown(httpSrv)

	url := "http://" + ln.Addr().String() + "/schedule"
	if err := capture.SnapshotPNG(ctx, capture.Options{URL: url, OutputPath: path}); err != nil {
		return err
	}
	appLog.Info("snapshot written", "path", path)
	return nil
}

// runServer serves the widget until ctx is cancelled, refreshing the
// schedule on the configured cron spec and polling the live endpoint.
func runServer(ctx context.Context, conf *config.Config, svc *schedule.Service, catalog *format.Catalog) error {
	if _, err := svc.Refresh(ctx, time.Now()); err != nil {
		appLog.Warn("initial schedule load failed; will retry on schedule", "err", err)
	}

	scheduler := cron.New(cron.WithLocation(tz.Location(conf.Timezone)))
	if _, err := scheduler.AddFunc(conf.RefreshCron, func() {
		_, _ = svc.Refresh(ctx, time.Now())
	}); err != nil {
		return fmt.Errorf("schedule refresh job: %w", err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	srv := web.NewServer(conf, svc, catalog)
	if conf.LiveURL != "" {
		checker := live.NewChecker(conf.LiveURL, liveTimeout)
		go checker.Poll(ctx, time.Duration(conf.LivePollSeconds)*time.Second, srv.SetLive)
	}

	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdown(httpSrv)
	return nil
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.Warn("http shutdown", "err", err)
	}
}
