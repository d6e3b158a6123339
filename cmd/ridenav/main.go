package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theoremus-urban-solutions/ridenav/alert"
	"github.com/theoremus-urban-solutions/ridenav/config"
	"github.com/theoremus-urban-solutions/ridenav/geo"
	"github.com/theoremus-urban-solutions/ridenav/hazard"
	"github.com/theoremus-urban-solutions/ridenav/internal"
	"github.com/theoremus-urban-solutions/ridenav/navigation"
	"github.com/theoremus-urban-solutions/ridenav/position"
	"github.com/theoremus-urban-solutions/ridenav/route"
	"github.com/theoremus-urban-solutions/ridenav/server"
)

func main() {
	mode := flag.String("mode", "serve", "serve|ride|plan|tone")
	configPath := flag.String("config", "", "config file (defaults to config.yml)")
	routePath := flag.String("route", "", "route document URL or file for -mode=ride (- for stdin)")
	duration := flag.Duration("duration", 30*time.Second, "how long -mode=ride runs")
	audio := flag.String("audio", "ws", "ws|log|both: where serve sends tones and speech")
	from := flag.String("from", "", "origin lat,lon for -mode=plan")
	to := flag.String("to", "", "destination lat,lon for -mode=plan")
	profile := flag.String("profile", route.ProfileBalanced, "safest|fastest|balanced|scenic")
	severity := flag.String("severity", "medium", "severity for -mode=tone")
	out := flag.String("out", "-", "output file for -mode=tone (- for stdout)")
	flag.Parse()

	internal.InitLogging()
	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	cfg, err := config.LoadAppConfig(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := internal.NewLogger(cfg.Logging.Service, cfg.Logging.Level)

	switch *mode {
	case "serve":
		err = serve(cfg, *audio, logger)
	case "ride":
		err = ride(cfg, *routePath, *duration, logger)
	case "plan":
		err = plan(cfg, *from, *to, *profile)
	case "tone":
		err = tone(*severity, *out)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("ridenav failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

// hazardStore opens the configured zone store behind the session cache.
func hazardStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*hazard.CachedStore, func(), error) {
	var (
		store   hazard.Store
		closeFn = func() {}
	)
	switch cfg.Hazards.Source {
	case config.HazardSourceOverpass:
		store = hazard.NewOverpassStore(cfg.Hazards.OverpassURL, 30*time.Second)
	default:
		pg, err := hazard.OpenPostGIS(ctx, cfg.Hazards.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store = pg
		closeFn = func() {
			if err := pg.Close(); err != nil {
				logger.Warn("failed to close hazard database", "error", err)
			}
		}
	}
	cache := hazard.NewCache(cfg.Hazards.CacheCapacity, time.Duration(cfg.Hazards.CacheTTLSeconds)*time.Second)
	return hazard.NewCachedStore(store, cache), closeFn, nil
}

// liveSource builds the configured device position source. The push source
// is returned separately so the HTTP fix endpoint can feed it.
func liveSource(cfg *config.AppConfig, logger *slog.Logger) (position.Source, *position.PushSource) {
	switch cfg.Live.Source {
	case config.LiveSourceKafka:
		return position.NewKafkaSource(position.KafkaConfig{
			Brokers:   cfg.Live.Kafka.Brokers,
			Topic:     cfg.Live.Kafka.Topic,
			GroupID:   cfg.Live.Kafka.GroupID,
			DeviceKey: cfg.Live.Kafka.DeviceKey,
		}, logger), nil
	case config.LiveSourceGTFSRT:
		return position.NewFeedSource(
			cfg.Live.GTFSRT.VehiclePositionsURL,
			cfg.Live.GTFSRT.VehicleID,
			time.Duration(cfg.Live.GTFSRT.PollIntervalMS)*time.Millisecond,
			logger,
		), nil
	default:
		push := position.NewPushSource()
		return push, push
	}
}

func newScanner(store hazard.Store, cfg *config.AppConfig, logger *slog.Logger) *hazard.Scanner {
	sc := hazard.NewScanner(store, logger)
	sc.QueryTimeout = time.Duration(cfg.Hazards.QueryTimeoutMS) * time.Millisecond
	return sc
}

func serve(cfg *config.AppConfig, audio string, logger *slog.Logger) error {
	store, closeStore, err := hazardStore(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := server.NewHub(logger)
	var sink alert.Sink = hub
	switch audio {
	case "log":
		sink = alert.LogSink{Log: logger}
	case "both":
		sink = alert.Fanout{hub, alert.LogSink{Log: logger}}
	}
	dispatcher := alert.NewDispatcher(sink, sink, logger)

	live, push := liveSource(cfg, logger)
	nav := navigation.New(live, newScanner(store, cfg, logger), dispatcher, hub, navigation.Options{
		Region:      cfg.Region,
		HazardCache: store,
		Logger:      logger,
	})
	planner := route.NewValhallaClient(cfg.Routing.ValhallaURL, time.Duration(cfg.Routing.TimeoutMS)*time.Millisecond)

	srv := server.New(nav, push, planner, hub, logger)
	srv.Start(cfg.Server.Port)
	srv.WaitForShutdown()
	return nil
}

// ride runs a headless session over a route document and prints every
// snapshot as a JSON line. Without a live source the session falls back to
// simulation after the no-fix timeout.
func ride(cfg *config.AppConfig, routePath string, d time.Duration, logger *slog.Logger) error {
	if routePath == "" {
		return fmt.Errorf("-route is required for -mode=ride")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := newFetcher(time.Duration(cfg.Routing.TimeoutMS)*time.Millisecond).fetchRoute(ctx, routePath)
	if err != nil {
		return err
	}
	store, closeStore, err := hazardStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	enc := json.NewEncoder(os.Stdout)
	printer := navigation.ObserverFunc(func(s navigation.Snapshot) {
		if err := enc.Encode(s); err != nil {
			logger.Warn("failed to print snapshot", "error", err)
		}
	})
	sink := alert.LogSink{Log: logger}
	nav := navigation.New(nil, newScanner(store, cfg, logger), alert.NewDispatcher(sink, sink, logger), printer, navigation.Options{
		Region:      cfg.Region,
		HazardCache: store,
		Logger:      logger,
	})
	if _, err := nav.Start("", r); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
	_, err = nav.End()
	return err
}

func plan(cfg *config.AppConfig, from, to, profile string) error {
	origin, err := geo.ParseCoordinate(from)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	destination, err := geo.ParseCoordinate(to)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	client := route.NewValhallaClient(cfg.Routing.ValhallaURL, time.Duration(cfg.Routing.TimeoutMS)*time.Millisecond)
	r, err := client.Plan(context.Background(), route.Request{
		Origin:      origin,
		Destination: destination,
		Profile:     profile,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Document())
}

func tone(severity, out string) error {
	sev, err := hazard.ParseSeverity(severity)
	if err != nil {
		return err
	}
	w := os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	samples := alert.Synthesize(alert.PatternFor(sev), alert.DefaultSampleRate)
	return alert.WriteWAV(w, samples, alert.DefaultSampleRate)
}
