package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calayout/internal/config"
	"calayout/internal/feed"
	"calayout/internal/ics"
	"calayout/internal/layout"
	appLog "calayout/internal/log"
	"calayout/internal/model"
	"calayout/internal/timeutil"
	"calayout/internal/web"
)

// flagConfig holds CLI flag values that override or bypass the config file.
type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
	eventsPath string
	start      string
	end        string
	view       string
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
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("calayout starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"view", conf.View,
		"refresh_cron", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"ics_count", len(conf.ICS),
		"once", flags.once,
		"events_file", flags.eventsPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := feed.NewStore(conf, ics.NewFetcher(conf.CacheDir, nil))
	if flags.eventsPath != "" {
		events, err := readEvents(flags.eventsPath)
		if err != nil {
			appLog.Error("failed to read events file", err, "path", flags.eventsPath)
			os.Exit(1)
		}
		store.SetEvents(events)
	}

	if flags.once {
		if err := runOnce(ctx, conf, store, flags); err != nil {
			appLog.Error("layout failed", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, store, flags.eventsPath == ""); err != nil {
		appLog.Error("server exited", err)
		os.Exit(1)
	}
	appLog.Info("calayout exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/calayout/config.yaml", "Path to config file (.yaml or .toml)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Compute one layout, print it as JSON and exit")
	flag.StringVar(&cfg.eventsPath, "events", "", "Read events from a JSON file instead of the ICS feeds")
	flag.StringVar(&cfg.start, "start", "", "First visible date, YYYY-MM-DD (default today)")
	flag.StringVar(&cfg.end, "end", "", "Last visible date, YYYY-MM-DD (default start)")
	flag.StringVar(&cfg.view, "view", "", "month, week, workweek, 3day or 1day (default from config)")

	flag.Parse()

	return cfg
}

func readEvents(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return events, nil
}

// runOnce prints the layout for the requested dates to stdout.
func runOnce(ctx context.Context, conf *config.Config, store *feed.Store, flags flagConfig) error {
	if flags.eventsPath == "" {
		if err := store.Refresh(ctx); err != nil && len(store.Snapshot().Events) == 0 {
			return err
		}
	}

	loc := conf.Location()
	start := flags.start
	if start == "" {
		start = timeutil.CalendarDate(time.Now(), loc)
	}
	end := flags.end
	if end == "" {
		end = start
	}
	view := conf.ViewType()
	if flags.view != "" {
		v, err := timeutil.ParseViewType(flags.view)
		if err != nil {
			return err
		}
		view = v
	}

	layouts, err := layout.Generate(store.Snapshot().Events, layout.Request{
		StartCalendarDate: start,
		EndCalendarDate:   end,
		PrimaryCalendarID: conf.PrimaryCalendar,
		Location:          loc,
		View:              view,
		WeekStartOffset:   conf.WeekStartOffset(),
		Options:           conf.Layout,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(layouts)
}

// serve runs the HTTP server, plus the refresh scheduler when events come
// from ICS feeds, until ctx is canceled.
func serve(ctx context.Context, conf *config.Config, store *feed.Store, withFeeds bool) error {
	srv := web.NewServer(conf, store)

	if !withFeeds {
		return srv.ListenAndServe(ctx)
	}

	sch, err := feed.NewScheduler(store, conf.RefreshCron)
	if err != nil {
		return fmt.Errorf("refresh_cron %q: %w", conf.RefreshCron, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schDone := make(chan struct{})
	go func() {
		defer close(schDone)
		sch.Run(ctx)
	}()

	err = srv.ListenAndServe(ctx)
	cancel()
	<-schDone
	return err
}
