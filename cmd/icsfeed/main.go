package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/soltauer/icalfeed/config"
	"github.com/soltauer/icalfeed/internal/color"
	"github.com/soltauer/icalfeed/internal/secret"
	"github.com/soltauer/icalfeed/internal/server"
	caldavsource "github.com/soltauer/icalfeed/internal/source/caldav"
	remotesource "github.com/soltauer/icalfeed/internal/source/remote"
)

func main() {
	configPath := flag.String("config", "icsfeed.yaml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	bindings := make([]secret.Binding, 0, len(cfg.Calendars))
	for _, cal := range cfg.Calendars {
		bindings = append(bindings, secret.Binding{
			EntityID: cal.EntityID,
			Secret:   cal.Secret,
		})
	}

	secrets, err := secret.New(bindings, secret.WithLogger(logger))
	if err != nil {
		logger.Error("failed to build secret store", "error", err)
		os.Exit(1)
	}

	rules := make([]color.Rule, 0, len(cfg.Colours))
	for _, r := range cfg.Colours {
		rules = append(rules, color.Rule{Pattern: r.Name, Color: r.Colour})
	}
	colors := color.NewTable(rules)

	feeds := make([]server.Feed, 0, len(cfg.Calendars))
	for _, cal := range cfg.Calendars {
		feed, err := buildFeed(cal, logger)
		if err != nil {
			logger.Error("failed to build calendar source",
				"error", err,
				"entity_id", cal.EntityID)
			os.Exit(1)
		}
		feeds = append(feeds, feed)
	}

	handler := server.New(cfg.URLPrefix, secrets, colors, feeds,
		server.WithLogger(logger),
		server.WithWindow(cfg.Window()))

	http.Handle(handler.Prefix(), handler)

	logger.Info("starting feed server",
		"listen", cfg.Listen,
		"prefix", handler.Prefix(),
		"calendars", len(feeds))

	if err := http.ListenAndServe(cfg.Listen, nil); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func buildFeed(cal config.CalendarConfig, logger *slog.Logger) (server.Feed, error) {
	feed := server.Feed{
		EntityID: cal.EntityID,
		Name:     cal.Name,
	}

	switch cal.Source.Type {
	case config.SourceTypeCalDAV:
		feed.Source = caldavsource.New(
			cal.Source.URL,
			cal.Source.Username,
			cal.Source.Password,
			cal.Source.CalendarPath,
			caldavsource.WithLogger(logger))

	default:
		src := remotesource.New(cal.Source.URL,
			remotesource.WithLogger(logger),
			remotesource.WithRefreshSchedule(cal.Source.Refresh))
		if err := src.Start(context.Background()); err != nil {
			return server.Feed{}, err
		}
		feed.Source = src
	}

	return feed, nil
}
