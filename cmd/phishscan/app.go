package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stoik/phish-verdict/internal/adapters/dnsauth"
	"github.com/stoik/phish-verdict/internal/adapters/feedsource"
	"github.com/stoik/phish-verdict/internal/adapters/fetcher"
	"github.com/stoik/phish-verdict/internal/adapters/rdap"
	"github.com/stoik/phish-verdict/internal/adapters/safebrowsing"
	"github.com/stoik/phish-verdict/internal/adapters/storage"
	"github.com/stoik/phish-verdict/internal/adapters/tlscert"
	"github.com/stoik/phish-verdict/internal/application"
	"github.com/stoik/phish-verdict/internal/config"
	"github.com/stoik/phish-verdict/internal/domain/detection"
	"github.com/stoik/phish-verdict/internal/domain/email"
	"github.com/stoik/phish-verdict/internal/feed"
	"github.com/stoik/phish-verdict/internal/ports"
	"github.com/stoik/phish-verdict/internal/redirect"
)

// app holds the wired components shared by every command
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	feed    *feed.Cache
	service *application.ScanService
	store   ports.Storage
}

// buildApp wires adapters into the engine, composer and scan service.
// History storage is opened only when withHistory is set.
func buildApp(ctx context.Context, withHistory bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(rootCmd.ErrOrStderr(), cfg.LogLevel)

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	feedCache := feed.New(feedsource.New(nil), cfg.FeedURL, cfg.FeedRefreshInterval, logger)
	loadCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	if err := feedCache.Load(loadCtx); err != nil {
		// Blocklist falls back to the remote threat list until a refresh succeeds
		logger.Warn("initial feed load failed", "error", err)
	}
	cancel()

	whois := rdap.New(rdap.WithLogger(logger))
	sources := detection.Sources{
		Feed: feedCache,
		Threats: safebrowsing.New(cfg.SafeBrowsingAPIKey,
			safebrowsing.WithRateLimit(cfg.SafeBrowsingRPS),
			safebrowsing.WithLogger(logger)),
		Whois: whois,
		Certs: tlscert.New(tlscert.WithLogger(logger)),
	}

	engineOpts := []detection.EngineOption{
		detection.WithTimeouts(cfg.OperationTimeout, cfg.ScanTimeout),
		detection.WithLogger(logger),
	}
	if cfg.FetchPages {
		pages, err := fetcher.New(cfg.FetcherBackend, cfg.OperationTimeout, logger)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, detection.WithPageFetcher(pages))
	}
	engine := detection.NewEngine(detection.StandardDetectors(rules.URL, sources), engineOpts...)

	tracer := redirect.New(redirect.NewHTTPClient(cfg.OperationTimeout), cfg.OperationTimeout, logger,
		redirect.WithChainTimeout(cfg.ScanTimeout))

	composer, err := email.NewComposer(rules.Email, engine,
		email.WithTracer(tracer),
		email.WithWhois(whois),
		email.WithDNS(dnsauth.New(cfg.DNSResolver, cfg.OperationTimeout)),
		email.WithOperationTimeout(cfg.OperationTimeout),
		email.WithScanTimeout(cfg.ScanTimeout),
		email.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("email rules: %w", err)
	}

	var store ports.Storage
	if withHistory {
		s, err := storage.NewSQLStore(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		logger.Info("history store ready", "driver", cfg.DatabaseDriver)
		store = s
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		feed:    feedCache,
		service: application.NewScanService(engine, composer, tracer, store, logger),
		store:   store,
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close history store", "error", err)
		}
	}
}
