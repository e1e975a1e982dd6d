// Package app wires settings into the stream pipeline.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/brahimtod123-lgtm/Souhail-torrent/config"
	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
	"github.com/brahimtod123-lgtm/Souhail-torrent/services/debrid"
	"github.com/brahimtod123-lgtm/Souhail-torrent/services/metadata"
	"github.com/brahimtod123-lgtm/Souhail-torrent/services/streams"
	"github.com/brahimtod123-lgtm/Souhail-torrent/utils/filter"
	"github.com/brahimtod123-lgtm/Souhail-torrent/utils/parsett"
)

// App holds the long-lived services of one process.
type App struct {
	Settings config.Settings
	Search   *debrid.SearchService
	Resolver *debrid.Resolver
	Titles   *metadata.CinemetaClient
	Streams  *streams.Service
	Metrics  *streams.Metrics
}

// New builds the pipeline. A missing or malformed debrid key is not an
// error: the resolver is disabled and every stream is served torrent-only.
func New(settings config.Settings, reg prometheus.Registerer, logger zerolog.Logger) *App {
	client := &http.Client{Timeout: time.Duration(settings.Search.LookupTimeoutSec) * time.Second}

	scrapers := BuildScrapers(settings.TorrentScrapers, client, logger)
	search := debrid.NewSearchService(scrapers, debrid.SearchConfig{
		MaxCandidates:     settings.Search.MaxCandidates,
		LowWaterMark:      settings.Search.LowWaterMark,
		MaxQueryAttempts:  settings.Search.MaxQueryAttempts,
		LookupTimeout:     time.Duration(settings.Search.LookupTimeoutSec) * time.Second,
		CacheTTL:          time.Duration(settings.Search.CacheTTLMinutes) * time.Minute,
		SyntheticFallback: settings.Search.SyntheticFallback,
	}, logger)

	resolver := BuildResolver(settings, logger)
	if !resolver.Enabled() {
		logger.Warn().Str("provider", settings.Debrid.Provider).Msg("debrid credential missing or malformed, serving torrent-only streams")
	}

	titles := metadata.NewCinemetaClient(
		settings.Metadata.CinemetaURL,
		nil,
		time.Duration(settings.Metadata.CacheTTLHours)*time.Hour,
		logger,
	)

	metrics := streams.NewMetrics(reg)
	svc := streams.NewService(streams.Config{
		MaxCandidates: settings.Search.MaxCandidates,
		MaxResolve:    settings.Resolution.MaxResolve,
		Concurrency:   settings.Resolution.Concurrency,
		PhaseTimeout:  time.Duration(settings.Resolution.PhaseTimeoutSec) * time.Second,
		MaxStreams:    settings.Resolution.MaxStreams,
		AddonName:     settings.Addon.StreamName,
		Filter: filter.Options{
			ExcludeBadSources: settings.Filtering.ExcludeBadSources,
			MinQuality:        models.ParseQuality(settings.Filtering.MinQuality),
			MaxSizeGB:         settings.Filtering.MaxSizeGB,
			FilterOutTerms:    settings.Filtering.FilterOutTerms,
		},
	}, streams.Dependencies{
		Source:   search,
		Resolver: resolver,
		Titles:   titles,
		Parser:   parsett.NewParser(time.Hour),
		Metrics:  metrics,
	}, logger)

	logger.Info().
		Strs("scrapers", search.Scrapers()).
		Str("provider", resolver.ProviderName()).
		Int("max_resolve", settings.Resolution.MaxResolve).
		Int("concurrency", settings.Resolution.Concurrency).
		Msg("stream pipeline ready")

	return &App{
		Settings: settings,
		Search:   search,
		Resolver: resolver,
		Titles:   titles,
		Streams:  svc,
		Metrics:  metrics,
	}
}

// BuildResolver looks the configured provider up in the registry.
func BuildResolver(settings config.Settings, logger zerolog.Logger) *debrid.Resolver {
	cfg := debrid.ResolverConfig{
		CallTimeout:  time.Duration(settings.Resolution.CallTimeoutSec) * time.Second,
		PollInterval: time.Duration(settings.Resolution.PollIntervalMs) * time.Millisecond,
		PollAttempts: uint(max(settings.Resolution.PollAttempts, 0)),
	}

	opts := []debrid.ClientOption{debrid.WithLogger(logger)}
	if settings.Debrid.BaseURL != "" {
		opts = append(opts, debrid.WithBaseURL(settings.Debrid.BaseURL))
	}
	provider, ok := debrid.GetProvider(settings.Debrid.Provider, settings.Debrid.APIKey, opts...)
	if !ok {
		logger.Error().
			Str("provider", settings.Debrid.Provider).
			Strs("available", debrid.ProviderNames()).
			Msg("unknown debrid provider")
		provider = nil
	}
	return debrid.NewResolver(provider, settings.Debrid.APIKey, cfg, logger)
}

// BuildScrapers instantiates the enabled scrapers in configuration order.
// Unknown types are logged and skipped.
func BuildScrapers(configs []config.TorrentScraperConfig, client *http.Client, logger zerolog.Logger) []debrid.Scraper {
	var scrapers []debrid.Scraper
	for _, sc := range configs {
		if !sc.Enabled {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(sc.Type)) {
		case "torrentio":
			scrapers = append(scrapers, debrid.NewTorrentioScraper(client, sc.URL, sc.Options, sc.Name, logger))
		case "torrentapi":
			scrapers = append(scrapers, debrid.NewTorrentAPIScraper(sc.URL, client, logger))
		case "bitsearch":
			scrapers = append(scrapers, debrid.NewBitSearchScraper(sc.URL, client, logger))
		case "jackett":
			if strings.TrimSpace(sc.URL) == "" || strings.TrimSpace(sc.APIKey) == "" {
				logger.Warn().Str("name", sc.Name).Msg("jackett scraper needs url and apiKey, skipping")
				continue
			}
			scrapers = append(scrapers, debrid.NewJackettScraper(sc.URL, sc.APIKey, sc.Name, client, logger))
		case "zilean":
			if strings.TrimSpace(sc.URL) == "" {
				logger.Warn().Str("name", sc.Name).Msg("zilean scraper needs url, skipping")
				continue
			}
			scrapers = append(scrapers, debrid.NewZileanScraper(sc.URL, sc.Name, client, logger))
		default:
			logger.Warn().Str("name", sc.Name).Str("type", sc.Type).Msg("unknown scraper type, skipping")
		}
	}
	return scrapers
}
