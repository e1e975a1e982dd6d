package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brahimtod123-lgtm/Souhail-torrent/api"
	"github.com/brahimtod123-lgtm/Souhail-torrent/config"
	"github.com/brahimtod123-lgtm/Souhail-torrent/handlers"
	"github.com/brahimtod123-lgtm/Souhail-torrent/internal/app"
	"github.com/brahimtod123-lgtm/Souhail-torrent/internal/logging"
	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

var version = "1.0.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "souhail",
		Short:        "Debrid-backed stream addon",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to settings.json")

	rootCmd.AddCommand(serveCommand(&configPath))
	rootCmd.AddCommand(streamsCommand(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("SOUHAIL_CONFIG"); p != "" {
		return p
	}
	return filepath.Join("cache", "settings.json")
}

// loadSettings reads the settings file (creating defaults if missing) and
// applies environment overrides.
func loadSettings(configPath string) (config.Settings, error) {
	settings, err := config.NewManager(configPath).Load()
	if err != nil {
		return config.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	config.ApplyEnv(&settings)
	return settings, nil
}

func serveCommand(configPath *string) *cobra.Command {
	var portOverride int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the addon HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(*configPath)
			if err != nil {
				return err
			}
			if portOverride > 0 {
				settings.Server.Port = portOverride
			}

			logger, closer, err := logging.New(settings.Log, os.Stdout)
			if err != nil {
				return err
			}
			defer closer.Close()

			return serve(cmd.Context(), settings, logger)
		},
	}
	cmd.Flags().IntVar(&portOverride, "port", 0, "override server port from config")
	return cmd
}

func serve(ctx context.Context, settings config.Settings, logger zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := app.New(settings, reg, logger)

	router := api.NewRouter()
	callTimeout := time.Duration(settings.Resolution.PhaseTimeoutSec) * time.Second
	api.Register(router,
		handlers.NewAddonHandler(a.Streams, settings.Addon, logger),
		handlers.NewDebridHandler(a.Resolver, callTimeout, logger),
		reg,
	)

	addr := net.JoinHostPort(settings.Server.Host, strconv.Itoa(settings.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("manifest", "http://"+addr+"/manifest.json").Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

func streamsCommand(configPath *string) *cobra.Command {
	var (
		mediaType string
		season    int
		episode   int
		title     string
	)

	cmd := &cobra.Command{
		Use:   "streams <imdb-id>",
		Short: "Run the pipeline once and print the ranked streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(*configPath)
			if err != nil {
				return err
			}
			logger, closer, err := logging.New(settings.Log, os.Stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			query := models.StreamQuery{
				IMDBID:    args[0],
				MediaType: mediaType,
				Title:     title,
				Season:    season,
				Episode:   episode,
			}
			if season > 0 || episode > 0 {
				query.MediaType = "series"
			}

			a := app.New(settings, prometheus.NewRegistry(), logger)
			list := a.Streams.BuildStreams(cmd.Context(), query)
			fmt.Fprintln(cmd.OutOrStdout(), renderStreams(list))
			return nil
		},
	}
	cmd.Flags().StringVar(&mediaType, "type", "movie", "media type (movie or series)")
	cmd.Flags().IntVar(&season, "season", 0, "season number for series")
	cmd.Flags().IntVar(&episode, "episode", 0, "episode number for series")
	cmd.Flags().StringVar(&title, "title", "", "search title, skips the metadata lookup")
	return cmd
}
