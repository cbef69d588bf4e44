// Package main provides the SongMoment service entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"songmoment/internal/core"
	"songmoment/internal/flood"
	httpserver "songmoment/internal/http"
	"songmoment/internal/itunes"
	"songmoment/internal/journal"
	"songmoment/internal/llm"
	"songmoment/internal/spotify"
	"songmoment/internal/store"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "songmoment",
	Short: "SongMoment - music link resolution and journaling companion",
	Long: `SongMoment resolves shared Apple Music and Spotify links to canonical song
metadata and turns inbound shares into journal moment prefills.`,
	RunE: runSongMoment,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("catalog-storefront", "us", "catalog storefront country code")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID (optional, enables Web API metadata)")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("llm-provider", "none", "LLM provider (openai, anthropic, ollama, none)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model name")
	rootCmd.PersistentFlags().String("llm-api-key", "", "LLM API key")
	rootCmd.PersistentFlags().String("journal-path", "./songmoment.db", "journal sqlite database path")
	rootCmd.PersistentFlags().String("server-host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().String("auth-token", "", "bearer token protecting the API routes")
	rootCmd.PersistentFlags().Int("shares-per-minute", 12, "per-device share rate limit")
	rootCmd.PersistentFlags().Bool("session-active", true, "start with an active journaling session")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("SONGMOMENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	if storefront := viper.GetString("catalog-storefront"); storefront != "" {
		cfg.Catalog.Storefront = storefront
	}

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")

	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
	if threshold := viper.GetFloat64("llm-threshold"); threshold != 0 {
		cfg.LLM.Threshold = threshold
	}

	if path := viper.GetString("journal-path"); path != "" {
		cfg.Journal.Path = path
	}

	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.AuthToken = viper.GetString("auth-token")

	if limit := viper.GetInt("shares-per-minute"); limit != 0 {
		cfg.Limits.SharesPerMinute = limit
	}

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

const noneProvider = "none"

func runSongMoment(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting SongMoment",
		zap.String("version", "1.0.0"),
		zap.String("storefront", config.Catalog.Storefront),
		zap.String("llm_provider", config.LLM.Provider))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	catalog := itunes.NewClient(&config.Catalog, logger.Named("itunes"))

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if config.Spotify.ClientID != "" && config.Spotify.ClientSecret != "" {
		if err := spotifyClient.EnableAPI(ctx); err != nil {
			return fmt.Errorf("failed to enable Spotify Web API: %w", err)
		}
	}

	var ranker core.CandidateRanker
	if config.LLM.Provider != noneProvider && config.LLM.Provider != "" {
		provider, err := llm.NewProvider(&config.LLM, logger.Named("llm"))
		if err != nil {
			return fmt.Errorf("failed to create LLM provider: %w", err)
		}
		ranker = provider
	}

	resolver := core.NewResolver(spotifyClient, catalog, ranker, logger.Named("resolver"))
	locator := core.NewSongLocator(catalog, resolver, logger.Named("locator"))

	session := core.NewSessionState(viper.GetBool("session-active"))
	controller := core.NewIngestController(locator, session, logger.Named("ingest"))

	journalStore, err := journal.Open(config.Journal.Path, logger.Named("journal"))
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer journalStore.Close()

	gate := flood.New(config.Limits.SharesPerMinute)
	defer gate.Stop()

	seen := store.NewSeenStore(config.Limits.DedupCapacity)

	httpServer := httpserver.NewServer(&config.Server, httpserver.Deps{
		Controller: controller,
		Locator:    locator,
		Session:    session,
		Journal:    journalStore,
		Gate:       gate,
		Seen:       seen,
	}, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		for {
			select {
			case <-gCtx.Done():
				return nil
			case outcome := <-controller.Outcomes():
				logger.Info("Share processed",
					zap.String("kind", string(outcome.Kind)))
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if count, err := journalStore.Count(gCtx); err == nil {
					httpServer.GetMetrics().JournalSize.Set(float64(count))
				}
			}
		}
	})

	logger.Info("SongMoment started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("SongMoment stopped with error", zap.Error(err))
		return err
	}

	logger.Info("SongMoment stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.Catalog.LookupURL == "" || config.Catalog.SearchURL == "" {
		return fmt.Errorf("catalog endpoints are required")
	}

	if (config.Spotify.ClientID == "") != (config.Spotify.ClientSecret == "") {
		return fmt.Errorf("spotify client ID and secret must be set together")
	}

	if config.LLM.Provider != noneProvider && config.LLM.Provider != "" {
		if config.LLM.APIKey == "" && config.LLM.Provider != "ollama" {
			return fmt.Errorf("LLM API key is required for provider: %s", config.LLM.Provider)
		}
	}

	return nil
}
