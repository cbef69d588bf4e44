package core

import (
	"time"
)

type Config struct {
	Catalog CatalogConfig
	Spotify SpotifyConfig
	LLM     LLMConfig
	Server  ServerConfig
	Journal JournalConfig
	Limits  LimitsConfig
	Log     LogConfig
}

type CatalogConfig struct {
	LookupURL  string
	SearchURL  string
	Storefront string
	MaxResults int
}

type SpotifyConfig struct {
	OEmbedURL    string
	ClientID     string
	ClientSecret string
}

type LLMConfig struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	Threshold     float64
	MaxCandidates int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AuthToken    string
}

type JournalConfig struct {
	Path string
}

type LimitsConfig struct {
	SharesPerMinute int
	DedupCapacity   int
}

type LogConfig struct {
	Level string
}

// MaxCandidates is the shortlist cap for ambiguous matches.
const MaxCandidates = 5

func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			LookupURL:  "https://itunes.apple.com/lookup",
			SearchURL:  "https://itunes.apple.com/search",
			Storefront: "us",
			MaxResults: 10,
		},
		Spotify: SpotifyConfig{
			OEmbedURL: "https://open.spotify.com/oembed",
		},
		LLM: LLMConfig{
			Provider:      "none",
			Threshold:     0.65,
			MaxCandidates: MaxCandidates,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Journal: JournalConfig{
			Path: "./songmoment.db",
		},
		Limits: LimitsConfig{
			SharesPerMinute: 12,
			DedupCapacity:   10000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
