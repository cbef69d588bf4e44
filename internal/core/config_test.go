package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Catalog.LookupURL == "" || cfg.Catalog.SearchURL == "" {
		t.Error("catalog endpoints must have defaults")
	}
	if cfg.Catalog.Storefront != "us" {
		t.Errorf("storefront = %q, want us", cfg.Catalog.Storefront)
	}
	if cfg.Spotify.OEmbedURL == "" {
		t.Error("oEmbed endpoint must have a default")
	}
	if cfg.LLM.Provider != "none" {
		t.Errorf("LLM provider defaults to none, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxCandidates != MaxCandidates {
		t.Errorf("LLM max candidates = %d, want %d", cfg.LLM.MaxCandidates, MaxCandidates)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Limits.DedupCapacity <= 0 || cfg.Limits.SharesPerMinute <= 0 {
		t.Error("limits must default to positive values")
	}
}
