// Package llm optionally reorders ambiguous candidate shortlists using a
// configured language-model provider. The pipeline works identically without
// it; on any provider failure the original search order is kept.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"songmoment/internal/core"
	"songmoment/pkg/fuzzy"
)

// completionClient is the minimal surface each backend implements.
type completionClient interface {
	complete(ctx context.Context, system, user string) (string, error)
}

type pick struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Confidence float64 `json:"confidence"`
}

type rankResponse struct {
	Picks []pick `json:"picks"`
}

// Provider implements core.CandidateRanker over a completion backend.
type Provider struct {
	config     *core.LLMConfig
	logger     *zap.Logger
	client     completionClient
	normalizer *fuzzy.Normalizer
}

func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var client completionClient
	var err error

	switch config.Provider {
	case "openai":
		client, err = newOpenAIClient(config, logger)
	case "anthropic":
		client, err = newAnthropicClient(config, logger)
	case "ollama":
		client, err = newOllamaClient(config, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return &Provider{
		config:     config,
		logger:     logger,
		client:     client,
		normalizer: fuzzy.NewNormalizer(),
	}, nil
}

const rankSystemPrompt = `You are a music matcher. Given the title and artist of a shared track and a numbered list of catalog candidates, order the candidates from most to least likely to be the same recording.

Return JSON in this exact format:
{"picks": [{"title": "Candidate Title", "artist": "Candidate Artist", "confidence": 0.9}]}

Rules:
- confidence: 0.0-1.0 (higher = more certain)
- Only reference candidates from the list
- Include every candidate exactly once
- Respond with valid JSON only`

// Rank reorders the shortlist. The return value is always a permutation of
// the input: picks the model omits or mangles keep their original relative
// order at the tail.
func (p *Provider) Rank(ctx context.Context, title, artistHint string, candidates []core.Song) ([]core.Song, error) {
	if len(candidates) < 2 {
		return candidates, nil
	}

	content, err := p.client.complete(ctx, rankSystemPrompt, p.buildUserPrompt(title, artistHint, candidates))
	if err != nil {
		return nil, err
	}

	var response rankResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		p.logger.Debug("Failed to parse ranking response",
			zap.Error(err), zap.String("content", content))
		return nil, fmt.Errorf("failed to parse ranking response: %w", err)
	}

	return p.applyPicks(response.Picks, candidates), nil
}

func (p *Provider) buildUserPrompt(title, artistHint string, candidates []core.Song) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shared track: %q", title)
	if artistHint != "" {
		fmt.Fprintf(&b, " by %q", artistHint)
	}
	b.WriteString("\nCandidates:\n")
	for i, song := range candidates {
		fmt.Fprintf(&b, "%d. %q by %q (album %q)\n", i+1, song.Title, song.ArtistName, song.AlbumName)
	}
	return b.String()
}

// applyPicks maps the model's title/artist picks back onto the candidate
// list via fuzzy similarity, skipping picks below the confidence threshold.
func (p *Provider) applyPicks(picks []pick, candidates []core.Song) []core.Song {
	used := make([]bool, len(candidates))
	ordered := make([]core.Song, 0, len(candidates))

	for _, pk := range picks {
		if pk.Confidence < p.config.Threshold {
			continue
		}
		if idx := p.bestMatch(pk, candidates, used); idx >= 0 {
			used[idx] = true
			ordered = append(ordered, candidates[idx])
		}
	}

	for i, song := range candidates {
		if !used[i] {
			ordered = append(ordered, song)
		}
	}
	return ordered
}

func (p *Provider) bestMatch(pk pick, candidates []core.Song, used []bool) int {
	pickTitle := p.normalizer.NormalizeTitle(pk.Title)
	pickArtist := p.normalizer.NormalizeArtist(pk.Artist)

	best, bestScore := -1, 0.0
	for i, song := range candidates {
		if used[i] {
			continue
		}
		score := p.normalizer.CalculateSimilarity(pickTitle, p.normalizer.NormalizeTitle(song.Title))
		if pickArtist != "" {
			score = (score + p.normalizer.CalculateSimilarity(pickArtist, p.normalizer.NormalizeArtist(song.ArtistName))) / 2
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	const minMatchScore = 0.5
	if bestScore < minMatchScore {
		return -1
	}
	return best
}
