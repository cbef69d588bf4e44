package core

import (
	"context"

	"go.uber.org/zap"

	"songmoment/pkg/fuzzy"
)

// Resolver matches a cross-service track against the native catalog. The
// embed endpoint only exposes human-readable title/author text, so matching
// is heuristic: it short-circuits to an unambiguous result only on an exact
// title match or a literally singular search result, and otherwise surfaces
// the ambiguity to the caller instead of silently guessing.
type Resolver struct {
	embeds     EmbedFetcher
	search     CatalogSearcher
	ranker     CandidateRanker
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger
}

func NewResolver(embeds EmbedFetcher, search CatalogSearcher, ranker CandidateRanker, logger *zap.Logger) *Resolver {
	return &Resolver{
		embeds:     embeds,
		search:     search,
		ranker:     ranker,
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
	}
}

// Resolve looks up a cross-service track id and returns a uniform result.
// Every failure path degrades to an empty result; it never returns an error.
func (r *Resolver) Resolve(ctx context.Context, trackID string) LookupResult {
	embed, err := r.embeds.FetchEmbed(ctx, trackID)
	if err != nil {
		r.logger.Debug("Embed fetch failed", zap.String("trackID", trackID), zap.Error(err))
		return LookupResult{}
	}
	if embed == nil || embed.Title == "" {
		r.logger.Debug("Embed metadata carried no title", zap.String("trackID", trackID))
		return LookupResult{}
	}

	query := embed.Title
	if embed.AuthorName != "" {
		query = embed.Title + " " + embed.AuthorName
	}

	results, err := r.search.Search(ctx, query)
	if err != nil {
		r.logger.Debug("Catalog search failed", zap.String("query", query), zap.Error(err))
		return LookupResult{}
	}
	if len(results) == 0 {
		r.logger.Debug("Catalog search returned nothing", zap.String("query", query))
		return LookupResult{}
	}

	// Exact title match wins outright. The comparison is title-only; artist
	// is deliberately not consulted here.
	wantKey := r.normalizer.TitleKey(embed.Title)
	for i := range results {
		if r.normalizer.TitleKey(results[i].Title) == wantKey {
			r.logger.Debug("Exact title match",
				zap.String("title", results[i].Title),
				zap.String("artist", results[i].ArtistName))
			return LookupResult{Song: &results[i]}
		}
	}

	// A lone result is unambiguous by scarcity even without a title match.
	if len(results) == 1 {
		return LookupResult{Song: &results[0]}
	}

	candidates := results
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	candidates = r.rankCandidates(ctx, embed, candidates)

	r.logger.Debug("Ambiguous match",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)))

	return LookupResult{Song: &candidates[0], Candidates: candidates}
}

// rankCandidates applies the optional ranker to an ambiguous shortlist. The
// original search order is kept whenever the ranker is absent, fails, or
// returns something that is not a permutation of the input.
func (r *Resolver) rankCandidates(ctx context.Context, embed *EmbedInfo, candidates []Song) []Song {
	if r.ranker == nil {
		return candidates
	}

	ranked, err := r.ranker.Rank(ctx, embed.Title, embed.AuthorName, candidates)
	if err != nil {
		r.logger.Warn("Candidate ranking failed, keeping search order", zap.Error(err))
		return candidates
	}
	if len(ranked) != len(candidates) {
		r.logger.Warn("Ranker returned wrong candidate count, keeping search order",
			zap.Int("got", len(ranked)), zap.Int("want", len(candidates)))
		return candidates
	}
	return ranked
}
