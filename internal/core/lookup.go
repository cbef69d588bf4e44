package core

import (
	"context"

	"go.uber.org/zap"

	"songmoment/pkg/musicurl"
)

// SongLocator is the single public entry point for resolving a music URL to
// a song. It is the only place that knows both services exist.
type SongLocator struct {
	catalog  CatalogLookup
	resolver *Resolver
	logger   *zap.Logger
}

func NewSongLocator(catalog CatalogLookup, resolver *Resolver, logger *zap.Logger) *SongLocator {
	return &SongLocator{
		catalog:  catalog,
		resolver: resolver,
		logger:   logger,
	}
}

// LookupSongFromURL parses a URL, dispatches to the appropriate adapter, and
// returns a uniform result. An unrecognized URL or a failed lookup yields an
// empty result, which is a valid terminal outcome rather than an error.
func (l *SongLocator) LookupSongFromURL(ctx context.Context, rawURL string) LookupResult {
	parsed := musicurl.Parse(rawURL)
	if parsed == nil {
		return LookupResult{}
	}

	switch parsed.Service {
	case musicurl.ServiceAppleMusic:
		song, err := l.catalog.Lookup(ctx, parsed.ID)
		if err != nil {
			l.logger.Debug("Catalog lookup failed",
				zap.String("id", parsed.ID), zap.Error(err))
			return LookupResult{}
		}
		return LookupResult{Song: song}

	case musicurl.ServiceSpotify:
		return l.resolver.Resolve(ctx, parsed.ID)
	}

	return LookupResult{}
}
