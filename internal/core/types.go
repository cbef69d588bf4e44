// Package core holds the song lookup pipeline: the cross-service resolver,
// the lookup orchestrator, and the share-intent ingestion controller, plus
// the types and interfaces the adapter packages implement.
package core

import (
	"context"
	"encoding/json"
)

// Song is the canonical track representation used everywhere downstream.
// AppleMusicID is always the id usable for attachment and search, even when
// the song originated from a different service.
type Song struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ArtistName   string `json:"artistName"`
	AlbumName    string `json:"albumName,omitempty"`
	ArtworkURL   string `json:"artworkUrl,omitempty"`
	AppleMusicID string `json:"appleMusicId"`
	DurationMs   int    `json:"durationMs,omitempty"`
}

// LookupResult is the orchestrator's output contract. Song is nil when
// nothing could be resolved. Candidates is non-empty only for an ambiguous
// match, in which case Candidates[0] equals *Song.
type LookupResult struct {
	Song       *Song  `json:"song,omitempty"`
	Candidates []Song `json:"candidates,omitempty"`
}

// Resolved reports whether the lookup produced a usable song.
func (r LookupResult) Resolved() bool {
	return r.Song != nil
}

// Ambiguous reports whether the caller must offer a disambiguation choice.
func (r LookupResult) Ambiguous() bool {
	return len(r.Candidates) > 1
}

// Attachment is one file shared alongside an intent.
type Attachment struct {
	MIMEType  string `json:"mimeType"`
	LocalPath string `json:"localPath"`
}

// ShareIntent is one inbound share event: an optional explicit URL, optional
// free text possibly containing a URL, and optional file attachments.
type ShareIntent struct {
	URL         string       `json:"url,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	DeviceID    string       `json:"deviceId,omitempty"`
}

// ImagePath returns the local path of the first image attachment, or "".
func (s ShareIntent) ImagePath() string {
	for _, a := range s.Attachments {
		if len(a.MIMEType) >= 6 && a.MIMEType[:6] == "image/" {
			return a.LocalPath
		}
	}
	return ""
}

// OutcomeKind enumerates the terminal states of one ingestion pass.
type OutcomeKind string

const (
	OutcomePhotoPrefill       OutcomeKind = "photo-prefill"
	OutcomeSongPrefill        OutcomeKind = "song-prefill"
	OutcomeSongWithCandidates OutcomeKind = "song-prefill-with-candidates"
	OutcomeFallbackSearch     OutcomeKind = "fallback-to-search"
	OutcomeDiscarded          OutcomeKind = "discarded"
)

// Outcome is what the ingestion controller emits across its boundary.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	Song        *Song       `json:"song,omitempty"`
	Candidates  []Song      `json:"candidates,omitempty"`
	PhotoPath   string      `json:"photoPath,omitempty"`
	FallbackURL string      `json:"fallbackUrl,omitempty"`
}

// Fields flattens the outcome into the string map consumed by UI prefill
// screens. Candidates travel as a JSON-serialized array.
func (o Outcome) Fields() map[string]string {
	fields := map[string]string{"kind": string(o.Kind)}

	if o.Song != nil {
		fields["id"] = o.Song.ID
		fields["title"] = o.Song.Title
		fields["artistName"] = o.Song.ArtistName
		fields["albumName"] = o.Song.AlbumName
		fields["artworkUrl"] = o.Song.ArtworkURL
		fields["appleMusicId"] = o.Song.AppleMusicID
	}
	if len(o.Candidates) > 0 {
		if data, err := json.Marshal(o.Candidates); err == nil {
			fields["candidates"] = string(data)
		}
	}
	if o.PhotoPath != "" {
		fields["photoPath"] = o.PhotoPath
	}
	if o.FallbackURL != "" {
		fields["fallbackUrl"] = o.FallbackURL
	}

	return fields
}

// CatalogLookup fetches canonical song metadata by native catalog id.
// Implementations classify failures (ErrNotFound vs transport errors); the
// pipeline converts both to absence.
type CatalogLookup interface {
	Lookup(ctx context.Context, id string) (*Song, error)
}

// CatalogSearcher returns an ordered candidate list for a free-text query,
// empty on no matches.
type CatalogSearcher interface {
	Search(ctx context.Context, query string) ([]Song, error)
}

// EmbedInfo is the lightweight metadata a cross-service embed endpoint
// exposes: human-readable text only, no stable cross-reference id.
type EmbedInfo struct {
	Title      string
	AuthorName string
}

// EmbedFetcher fetches embed metadata for a cross-service track id.
type EmbedFetcher interface {
	FetchEmbed(ctx context.Context, trackID string) (*EmbedInfo, error)
}

// CandidateRanker optionally reorders an ambiguous candidate shortlist.
// Implementations must return a permutation of the input.
type CandidateRanker interface {
	Rank(ctx context.Context, title, artistHint string, candidates []Song) ([]Song, error)
}

// DedupStore suppresses duplicate share-intent deliveries at the service
// boundary.
type DedupStore interface {
	Has(fingerprint string) bool
	Add(fingerprint string)
}
