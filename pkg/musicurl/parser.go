// Package musicurl recognizes and decomposes music-service deep links.
package musicurl

import (
	"net/url"
	"regexp"
	"strings"
)

// Service identifies which music service a parsed URL belongs to.
type Service string

const (
	// ServiceAppleMusic is the native catalog service.
	ServiceAppleMusic Service = "apple_music"
	// ServiceSpotify is the cross-service provider, resolved via embed metadata.
	ServiceSpotify Service = "spotify"
)

// ParsedURL is the result of classifying a music deep link. ID semantics
// differ per service: an Apple Music song id (or, for album links without a
// ?i= parameter, an album id) or an alphanumeric Spotify track id.
type ParsedURL struct {
	Service Service
	ID      string
}

var (
	appleSongRegex    = regexp.MustCompile(`/song/[^/]+/(\d+)$`)
	appleAlbumRegex   = regexp.MustCompile(`/album/[^/]+/(\d+)$`)
	spotifyTrackRegex = regexp.MustCompile(`^/(?:intl-[a-zA-Z]+/)?track/([a-zA-Z0-9]+)`)

	// Matches candidate URLs embedded in free text; trailing punctuation is
	// trimmed before classification.
	urlRegex = regexp.MustCompile(`https?://\S+`)
)

// Parse classifies a raw string as a supported music URL. It returns nil for
// anything it does not recognize: unparseable input, unknown hostnames, or
// known hostnames with an unexpected path shape. It never panics and performs
// no network access.
func Parse(raw string) *ParsedURL {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	switch strings.ToLower(u.Hostname()) {
	case "music.apple.com", "geo.music.apple.com":
		return parseAppleMusic(u)
	case "open.spotify.com":
		return parseSpotify(u)
	}
	return nil
}

func parseAppleMusic(u *url.URL) *ParsedURL {
	// A ?i= parameter on an album-shaped link names a specific song and wins
	// over anything in the path.
	if id := u.Query().Get("i"); id != "" {
		return &ParsedURL{Service: ServiceAppleMusic, ID: id}
	}

	if m := appleSongRegex.FindStringSubmatch(u.Path); len(m) > 1 {
		return &ParsedURL{Service: ServiceAppleMusic, ID: m[1]}
	}

	// Album link without ?i=. The extracted id is an album id, tolerated
	// downstream by the catalog lookup's collection fallback.
	if m := appleAlbumRegex.FindStringSubmatch(u.Path); len(m) > 1 {
		return &ParsedURL{Service: ServiceAppleMusic, ID: m[1]}
	}

	return nil
}

func parseSpotify(u *url.URL) *ParsedURL {
	if m := spotifyTrackRegex.FindStringSubmatch(u.Path); len(m) > 1 {
		return &ParsedURL{Service: ServiceSpotify, ID: m[1]}
	}
	return nil
}

// ExtractFromText scans free text for an embedded music URL and returns the
// first substring that parses as a supported link, or "" when none is found.
func ExtractFromText(text string) string {
	for _, match := range urlRegex.FindAllString(text, -1) {
		candidate := strings.TrimRight(match, ".,!?;)")
		if Parse(candidate) != nil {
			return candidate
		}
	}
	return ""
}
