// Package itunes provides the native catalog adapter: id lookup and
// free-text song search against the public iTunes endpoints.
package itunes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"songmoment/internal/core"
)

const (
	requestTimeout   = 10 * time.Second
	maxRedirects     = 3
	defaultUserAgent = "songmoment/1.0"
)

// ErrNotFound distinguishes an empty catalog answer from a failed call, so
// tests and callers can tell "no data" from "call failed".
var ErrNotFound = errors.New("no matching catalog entry")

type lookupResponse struct {
	ResultCount int          `json:"resultCount"`
	Results     []resultItem `json:"results"`
}

type resultItem struct {
	WrapperType    string `json:"wrapperType"`
	Kind           string `json:"kind"`
	TrackID        int64  `json:"trackId"`
	TrackName      string `json:"trackName"`
	CollectionID   int64  `json:"collectionId"`
	CollectionName string `json:"collectionName"`
	ArtistName     string `json:"artistName"`
	ArtworkURL100  string `json:"artworkUrl100"`
	TrackTimeMs    int    `json:"trackTimeMillis"`
}

func (r resultItem) isSong() bool {
	return r.TrackID != 0 && r.TrackName != ""
}

// Client talks to the iTunes lookup and search endpoints.
type Client struct {
	httpClient *http.Client
	config     *core.CatalogConfig
	logger     *zap.Logger
}

func NewClient(config *core.CatalogConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		config: config,
		logger: logger,
	}
}

// Lookup fetches canonical song metadata by native catalog id. When the id
// names an album rather than a song (the parser's weak fallback case), the
// album's first track is preferred and the collection fields are used only
// when the envelope carries no track at all.
func (c *Client) Lookup(ctx context.Context, id string) (*core.Song, error) {
	reqURL := fmt.Sprintf("%s?id=%s&entity=song&country=%s",
		c.config.LookupURL, url.QueryEscape(id), url.QueryEscape(c.config.Storefront))

	var envelope lookupResponse
	if err := c.getJSON(ctx, reqURL, &envelope); err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	if envelope.ResultCount == 0 || len(envelope.Results) == 0 {
		return nil, ErrNotFound
	}

	first := envelope.Results[0]
	if first.isSong() {
		return songFromItem(first), nil
	}

	// Album envelope: the collection comes first, its songs follow.
	for _, item := range envelope.Results[1:] {
		if item.isSong() {
			c.logger.Debug("Album id resolved to its first track",
				zap.String("albumID", id), zap.Int64("trackID", item.TrackID))
			return songFromItem(item), nil
		}
	}

	if first.CollectionID == 0 || first.CollectionName == "" {
		return nil, ErrNotFound
	}
	collectionID := strconv.FormatInt(first.CollectionID, 10)
	return &core.Song{
		ID:           collectionID,
		Title:        first.CollectionName,
		ArtistName:   first.ArtistName,
		AlbumName:    first.CollectionName,
		ArtworkURL:   upsizeArtwork(first.ArtworkURL100),
		AppleMusicID: collectionID,
	}, nil
}

// Search implements the catalog search capability: an ordered candidate list
// for a free-text query, empty on no matches.
func (c *Client) Search(ctx context.Context, query string) ([]core.Song, error) {
	params := url.Values{}
	params.Set("term", query)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("country", c.config.Storefront)
	params.Set("limit", strconv.Itoa(c.config.MaxResults))

	var envelope lookupResponse
	if err := c.getJSON(ctx, c.config.SearchURL+"?"+params.Encode(), &envelope); err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}

	songs := make([]core.Song, 0, len(envelope.Results))
	for _, item := range envelope.Results {
		if !item.isSong() {
			continue
		}
		songs = append(songs, *songFromItem(item))
	}
	return songs, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func songFromItem(item resultItem) *core.Song {
	id := strconv.FormatInt(item.TrackID, 10)
	return &core.Song{
		ID:           id,
		Title:        item.TrackName,
		ArtistName:   item.ArtistName,
		AlbumName:    item.CollectionName,
		ArtworkURL:   upsizeArtwork(item.ArtworkURL100),
		AppleMusicID: id,
		DurationMs:   item.TrackTimeMs,
	}
}

// upsizeArtwork swaps the thumbnail size token for a larger rendition. This
// is a string substitution, not a resize; the CDN serves both sizes.
func upsizeArtwork(artworkURL string) string {
	if artworkURL == "" {
		return ""
	}
	return strings.Replace(artworkURL, "100x100", "600x600", 1)
}
