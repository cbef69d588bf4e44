// Package spotify fetches lightweight track metadata for Spotify links. The
// default path is the public oEmbed endpoint, which exposes only
// human-readable title/author text; when Web API credentials are configured
// the same metadata is fetched with exact fields instead.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"songmoment/internal/core"
)

const (
	requestTimeout   = 10 * time.Second
	maxRedirects     = 3
	trackURLBase     = "https://open.spotify.com/track/"
	defaultUserAgent = "songmoment/1.0"
)

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Client implements core.EmbedFetcher.
type Client struct {
	httpClient *http.Client
	config     *core.SpotifyConfig
	api        *spotify.Client
	logger     *zap.Logger
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
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

// EnableAPI authenticates with the Spotify Web API using the configured
// client credentials. Callers skip this when no credentials are set; the
// oEmbed path then remains the sole source of embed metadata.
func (c *Client) EnableAPI(ctx context.Context) error {
	if c.config.ClientID == "" || c.config.ClientSecret == "" {
		return errors.New("spotify client credentials not configured")
	}

	creds := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("spotify token request failed: %w", err)
	}

	c.api = spotify.New(spotifyauth.New().Client(ctx, token))
	c.logger.Info("Spotify Web API enabled")
	return nil
}

// FetchEmbed returns title/author metadata for a track id. Failures surface
// as errors; the resolver converts them to absence.
func (c *Client) FetchEmbed(ctx context.Context, trackID string) (*core.EmbedInfo, error) {
	if c.api != nil {
		info, err := c.fetchFromAPI(ctx, trackID)
		if err == nil {
			return info, nil
		}
		c.logger.Debug("Web API fetch failed, falling back to oEmbed",
			zap.String("trackID", trackID), zap.Error(err))
	}
	return c.fetchFromOEmbed(ctx, trackID)
}

func (c *Client) fetchFromAPI(ctx context.Context, trackID string) (*core.EmbedInfo, error) {
	track, err := c.api.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return nil, err
	}

	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return &core.EmbedInfo{
		Title:      track.Name,
		AuthorName: strings.Join(artists, " "),
	}, nil
}

func (c *Client) fetchFromOEmbed(ctx context.Context, trackID string) (*core.EmbedInfo, error) {
	reqURL := fmt.Sprintf("%s?url=%s&format=json",
		c.config.OEmbedURL, url.QueryEscape(trackURLBase+trackID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oEmbed endpoint returned status %d", resp.StatusCode)
	}

	var embed oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embed); err != nil {
		return nil, fmt.Errorf("failed to decode oEmbed response: %w", err)
	}

	return &core.EmbedInfo{
		Title:      strings.TrimSpace(embed.Title),
		AuthorName: strings.TrimSpace(embed.AuthorName),
	}, nil
}
