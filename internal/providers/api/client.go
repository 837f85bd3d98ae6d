package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/justchokingaround/vidsource/internal/config"
	providerhttp "github.com/justchokingaround/vidsource/internal/providers/http"
)

// Client talks to the source aggregation API
type Client struct {
	baseURL    string
	httpClient *providerhttp.Client
	debug      bool
	logger     *slog.Logger
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	var apiCfg config.APIConfig
	var debug bool
	if cfg != nil {
		apiCfg = cfg.API
		debug = cfg.Advanced.Debug
	}
	if apiCfg.BaseURL == "" {
		apiCfg.BaseURL = "https://pstream.vercel.app"
	}

	httpClient := providerhttp.NewClient(providerhttp.ClientConfig{
		Timeout:    apiCfg.Timeout,
		MaxRetries: apiCfg.MaxRetries,
		Accept:     "application/json",
		Debug:      debug,
		Logger:     logger,
	})

	return &Client{
		baseURL:    apiCfg.BaseURL,
		httpClient: httpClient,
		debug:      debug,
		logger:     logger,
	}
}

// BaseURL returns the aggregator root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetMovieSources retrieves sources for a movie
func (c *Client) GetMovieSources(ctx context.Context, movieID string) (*SourcesResponse, error) {
	endpoint := fmt.Sprintf("/movie/%s", url.PathEscape(movieID))

	var response SourcesResponse
	if err := c.get(ctx, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("get movie sources failed: %w", err)
	}
	return &response, nil
}

// GetTVSources retrieves sources for one episode of a series
func (c *Client) GetTVSources(ctx context.Context, seriesID string, season, episode int) (*SourcesResponse, error) {
	endpoint := fmt.Sprintf("/tv/%s/%d/%d", url.PathEscape(seriesID), season, episode)

	var response SourcesResponse
	if err := c.get(ctx, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("get tv sources failed: %w", err)
	}
	return &response, nil
}

// GetAnimeSources retrieves sources for one anime episode in the dub or sub track
func (c *Client) GetAnimeSources(ctx context.Context, anilistID string, episode int, dubbed bool) (*SourcesResponse, error) {
	endpoint := fmt.Sprintf("/anime/%s/%s", url.PathEscape(anilistID), strconv.Itoa(episode))
	audio := "sub"
	if dubbed {
		audio = "dub"
	}

	var response SourcesResponse
	if err := c.get(ctx, endpoint, map[string]string{"type": audio}, &response); err != nil {
		return nil, fmt.Errorf("get anime sources failed: %w", err)
	}
	return &response, nil
}

// get performs a GET request to the API and decodes the JSON body into result
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, result any) error {
	fullURL := c.baseURL + endpoint

	if len(params) > 0 {
		u, err := url.Parse(fullURL)
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}

		q := u.Query()
		for key, value := range params {
			q.Set(key, value)
		}
		u.RawQuery = q.Encode()
		fullURL = u.String()
	}

	if c.debug {
		c.logger.Debug("aggregator request", "url", fullURL)
	}

	resp, err := c.httpClient.Get(ctx, fullURL, nil)
	if err != nil {
		if resp != nil {
			var errorResp ErrorResponse
			if jsonErr := json.Unmarshal(resp.Body(), &errorResp); jsonErr == nil && errorResp.Error != "" {
				return fmt.Errorf("API error (%d): %s", resp.StatusCode(), errorResp.Error)
			}
			return fmt.Errorf("API error: HTTP %d", resp.StatusCode())
		}
		return fmt.Errorf("HTTP request failed (is the aggregator reachable at %s?): %w", c.baseURL, err)
	}

	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
