package artwork

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.rawg.io/api/games"
	defaultUserAgent   = "opldock/1.0"
	defaultHTTPTimeout = 20 * time.Second
)

// ClientConfig describes the RAWG search client configuration.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// Client wraps the RAWG.io games API. Only the search endpoint is used;
// background images double as cover-art candidates.
type Client struct {
	apiKey    string
	userAgent string
	baseURL   *url.URL
	http      *http.Client
}

// NewClient creates a Client from the supplied configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("rawg: api key is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("rawg: parse base url: %w", err)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		apiKey:    apiKey,
		userAgent: userAgent,
		baseURL:   baseURL,
		http:      client,
	}, nil
}

type rawgGame struct {
	Name                      string `json:"name"`
	Slug                      string `json:"slug"`
	Website                   string `json:"website"`
	BackgroundImage           string `json:"background_image"`
	BackgroundImageAdditional string `json:"background_image_additional"`
}

type rawgSearchResponse struct {
	Results []rawgGame `json:"results"`
}

// Search queries RAWG and flattens each hit's background images into
// deduplicated candidates, capped at maxResults.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Candidate, error) {
	if c == nil {
		return nil, errors.New("rawg: client is nil")
	}
	endpoint := *c.baseURL
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("search", query)
	params.Set("page_size", strconv.Itoa(maxResults))
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("rawg: build search request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rawg: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rawg: search failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload rawgSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("rawg: decode search response: %w", err)
	}

	candidates := make([]Candidate, 0, maxResults)
	seen := make(map[string]struct{})
	for _, game := range payload.Results {
		name := strings.TrimSpace(game.Name)
		if name == "" {
			name = "RAWG Game"
		}
		sourcePage := game.Website
		if sourcePage == "" {
			sourcePage = "https://rawg.io/games/" + game.Slug
		}
		for _, imageURL := range []string{game.BackgroundImage, game.BackgroundImageAdditional} {
			image := strings.TrimSpace(imageURL)
			if !strings.HasPrefix(image, "http://") && !strings.HasPrefix(image, "https://") {
				continue
			}
			if _, dup := seen[image]; dup {
				continue
			}
			seen[image] = struct{}{}
			candidates = append(candidates, Candidate{
				CandidateID:  len(candidates) + 1,
				Title:        name + " (RAWG)",
				ImageURL:     image,
				ThumbnailURL: image,
				SourcePage:   sourcePage,
			})
			if len(candidates) >= maxResults {
				return candidates, nil
			}
		}
	}
	return candidates, nil
}
