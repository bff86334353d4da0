// Package tmdb fetches title and release year metadata from The Movie Database.
package tmdb

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

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/media"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("tmdb: api key not configured")

// Metadata is the subset of TMDB details the cascade needs.
type Metadata struct {
	Title       string
	ReleaseYear int
}

// details mirrors the TMDB movie and tv detail payloads.
type details struct {
	Title        string `json:"title"` // movies
	Name         string `json:"name"`  // tv
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

// Client handles interactions with the TMDB API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a TMDB client from config.
func NewClient(cfg app.TMDBConfig) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// Details fetches the title and release year of a movie or tv show.
func (c *Client) Details(ctx context.Context, kind media.Kind, id string) (*Metadata, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, kind, url.PathEscape(id))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("tmdb %s details: %w", kind, err)
	}

	var d details
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("parsing tmdb %s details: %w", kind, err)
	}

	title := d.Title
	if title == "" {
		title = d.Name
	}

	date := d.ReleaseDate
	if date == "" {
		date = d.FirstAirDate
	}

	return &Metadata{Title: title, ReleaseYear: releaseYear(date)}, nil
}

// releaseYear takes the calendar year of a YYYY-MM-DD date, or 0.
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("language", "en-US")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TMDB API returned status: %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}
