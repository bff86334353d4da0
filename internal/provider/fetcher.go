package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxBodySize bounds how much of a page a fetcher reads.
const maxBodySize = 8 << 20

// FetchOptions customizes a single fetch.
type FetchOptions struct {
	Headers map[string]string
	Query   url.Values
}

// Response is a fully read fetch response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// FinalURL is the URL the body was served for, after redirects and
	// with any proxy indirection removed.
	FinalURL string
}

// Fetcher retrieves pages for scrapers.
type Fetcher interface {
	Fetch(ctx context.Context, target string, opts FetchOptions) (*Response, error)
}

// StandardFetcher fetches pages directly.
type StandardFetcher struct {
	client    *http.Client
	userAgent string
}

// NewStandardFetcher creates a direct fetcher.
func NewStandardFetcher(client *http.Client, userAgent string) *StandardFetcher {
	return &StandardFetcher{client: client, userAgent: userAgent}
}

// Fetch GETs target with the given headers and extra query parameters.
func (f *StandardFetcher) Fetch(ctx context.Context, target string, opts FetchOptions) (*Response, error) {
	u, err := withQuery(target, opts.Query)
	if err != nil {
		return nil, err
	}

	resp, err := do(ctx, f.client, u, f.userAgent, opts.Headers)
	if err != nil {
		return nil, err
	}
	resp.FinalURL = u
	return resp, nil
}

// ProxiedFetcher fetches pages through the outbound proxy service, which
// takes the real target as its "destination" query parameter.
type ProxiedFetcher struct {
	client    *http.Client
	proxyURL  string
	userAgent string
}

// NewProxiedFetcher creates a fetcher bound to proxyURL.
func NewProxiedFetcher(client *http.Client, proxyURL, userAgent string) *ProxiedFetcher {
	return &ProxiedFetcher{client: client, proxyURL: proxyURL, userAgent: userAgent}
}

// Fetch GETs target through the proxy service.
func (f *ProxiedFetcher) Fetch(ctx context.Context, target string, opts FetchOptions) (*Response, error) {
	u, err := withQuery(target, opts.Query)
	if err != nil {
		return nil, err
	}

	proxied, err := ProxyURL(f.proxyURL, u)
	if err != nil {
		return nil, err
	}

	resp, err := do(ctx, f.client, proxied, f.userAgent, opts.Headers)
	if err != nil {
		return nil, err
	}
	resp.FinalURL = u
	return resp, nil
}

// ProxyURL builds the proxy service URL that forwards to target.
func ProxyURL(proxyURL, target string) (string, error) {
	p, err := url.Parse(proxyURL)
	if err != nil {
		return "", fmt.Errorf("parsing proxy URL %q: %w", proxyURL, err)
	}
	q := p.Query()
	q.Set("destination", target)
	p.RawQuery = q.Encode()
	return p.String(), nil
}

func withQuery(target string, extra url.Values) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parsing URL %q: %w", target, err)
	}
	if len(extra) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func do(ctx context.Context, client *http.Client, target, userAgent string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	for k, v := range headers {
		if strings.HasPrefix(k, ":") { // skip HTTP/2 pseudo-headers
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: HTTP %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
