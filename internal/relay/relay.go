// Package relay streams an upstream resource back to the caller through the
// configured proxy service.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/metrics"
	"github.com/stupside/vidrelay/internal/provider"
)

// ErrMissingURL is returned by Open when no target URL was given.
var ErrMissingURL = errors.New("relay: url is required")

// Error is an upstream failure. StatusCode is zero when no response was
// received.
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("relay: upstream HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("relay: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// forwardedHeaders are the only upstream headers copied to the caller.
var forwardedHeaders = []string{"Content-Type", "Content-Length", "Content-Range"}

// Relay opens upstream streams through the proxy service.
type Relay struct {
	client    *http.Client
	proxyURL  string
	userAgent string
	timeout   time.Duration
}

// New creates a Relay. The client must not set its own Timeout, which
// would cut long streams short.
func New(cfg app.ProxyConfig, client *http.Client) *Relay {
	return &Relay{
		client:    client,
		proxyURL:  cfg.URL,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
}

// Response is an open upstream stream. It must be closed.
type Response struct {
	header http.Header
	body   io.ReadCloser
	cancel context.CancelFunc
}

// Open requests target through the proxy service with headers merged under
// a fixed User-Agent. The timeout bounds the wait for response headers
// only; once they arrive the body streams for as long as ctx lives.
func (r *Relay) Open(ctx context.Context, target string, headers map[string]string) (*Response, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		metrics.RelayRequests.WithLabelValues("invalid").Inc()
		return nil, ErrMissingURL
	}

	resp, cancel, err := r.open(ctx, target, headers)
	if err != nil {
		metrics.RelayRequests.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "relay failed", "url", target, "error", err)
		return nil, err
	}

	metrics.RelayRequests.WithLabelValues("ok").Inc()
	return &Response{header: resp.Header, body: resp.Body, cancel: cancel}, nil
}

func (r *Relay) open(ctx context.Context, target string, headers map[string]string) (*http.Response, context.CancelFunc, error) {
	u, err := provider.ProxyURL(r.proxyURL, target)
	if err != nil {
		return nil, nil, &Error{Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(r.timeout, cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, nil, &Error{Err: fmt.Errorf("creating request: %w", err)}
	}
	for k, v := range headers {
		if k == "" || strings.HasPrefix(k, ":") {
			continue
		}
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	inTime := timer.Stop()
	if err != nil {
		cancel()
		if !inTime {
			err = fmt.Errorf("no response within %s: %w", r.timeout, err)
		}
		return nil, nil, &Error{Err: err}
	}
	if !inTime {
		resp.Body.Close()
		cancel()
		return nil, nil, &Error{Err: fmt.Errorf("no response within %s", r.timeout)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		return nil, nil, &Error{StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	return resp, cancel, nil
}

// Header returns the upstream headers that are forwarded to the caller.
func (r *Response) Header() http.Header {
	h := make(http.Header, len(forwardedHeaders))
	for _, k := range forwardedHeaders {
		if v := r.header.Get(k); v != "" {
			h.Set(k, v)
		}
	}
	return h
}

// Stream writes the forwarded headers and pipes the body to w, flushing
// after every chunk. It stops when the upstream ends or w fails.
func (r *Response) Stream(w http.ResponseWriter) (int64, error) {
	for k, vs := range r.Header() {
		w.Header()[k] = vs
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, err := r.body.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				// caller went away
				return written, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("reading upstream: %w", err)
		}
	}
}

// Close releases the upstream connection.
func (r *Response) Close() error {
	err := r.body.Close()
	r.cancel()
	return err
}
