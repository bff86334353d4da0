package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/provider"
)

// Embed scrapes embedded player pages served from its configured domains.
type Embed struct {
	cfg       app.EmbedConfig
	browser   app.BrowserConfig
	userAgent string
}

// NewEmbed creates an Embed from an EmbedConfig.
func NewEmbed(cfg app.EmbedConfig, browser app.BrowserConfig, userAgent string) *Embed {
	return &Embed{cfg: cfg, browser: browser, userAgent: userAgent}
}

// Meta describes the embed.
func (e *Embed) Meta() provider.Meta {
	return provider.Meta{ID: e.cfg.ID, Name: e.cfg.Name, Rank: e.cfg.Rank, Kind: provider.KindEmbed}
}

// ScrapeEmbed reads the stream from the player markup, falling back to a
// headless capture when the player builds it from script.
func (e *Embed) ScrapeEmbed(ctx context.Context, sc provider.ScrapeContext, pageURL string) (*provider.EmbedOutput, error) {
	var errs []error

	p, err := fetchPage(ctx, sc, e.cfg.Direct, pageURL)
	switch {
	case err != nil:
		errs = append(errs, err)
	case p.stream != nil:
		p.stream.Headers = playerHeaders(pageURL)
		return &provider.EmbedOutput{Stream: p.stream}, nil
	}

	if e.cfg.Browser {
		slog.DebugContext(ctx, "embed markup had no stream, capturing in browser", "embed", e.cfg.ID, "url", pageURL)
		c, err := captureStream(ctx, e.browser, e.userAgent, pageURL, e.cfg.Capture)
		if err == nil {
			if c.Headers == nil {
				c.Headers = playerHeaders(pageURL)
			}
			return &provider.EmbedOutput{Stream: c.stream()}, nil
		}
		errs = append(errs, err)
	}

	return nil, fmt.Errorf("embed %q at %s: %w", e.cfg.ID, pageURL, errors.Join(append(errs, provider.ErrNoStream)...))
}

// playerHeaders are the headers stream hosts expect from their own player.
func playerHeaders(pageURL string) map[string]string {
	o := origin(pageURL)
	if o == "" {
		return nil
	}
	return map[string]string{"Referer": o + "/", "Origin": o}
}
