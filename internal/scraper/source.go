package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/media"
	"github.com/stupside/vidrelay/internal/provider"
)

// Source is a data-driven media page scraper configured from YAML.
type Source struct {
	cfg       app.SourceConfig
	browser   app.BrowserConfig
	userAgent string
	embeds    *embedIndex
}

// NewSource creates a Source from a SourceConfig.
func NewSource(cfg app.SourceConfig, browser app.BrowserConfig, userAgent string, embeds *embedIndex) *Source {
	return &Source{cfg: cfg, browser: browser, userAgent: userAgent, embeds: embeds}
}

// Meta describes the source.
func (s *Source) Meta() provider.Meta {
	return provider.Meta{ID: s.cfg.ID, Name: s.cfg.Name, Rank: s.cfg.Rank, Kind: provider.KindSource}
}

// ScrapeMedia loads the media page for d and reports the stream it plays
// directly, plus any iframes that belong to a known embed.
func (s *Source) ScrapeMedia(ctx context.Context, sc provider.ScrapeContext, d media.Descriptor) (*provider.SourceOutput, error) {
	target := s.pageURL(d)

	slog.DebugContext(ctx, "scraping source page", "source", s.cfg.ID, "url", target)

	if s.cfg.Browser {
		c, err := captureStream(ctx, s.browser, s.userAgent, target, s.cfg.Capture)
		if err != nil {
			return nil, fmt.Errorf("capturing %s: %w", target, err)
		}
		return &provider.SourceOutput{Stream: c.stream()}, nil
	}

	p, err := fetchPage(ctx, sc, s.cfg.Direct, target)
	if err != nil {
		return nil, err
	}

	out := &provider.SourceOutput{Stream: p.stream}
	for _, src := range p.iframes {
		id, ok := s.embeds.match(src)
		if !ok {
			slog.DebugContext(ctx, "ignoring iframe with no matching embed", "source", s.cfg.ID, "url", src)
			continue
		}
		out.Embeds = append(out.Embeds, provider.Embed{EmbedID: id, URL: src})
	}

	if out.Stream == nil && len(out.Embeds) == 0 {
		return nil, fmt.Errorf("%s: %w", target, provider.ErrNoStream)
	}
	return out, nil
}

// pageURL expands the movie or episode template for d.
func (s *Source) pageURL(d media.Descriptor) string {
	tmpl := s.cfg.Templates.Movie
	if d.IsEpisode() {
		tmpl = s.cfg.Templates.Episode
	}
	return expandTemplate(tmpl, d)
}

// expandTemplate fills {tmdbId}, {season}, {episode}, {title} and {year}.
func expandTemplate(tmpl string, d media.Descriptor) string {
	var season, episode, year string
	if d.Season != nil {
		season = strconv.Itoa(*d.Season)
	}
	if d.Episode != nil {
		episode = strconv.Itoa(*d.Episode)
	}
	if d.ReleaseYear > 0 {
		year = strconv.Itoa(d.ReleaseYear)
	}
	return strings.NewReplacer(
		"{tmdbId}", url.PathEscape(d.TMDBID),
		"{season}", season,
		"{episode}", episode,
		"{title}", url.PathEscape(d.Title),
		"{year}", year,
	).Replace(tmpl)
}

// fetchPage fetches and parses target, through the proxy unless direct.
func fetchPage(ctx context.Context, sc provider.ScrapeContext, direct bool, target string) (*page, error) {
	fetcher := sc.ProxiedFetcher
	if direct {
		fetcher = sc.Fetcher
	}

	resp, err := fetcher.Fetch(ctx, target, provider.FetchOptions{
		Headers: map[string]string{"Referer": origin(target) + "/"},
	})
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(resp.FinalURL)
	if err != nil {
		base, _ = url.Parse(target)
	}

	p, err := parsePage(base, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}
	return p, nil
}

// origin returns scheme://host of rawURL, or "" if it has none.
func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// stream converts a browser capture into a provider stream.
func (c captured) stream() *provider.Stream {
	switch ct := media.DetectFromRawURL(c.URL); ct {
	case media.MP4, media.WebM, media.MKV:
		label := ""
		if m := qualityPattern.FindStringSubmatch(c.URL); m != nil {
			label = m[1] + "p"
		}
		return &provider.Stream{
			Type:      provider.StreamFile,
			Qualities: map[string]provider.File{label: {Type: fileType(ct, ""), URL: c.URL}},
			Headers:   c.Headers,
		}
	default:
		// Captures without a recognizable extension were matched by MIME
		// or substring and are playlists in practice.
		return &provider.Stream{Type: provider.StreamHLS, Playlist: c.URL, Headers: c.Headers}
	}
}
