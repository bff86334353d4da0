// Package provider is the stream-provider library behind the resolution
// cascade: a ranked set of source scrapers (pages that yield a stream or
// embed candidates) and embed scrapers (player pages that yield a stream),
// reached through a standard and a proxied fetcher.
package provider

import (
	"context"
	"errors"

	"github.com/stupside/vidrelay/internal/media"
)

var (
	// ErrNotFound is returned for an unknown source or embed id.
	ErrNotFound = errors.New("provider: scraper not found")
	// ErrNoStream is returned by scrapers that found nothing usable.
	ErrNoStream = errors.New("provider: no stream found")
)

// StreamType tags the shape of a raw Stream.
type StreamType string

const (
	// StreamHLS carries a single playlist URL.
	StreamHLS StreamType = "hls"
	// StreamFile carries one file URL per quality label.
	StreamFile StreamType = "file"
)

// Stream is a stream as reported by a scraper. Every field is optional and
// consumers must tolerate absence.
type Stream struct {
	Type      StreamType
	Playlist  string          // StreamHLS
	Qualities map[string]File // StreamFile, keyed by quality label
	Captions  []Caption
	Headers   map[string]string
}

// File is a single progressive file rendition.
type File struct {
	Type string
	URL  string
}

// Caption is a subtitle track as reported by a scraper. Scrapers fill
// whichever of Label/Language and URL/Src the page exposes.
type Caption struct {
	Label    string
	Language string
	URL      string
	Src      string
}

// Embed is a player page found by a source, to be handed to an embed scraper.
type Embed struct {
	EmbedID string
	URL     string
}

// SourceOutput is the result of one source scrape: a direct stream, embed
// candidates, or both.
type SourceOutput struct {
	Stream *Stream
	Embeds []Embed
}

// EmbedOutput is the result of one embed scrape.
type EmbedOutput struct {
	Stream *Stream
}

// RunOutput is the first stream found by RunAll.
type RunOutput struct {
	SourceID string
	EmbedID  string
	Stream   *Stream
}

// Kind distinguishes sources from embeds in Meta.
type Kind string

const (
	KindSource Kind = "source"
	KindEmbed  Kind = "embed"
)

// Meta describes a registered scraper.
type Meta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
	Kind Kind   `json:"kind"`
}

// Client is the provider library surface used by the cascade.
type Client interface {
	// RunAll scrapes every source in rank order and returns the first
	// stream found, or nil when none was.
	RunAll(ctx context.Context, d media.Descriptor) (*RunOutput, error)
	// RunSource scrapes a single source.
	RunSource(ctx context.Context, sourceID string, d media.Descriptor) (*SourceOutput, error)
	// RunEmbed scrapes a single embed URL.
	RunEmbed(ctx context.Context, embedID, url string) (*EmbedOutput, error)
	ListSources() []Meta
	ListEmbeds() []Meta
}

// ScrapeContext carries the fetchers available to scrapers.
type ScrapeContext struct {
	Fetcher        Fetcher
	ProxiedFetcher Fetcher
}

// SourceScraper scrapes a media page into a stream or embed candidates.
type SourceScraper interface {
	Meta() Meta
	ScrapeMedia(ctx context.Context, sc ScrapeContext, d media.Descriptor) (*SourceOutput, error)
}

// EmbedScraper scrapes an embedded player page into a stream.
type EmbedScraper interface {
	Meta() Meta
	ScrapeEmbed(ctx context.Context, sc ScrapeContext, url string) (*EmbedOutput, error)
}
