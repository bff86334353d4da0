package provider

import (
	"errors"
	"fmt"
)

// Builder assembles a Library.
type Builder struct {
	fetcher        Fetcher
	proxiedFetcher Fetcher
	sources        []SourceScraper
	embeds         []EmbedScraper
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithFetcher sets the fetcher used for direct requests.
func (b *Builder) WithFetcher(f Fetcher) *Builder {
	b.fetcher = f
	return b
}

// WithProxiedFetcher sets the fetcher used for requests that must go
// through the proxy service.
func (b *Builder) WithProxiedFetcher(f Fetcher) *Builder {
	b.proxiedFetcher = f
	return b
}

// WithSources registers source scrapers.
func (b *Builder) WithSources(s ...SourceScraper) *Builder {
	b.sources = append(b.sources, s...)
	return b
}

// WithEmbeds registers embed scrapers.
func (b *Builder) WithEmbeds(e ...EmbedScraper) *Builder {
	b.embeds = append(b.embeds, e...)
	return b
}

// Build validates the configuration and returns the Library.
func (b *Builder) Build() (*Library, error) {
	if b.fetcher == nil {
		return nil, errors.New("provider: fetcher is required")
	}
	proxied := b.proxiedFetcher
	if proxied == nil {
		proxied = b.fetcher
	}

	lib := &Library{
		sc:      ScrapeContext{Fetcher: b.fetcher, ProxiedFetcher: proxied},
		sources: make(map[string]SourceScraper, len(b.sources)),
		embeds:  make(map[string]EmbedScraper, len(b.embeds)),
	}

	for _, s := range b.sources {
		id := s.Meta().ID
		if _, dup := lib.sources[id]; dup {
			return nil, fmt.Errorf("provider: duplicate source %q", id)
		}
		lib.sources[id] = s
	}
	for _, e := range b.embeds {
		id := e.Meta().ID
		if _, dup := lib.embeds[id]; dup {
			return nil, fmt.Errorf("provider: duplicate embed %q", id)
		}
		lib.embeds[id] = e
	}

	return lib, nil
}
