package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/provider"
)

// Registry holds the configured source and embed scrapers.
type Registry struct {
	sources []*Source
	embeds  []*Embed
	index   *embedIndex
}

// NewRegistryFromConfig creates a registry from the scraper configs.
func NewRegistryFromConfig(cfg *app.Config) (*Registry, error) {
	r := &Registry{index: &embedIndex{}}

	for _, ec := range cfg.Embeds {
		e := NewEmbed(ec, cfg.Browser, cfg.Proxy.UserAgent)
		r.embeds = append(r.embeds, e)
		for _, d := range ec.Domains {
			if err := r.index.add(d, ec.ID); err != nil {
				return nil, fmt.Errorf("embed %q: %w", ec.ID, err)
			}
		}
	}

	for _, sc := range cfg.Sources {
		r.sources = append(r.sources, NewSource(sc, cfg.Browser, cfg.Proxy.UserAgent, r.index))
	}

	return r, nil
}

// Sources returns the source scrapers as provider.SourceScraper values.
func (r *Registry) Sources() []provider.SourceScraper {
	out := make([]provider.SourceScraper, len(r.sources))
	for i, s := range r.sources {
		out[i] = s
	}
	return out
}

// Embeds returns the embed scrapers as provider.EmbedScraper values.
func (r *Registry) Embeds() []provider.EmbedScraper {
	out := make([]provider.EmbedScraper, len(r.embeds))
	for i, e := range r.embeds {
		out[i] = e
	}
	return out
}

// embedIndex routes iframe URLs to embed ids by host.
type embedIndex struct {
	domains []domainEntry
}

type domainEntry struct {
	domain  string
	embedID string
}

func (x *embedIndex) add(domain, embedID string) error {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "www."))
	if domain == "" {
		return fmt.Errorf("empty domain")
	}
	for _, d := range x.domains {
		if d.domain == domain && d.embedID != embedID {
			return fmt.Errorf("domain %q already claimed by embed %q", domain, d.embedID)
		}
	}
	x.domains = append(x.domains, domainEntry{domain: domain, embedID: embedID})
	return nil
}

// match returns the embed id whose domain equals the URL's host or is a
// parent domain of it.
func (x *embedIndex) match(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	for _, d := range x.domains {
		if host == d.domain || strings.HasSuffix(host, "."+d.domain) {
			return d.embedID, true
		}
	}
	return "", false
}
