package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/provider"
	"github.com/stupside/vidrelay/internal/resolve"
	"github.com/stupside/vidrelay/internal/scraper"
	"github.com/stupside/vidrelay/internal/tmdb"
)

// newClientManager returns a manager whose client is the in-process
// provider library built from the configured scrapers.
func newClientManager(cfg *app.Config) *provider.Manager {
	return provider.NewManager(func(ctx context.Context, proxyURL string) (provider.Client, error) {
		reg, err := scraper.NewRegistryFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("building scrapers: %w", err)
		}

		httpClient := &http.Client{Timeout: cfg.Proxy.Timeout}
		lib, err := provider.NewBuilder().
			WithFetcher(provider.NewStandardFetcher(httpClient, cfg.Proxy.UserAgent)).
			WithProxiedFetcher(provider.NewProxiedFetcher(httpClient, proxyURL, cfg.Proxy.UserAgent)).
			WithSources(reg.Sources()...).
			WithEmbeds(reg.Embeds()...).
			Build()
		if err != nil {
			return nil, fmt.Errorf("building provider library: %w", err)
		}
		return lib, nil
	})
}

func newResolver(cfg *app.Config, clients *provider.Manager) *resolve.Resolver {
	return resolve.NewResolver(cfg, tmdb.NewClient(cfg.TMDB), clients)
}
