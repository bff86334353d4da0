// Package resolve turns a media query into a playable stream by running the
// resolution cascade against the provider library, and normalizes the
// library's raw streams into the response shape.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/media"
	"github.com/stupside/vidrelay/internal/metrics"
	"github.com/stupside/vidrelay/internal/provider"
	"github.com/stupside/vidrelay/internal/tmdb"
)

// Outcome is the result of one resolution. Result is nil when no stream
// was found; Fallbacks is always set.
type Outcome struct {
	Result    *media.Result
	Fallbacks []string
}

// Found reports whether a stream was resolved.
func (o *Outcome) Found() bool { return o.Result != nil }

// MetadataFetcher looks up display metadata for a TMDB id.
type MetadataFetcher interface {
	Details(ctx context.Context, kind media.Kind, id string) (*tmdb.Metadata, error)
}

// ClientProvider hands out the shared provider client, or nil when none
// could be initialized.
type ClientProvider interface {
	Get(ctx context.Context, proxyURL string) provider.Client
}

// Resolver runs the resolution cascade.
type Resolver struct {
	cascade  app.CascadeConfig
	proxyURL string
	metadata MetadataFetcher
	clients  ClientProvider
}

// NewResolver creates a Resolver.
func NewResolver(cfg *app.Config, metadata MetadataFetcher, clients ClientProvider) *Resolver {
	return &Resolver{
		cascade:  cfg.Cascade,
		proxyURL: cfg.Proxy.URL,
		metadata: metadata,
		clients:  clients,
	}
}

// Resolve validates q and runs the cascade: the library's aggregate scrape
// raced against the aggregate timeout, then each configured source in
// order, stopping at the first stream with at least one quality. Only a
// validation failure is returned as an error; everything else degrades to
// an Outcome without a Result.
func (r *Resolver) Resolve(ctx context.Context, q media.Query) (*Outcome, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	// The cascade runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	d := media.Descriptor{Query: q}
	if md := r.lookup(ctx, q); md != nil {
		d.Title = md.Title
		d.ReleaseYear = md.ReleaseYear
	}

	client := r.clients.Get(ctx, r.proxyURL)
	if client == nil {
		slog.WarnContext(ctx, "provider client unavailable, returning fallbacks", "query", q.String())
		metrics.CascadeOutcomes.WithLabelValues(metrics.PhaseFallback, "unavailable").Inc()
		return &Outcome{Fallbacks: r.fallbacks(true)}, nil
	}

	if res := r.aggregate(ctx, client, d); res != nil {
		return r.found(ctx, res), nil
	}

	for _, id := range r.cascade.Sources {
		if res := r.source(ctx, client, id, d); res != nil {
			return r.found(ctx, res), nil
		}
	}

	slog.InfoContext(ctx, "no stream found, returning fallbacks", "query", q.String())
	metrics.CascadeOutcomes.WithLabelValues(metrics.PhaseFallback, "exhausted").Inc()
	return &Outcome{Fallbacks: r.fallbacks(false)}, nil
}

func (r *Resolver) lookup(ctx context.Context, q media.Query) *tmdb.Metadata {
	md, err := r.metadata.Details(ctx, q.Kind, q.TMDBID)
	switch {
	case errors.Is(err, tmdb.ErrNotConfigured):
		slog.DebugContext(ctx, "tmdb lookup skipped", "reason", err)
		return nil
	case err != nil:
		slog.WarnContext(ctx, "tmdb lookup failed, continuing without metadata", "query", q.String(), "error", err)
		metrics.TMDBErrors.Inc()
		return nil
	}
	return md
}

type runResult struct {
	out *provider.RunOutput
	err error
}

// aggregate races the library's RunAll against the aggregate timeout. On
// timeout the call's context is cancelled and its late result dropped.
func (r *Resolver) aggregate(ctx context.Context, client provider.Client, d media.Descriptor) *media.Result {
	actx, cancel := context.WithTimeout(ctx, r.cascade.AggregateTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan runResult, 1)
	go func() {
		out, err := client.RunAll(actx, d)
		done <- runResult{out: out, err: err}
	}()

	var res runResult
	select {
	case res = <-done:
	case <-actx.Done():
		slog.WarnContext(ctx, "aggregate scrape timed out", "after", time.Since(start).Round(time.Millisecond))
		return nil
	}

	switch {
	case res.err != nil:
		slog.WarnContext(ctx, "aggregate scrape failed", "error", res.err)
		return nil
	case res.out == nil || res.out.Stream == nil:
		slog.InfoContext(ctx, "aggregate scrape found nothing")
		return nil
	}

	result := r.usable(ctx, res.out.SourceID, res.out.Stream, d)
	if result == nil {
		return nil
	}
	result.SourceProvider = res.out.SourceID
	metrics.CascadeOutcomes.WithLabelValues(metrics.PhaseAggregate, res.out.SourceID).Inc()
	return result
}

// source scrapes one source. A direct stream is used if usable; otherwise
// only the first embed candidate is tried.
func (r *Resolver) source(ctx context.Context, client provider.Client, id string, d media.Descriptor) *media.Result {
	out, err := client.RunSource(ctx, id, d)
	if err != nil {
		slog.WarnContext(ctx, "source failed", "source", id, "error", err)
		metrics.SourceFailures.WithLabelValues(id).Inc()
		return nil
	}

	if out == nil {
		slog.InfoContext(ctx, "source returned nothing", "source", id)
		return nil
	}

	if out.Stream != nil {
		result := r.usable(ctx, id, out.Stream, d)
		if result == nil {
			metrics.SourceFailures.WithLabelValues(id).Inc()
			return nil
		}
		result.SourceProvider = id
		metrics.CascadeOutcomes.WithLabelValues(metrics.PhaseSource, id).Inc()
		return result
	}

	if len(out.Embeds) == 0 {
		slog.InfoContext(ctx, "source returned nothing", "source", id)
		return nil
	}

	embed := out.Embeds[0]
	eout, err := client.RunEmbed(ctx, embed.EmbedID, embed.URL)
	if err != nil {
		slog.WarnContext(ctx, "embed failed", "source", id, "embed", embed.EmbedID, "url", embed.URL, "error", err)
		metrics.SourceFailures.WithLabelValues(embed.EmbedID).Inc()
		return nil
	}
	if eout == nil || eout.Stream == nil {
		slog.InfoContext(ctx, "embed returned no stream", "source", id, "embed", embed.EmbedID)
		return nil
	}

	result := r.usable(ctx, embed.EmbedID, eout.Stream, d)
	if result == nil {
		metrics.SourceFailures.WithLabelValues(embed.EmbedID).Inc()
		return nil
	}
	result.SourceProvider = id + " → " + embed.EmbedID
	metrics.CascadeOutcomes.WithLabelValues(metrics.PhaseEmbed, id).Inc()
	return result
}

// usable normalizes stream and returns nil when it has no quality entries.
func (r *Resolver) usable(ctx context.Context, scraperID string, stream *provider.Stream, d media.Descriptor) *media.Result {
	result := Normalize(stream, stream.Captions)
	if result == nil || len(result.Qualities) == 0 {
		slog.InfoContext(ctx, "skipping stream without playable qualities", "scraper", scraperID, "type", stream.Type)
		return nil
	}
	result.Title = d.Title
	return result
}

func (r *Resolver) found(ctx context.Context, res *media.Result) *Outcome {
	slog.InfoContext(ctx, "stream resolved", "provider", res.SourceProvider, "type", res.Type, "qualities", len(res.Qualities))
	return &Outcome{Result: res, Fallbacks: r.fallbacks(false)}
}

// Fallbacks returns the fallback player domains offered when no stream
// is found.
func (r *Resolver) Fallbacks() []string {
	return r.fallbacks(false)
}

func (r *Resolver) fallbacks(unavailable bool) []string {
	out := slices.Clone(r.cascade.Fallbacks)
	if unavailable {
		out = append(out, r.cascade.UnavailableFallbacks...)
	}
	return out
}
