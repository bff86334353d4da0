package provider

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/stupside/vidrelay/internal/media"
)

// Library is the in-process provider library. Build it with a Builder.
type Library struct {
	sc      ScrapeContext
	sources map[string]SourceScraper
	embeds  map[string]EmbedScraper
}

var _ Client = (*Library)(nil)

// ListSources returns source metadata, highest rank first.
func (l *Library) ListSources() []Meta {
	metas := make([]Meta, 0, len(l.sources))
	for _, s := range l.sources {
		metas = append(metas, s.Meta())
	}
	return sortByRank(metas)
}

// ListEmbeds returns embed metadata, highest rank first.
func (l *Library) ListEmbeds() []Meta {
	metas := make([]Meta, 0, len(l.embeds))
	for _, e := range l.embeds {
		metas = append(metas, e.Meta())
	}
	return sortByRank(metas)
}

// RunSource scrapes one source by id.
func (l *Library) RunSource(ctx context.Context, sourceID string, d media.Descriptor) (*SourceOutput, error) {
	s, ok := l.sources[sourceID]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", sourceID, ErrNotFound)
	}

	out, err := s.ScrapeMedia(ctx, l.sc, d)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", sourceID, err)
	}
	if out == nil {
		return &SourceOutput{}, nil
	}
	out.Stream = checkStream(ctx, sourceID, out.Stream)
	return out, nil
}

// RunEmbed scrapes one embed URL by embed id.
func (l *Library) RunEmbed(ctx context.Context, embedID, url string) (*EmbedOutput, error) {
	e, ok := l.embeds[embedID]
	if !ok {
		return nil, fmt.Errorf("embed %q: %w", embedID, ErrNotFound)
	}

	out, err := e.ScrapeEmbed(ctx, l.sc, url)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", embedID, err)
	}
	if out == nil {
		return &EmbedOutput{}, nil
	}
	out.Stream = checkStream(ctx, embedID, out.Stream)
	return out, nil
}

// RunAll tries every source by rank. A source's direct stream wins;
// otherwise each of its embeds is tried in order. Returns nil when nothing
// was found and an error only when ctx ends.
func (l *Library) RunAll(ctx context.Context, d media.Descriptor) (*RunOutput, error) {
	for _, meta := range l.ListSources() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := l.RunSource(ctx, meta.ID, d)
		if err != nil {
			slog.DebugContext(ctx, "runAll: source failed", "source", meta.ID, "error", err)
			continue
		}

		if out.Stream != nil {
			return &RunOutput{SourceID: meta.ID, Stream: out.Stream}, nil
		}

		for _, embed := range out.Embeds {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			eout, err := l.RunEmbed(ctx, embed.EmbedID, embed.URL)
			if err != nil {
				slog.DebugContext(ctx, "runAll: embed failed", "source", meta.ID, "embed", embed.EmbedID, "error", err)
				continue
			}
			if eout.Stream != nil {
				return &RunOutput{SourceID: meta.ID, EmbedID: embed.EmbedID, Stream: eout.Stream}, nil
			}
		}
	}
	return nil, ctx.Err()
}

// checkStream drops streams whose tag is not one the library knows.
func checkStream(ctx context.Context, scraperID string, s *Stream) *Stream {
	if s == nil {
		return nil
	}
	switch s.Type {
	case StreamHLS, StreamFile:
		return s
	default:
		slog.WarnContext(ctx, "dropping stream with unknown type", "scraper", scraperID, "type", s.Type)
		return nil
	}
}

func sortByRank(metas []Meta) []Meta {
	slices.SortFunc(metas, func(a, b Meta) int {
		if c := cmp.Compare(b.Rank, a.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return metas
}
