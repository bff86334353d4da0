package provider

import (
	"context"

	"github.com/stupside/vidrelay/internal/media"
)

type fakeSource struct {
	meta  Meta
	out   *SourceOutput
	err   error
	calls int
}

func (f *fakeSource) Meta() Meta { return f.meta }

func (f *fakeSource) ScrapeMedia(_ context.Context, _ ScrapeContext, _ media.Descriptor) (*SourceOutput, error) {
	f.calls++
	return f.out, f.err
}

type fakeEmbed struct {
	meta Meta
	out  *EmbedOutput
	err  error
	urls []string
}

func (f *fakeEmbed) Meta() Meta { return f.meta }

func (f *fakeEmbed) ScrapeEmbed(_ context.Context, _ ScrapeContext, url string) (*EmbedOutput, error) {
	f.urls = append(f.urls, url)
	return f.out, f.err
}

type nopFetcher struct{}

func (nopFetcher) Fetch(context.Context, string, FetchOptions) (*Response, error) {
	return &Response{StatusCode: 200}, nil
}

func source(id string, rank int, out *SourceOutput, err error) *fakeSource {
	return &fakeSource{meta: Meta{ID: id, Name: id, Rank: rank, Kind: KindSource}, out: out, err: err}
}

func embed(id string, rank int, out *EmbedOutput, err error) *fakeEmbed {
	return &fakeEmbed{meta: Meta{ID: id, Name: id, Rank: rank, Kind: KindEmbed}, out: out, err: err}
}

func hls(url string) *Stream {
	return &Stream{Type: StreamHLS, Playlist: url}
}
