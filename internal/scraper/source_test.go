package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/media"
	"github.com/stupside/vidrelay/internal/provider"
)

// pageFetcher serves canned bodies by URL and records requests.
type pageFetcher struct {
	pages    map[string]string
	requests []string
	headers  []map[string]string
}

func (f *pageFetcher) Fetch(_ context.Context, target string, opts provider.FetchOptions) (*provider.Response, error) {
	f.requests = append(f.requests, target)
	f.headers = append(f.headers, opts.Headers)
	body, ok := f.pages[target]
	if !ok {
		return nil, errors.New("unexpected status 404")
	}
	return &provider.Response{StatusCode: 200, Body: []byte(body), FinalURL: target}, nil
}

func testConfig() *app.Config {
	return &app.Config{
		Proxy: app.ProxyConfig{UserAgent: "test-agent"},
		Sources: []app.SourceConfig{{
			ID:   "8stream",
			Name: "8Stream",
			Rank: 100,
			Templates: app.TemplateConfig{
				Movie:   "https://site.example/movie/{tmdbId}",
				Episode: "https://site.example/tv/{tmdbId}/{season}/{episode}",
			},
		}},
		Embeds: []app.EmbedConfig{{
			ID:      "upcloud",
			Name:    "UpCloud",
			Rank:    50,
			Domains: []string{"upcloud.example"},
		}},
	}
}

func TestExpandTemplate(t *testing.T) {
	d := media.Descriptor{Query: media.NewEpisode("1399", 2, 5), Title: "Game of Thrones", ReleaseYear: 2011}
	got := expandTemplate("https://x.example/{title}-{year}/{tmdbId}?s={season}&e={episode}", d)
	assert.Equal(t, "https://x.example/Game%20of%20Thrones-2011/1399?s=2&e=5", got)

	movie := media.Descriptor{Query: media.NewMovie("603")}
	assert.Equal(t, "https://x.example/603/-", expandTemplate("https://x.example/{tmdbId}/{title}-{year}", movie))
}

func TestSourceEpisodeUsesEpisodeTemplate(t *testing.T) {
	cfg := testConfig()
	reg, err := NewRegistryFromConfig(cfg)
	require.NoError(t, err)

	f := &pageFetcher{pages: map[string]string{
		"https://site.example/tv/1399/1/2": `<video src="https://cdn.example/ep.m3u8"></video>`,
	}}
	src := reg.Sources()[0]

	out, err := src.ScrapeMedia(context.Background(), provider.ScrapeContext{Fetcher: f, ProxiedFetcher: f},
		media.Descriptor{Query: media.NewEpisode("1399", 1, 2)})
	require.NoError(t, err)
	require.NotNil(t, out.Stream)
	assert.Equal(t, "https://cdn.example/ep.m3u8", out.Stream.Playlist)
	assert.Equal(t, "https://site.example/", f.headers[0]["Referer"])
}

func TestSourceMatchesIframesToEmbeds(t *testing.T) {
	reg, err := NewRegistryFromConfig(testConfig())
	require.NoError(t, err)

	f := &pageFetcher{pages: map[string]string{
		"https://site.example/movie/603": `
			<iframe src="https://ads.example/banner"></iframe>
			<iframe src="https://www.upcloud.example/e/xyz"></iframe>
			<iframe src="https://cdn2.upcloud.example/e/abc"></iframe>`,
	}}

	out, err := reg.Sources()[0].ScrapeMedia(context.Background(), provider.ScrapeContext{Fetcher: f, ProxiedFetcher: f},
		media.Descriptor{Query: media.NewMovie("603")})
	require.NoError(t, err)
	assert.Nil(t, out.Stream)
	assert.Equal(t, []provider.Embed{
		{EmbedID: "upcloud", URL: "https://www.upcloud.example/e/xyz"},
		{EmbedID: "upcloud", URL: "https://cdn2.upcloud.example/e/abc"},
	}, out.Embeds)
}

func TestSourceDirectSkipsProxy(t *testing.T) {
	cfg := testConfig()
	cfg.Sources[0].Direct = true
	reg, err := NewRegistryFromConfig(cfg)
	require.NoError(t, err)

	direct := &pageFetcher{pages: map[string]string{
		"https://site.example/movie/603": `<video src="https://cdn.example/m.m3u8"></video>`,
	}}
	proxied := &pageFetcher{}

	_, err = reg.Sources()[0].ScrapeMedia(context.Background(), provider.ScrapeContext{Fetcher: direct, ProxiedFetcher: proxied},
		media.Descriptor{Query: media.NewMovie("603")})
	require.NoError(t, err)
	assert.Len(t, direct.requests, 1)
	assert.Empty(t, proxied.requests)
}

func TestSourceNothingFound(t *testing.T) {
	reg, err := NewRegistryFromConfig(testConfig())
	require.NoError(t, err)

	f := &pageFetcher{pages: map[string]string{"https://site.example/movie/603": `<p>nothing here</p>`}}
	_, err = reg.Sources()[0].ScrapeMedia(context.Background(), provider.ScrapeContext{Fetcher: f, ProxiedFetcher: f},
		media.Descriptor{Query: media.NewMovie("603")})
	assert.ErrorIs(t, err, provider.ErrNoStream)
}

func TestRegistryRejectsClaimedDomain(t *testing.T) {
	cfg := testConfig()
	cfg.Embeds = append(cfg.Embeds, app.EmbedConfig{ID: "other", Domains: []string{"UpCloud.example"}})
	_, err := NewRegistryFromConfig(cfg)
	assert.Error(t, err)
}

func TestCapturedStream(t *testing.T) {
	hls := captured{URL: "https://cdn.example/stream/abc", Headers: map[string]string{"Referer": "r"}}.stream()
	assert.Equal(t, provider.StreamHLS, hls.Type)
	assert.Equal(t, "https://cdn.example/stream/abc", hls.Playlist)
	assert.Equal(t, "r", hls.Headers["Referer"])

	file := captured{URL: "https://cdn.example/movie_720.mp4"}.stream()
	assert.Equal(t, provider.StreamFile, file.Type)
	assert.Equal(t, provider.File{Type: "mp4", URL: "https://cdn.example/movie_720.mp4"}, file.Qualities["720p"])
}
