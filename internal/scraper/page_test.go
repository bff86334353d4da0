package scraper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/vidrelay/internal/provider"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParsePageHLSSource(t *testing.T) {
	body := []byte(`<html><body>
		<video controls>
			<source src="/hls/master.m3u8" type="application/x-mpegURL">
			<track kind="subtitles" src="subs/en.vtt" srclang="en" label="English">
			<track kind="chapters" src="chapters.vtt">
		</video>
	</body></html>`)

	p, err := parsePage(mustURL(t, "https://player.example/e/abc"), body)
	require.NoError(t, err)
	require.NotNil(t, p.stream)

	assert.Equal(t, provider.StreamHLS, p.stream.Type)
	assert.Equal(t, "https://player.example/hls/master.m3u8", p.stream.Playlist)
	require.Len(t, p.stream.Captions, 1)
	assert.Equal(t, provider.Caption{Label: "English", Language: "en", Src: "https://player.example/e/subs/en.vtt"}, p.stream.Captions[0])
}

func TestParsePageFiles(t *testing.T) {
	body := []byte(`<video>
		<source src="https://cdn.example/movie_1080.mp4" type="video/mp4" size="1080">
		<source src="https://cdn.example/movie_720.mp4" type="video/mp4" label="720p">
		<source src="https://cdn.example/movie.webm" type="video/webm">
	</video>`)

	p, err := parsePage(nil, body)
	require.NoError(t, err)
	require.NotNil(t, p.stream)

	assert.Equal(t, provider.StreamFile, p.stream.Type)
	assert.Equal(t, map[string]provider.File{
		"1080p": {Type: "mp4", URL: "https://cdn.example/movie_1080.mp4"},
		"720p":  {Type: "mp4", URL: "https://cdn.example/movie_720.mp4"},
		"":      {Type: "webm", URL: "https://cdn.example/movie.webm"},
	}, p.stream.Qualities)
}

func TestParsePageInlineScriptPlaylist(t *testing.T) {
	body := []byte(`<div id="player"></div>
		<script>jwplayer("player").setup({file: "https://cdn.example/v/master.m3u8?t=1"});</script>`)

	p, err := parsePage(nil, body)
	require.NoError(t, err)
	require.NotNil(t, p.stream)
	assert.Equal(t, "https://cdn.example/v/master.m3u8?t=1", p.stream.Playlist)
}

func TestParsePageIframesOnly(t *testing.T) {
	body := []byte(`<iframe src="//embed.example/e/1"></iframe>
		<iframe data-src="https://other.example/v/2"></iframe>
		<iframe src="about:blank"></iframe>`)

	p, err := parsePage(mustURL(t, "https://site.example/movie/1"), body)
	require.NoError(t, err)
	assert.Nil(t, p.stream)
	assert.Equal(t, []string{"https://embed.example/e/1", "https://other.example/v/2"}, p.iframes)
}

func TestQualityPattern(t *testing.T) {
	tests := map[string]string{
		"https://cdn.example/1080p/video.mp4": "1080",
		"https://cdn.example/video_480.mp4":   "480",
		"https://cdn.example/v/2160.mp4":      "2160",
	}
	for in, want := range tests {
		m := qualityPattern.FindStringSubmatch(in)
		require.NotNil(t, m, in)
		assert.Equal(t, want, m[1], in)
	}
	assert.Nil(t, qualityPattern.FindStringSubmatch("https://cdn.example/v/12345.mp4"))
}
