package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/vidrelay/internal/media"
	"github.com/stupside/vidrelay/internal/provider"
)

func TestNormalizeNil(t *testing.T) {
	assert.Nil(t, Normalize(nil, nil))
}

func TestNormalizeHLS(t *testing.T) {
	res := Normalize(&provider.Stream{Type: provider.StreamHLS, Playlist: "https://cdn.example/master.m3u8"}, nil)
	require.NotNil(t, res)
	assert.Equal(t, media.StreamHLS, res.Type)
	assert.Equal(t, []media.Quality{{Quality: "auto", URL: "https://cdn.example/master.m3u8"}}, res.Qualities)
	assert.Empty(t, res.Captions)
	assert.Nil(t, res.Headers)
}

func TestNormalizeHLSWithoutPlaylist(t *testing.T) {
	res := Normalize(&provider.Stream{Type: provider.StreamHLS}, nil)
	require.NotNil(t, res)
	assert.Empty(t, res.Qualities)
}

func TestNormalizeFile(t *testing.T) {
	res := Normalize(&provider.Stream{
		Type: provider.StreamFile,
		Qualities: map[string]provider.File{
			"720":  {Type: "mp4", URL: "https://cdn.example/720.mp4"},
			"1080": {Type: "mp4", URL: "https://cdn.example/1080.mp4"},
			"":     {Type: "mp4", URL: "https://cdn.example/unknown.mp4"},
			"360":  {Type: "mp4"},
		},
	}, nil)
	require.NotNil(t, res)
	assert.Equal(t, media.StreamMP4, res.Type)
	assert.ElementsMatch(t, []media.Quality{
		{Quality: "720", URL: "https://cdn.example/720.mp4"},
		{Quality: "1080", URL: "https://cdn.example/1080.mp4"},
		{Quality: "auto", URL: "https://cdn.example/unknown.mp4"},
	}, res.Qualities)
}

func TestNormalizeUnknownType(t *testing.T) {
	res := Normalize(&provider.Stream{Type: "dash", Playlist: "https://cdn.example/x.mpd"}, nil)
	require.NotNil(t, res)
	assert.Empty(t, res.Qualities)
}

func TestNormalizeCaptions(t *testing.T) {
	res := Normalize(&provider.Stream{Type: provider.StreamHLS, Playlist: "p"}, []provider.Caption{
		{Label: "English", Language: "en", URL: "https://subs.example/en.vtt"},
		{Language: "fr", Src: "https://subs.example/fr.vtt"},
		{},
	})
	require.NotNil(t, res)
	assert.Equal(t, []media.Caption{
		{Language: "English", URL: "https://subs.example/en.vtt", IsDefault: true},
		{Language: "fr", URL: "https://subs.example/fr.vtt"},
		{Language: "Subtitle 3", URL: ""},
	}, res.Captions)
}

func TestNormalizeHeaders(t *testing.T) {
	src := map[string]string{"Referer": "https://player.example/", "": "dropped"}
	res := Normalize(&provider.Stream{Type: provider.StreamHLS, Playlist: "p", Headers: src}, nil)
	require.NotNil(t, res)
	assert.Equal(t, map[string]string{"Referer": "https://player.example/"}, res.Headers)

	res.Headers["Origin"] = "x"
	assert.NotContains(t, src, "Origin")
}
