package media

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryMovie(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
	}{
		{"plain", url.Values{"tmdbId": {"603"}, "type": {"movie"}}},
		{"with season and episode", url.Values{"tmdbId": {"603"}, "type": {"movie"}, "season": {"1"}, "episode": {"2"}}},
		{"garbage season", url.Values{"tmdbId": {"603"}, "type": {"movie"}, "season": {"abc"}}},
		{"negative episode", url.Values{"tmdbId": {"603"}, "type": {"movie"}, "episode": {"-4"}}},
		{"uppercase type", url.Values{"tmdbId": {"603"}, "type": {"MOVIE"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery(tt.params)
			require.NoError(t, err)
			assert.Equal(t, "603", q.TMDBID)
			assert.Equal(t, KindMovie, q.Kind)
			assert.Nil(t, q.Season)
			assert.Nil(t, q.Episode)
		})
	}
}

func TestParseQueryEpisode(t *testing.T) {
	q, err := ParseQuery(url.Values{"tmdbId": {"1399"}, "type": {"tv"}, "season": {"2"}, "episode": {"5"}, "quality": {"1080p"}})
	require.NoError(t, err)
	require.NotNil(t, q.Season)
	require.NotNil(t, q.Episode)
	assert.Equal(t, 2, *q.Season)
	assert.Equal(t, 5, *q.Episode)
	assert.Equal(t, "1080p", q.Quality)
	assert.Equal(t, "tv/1399 s2e5", q.String())
}

func TestParseQueryRejects(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
		field  string
	}{
		{"missing tmdbId", url.Values{"type": {"movie"}}, "tmdbId"},
		{"missing type", url.Values{"tmdbId": {"1"}}, "type"},
		{"unknown type", url.Values{"tmdbId": {"1"}, "type": {"anime"}}, "type"},
		{"tv without season", url.Values{"tmdbId": {"1"}, "type": {"tv"}, "episode": {"1"}}, "season"},
		{"tv without episode", url.Values{"tmdbId": {"1"}, "type": {"tv"}, "season": {"1"}}, "episode"},
		{"tv without either", url.Values{"tmdbId": {"1"}, "type": {"tv"}}, "season"},
		{"tv non-numeric season", url.Values{"tmdbId": {"1"}, "type": {"tv"}, "season": {"one"}, "episode": {"1"}}, "season"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery(tt.params)
			require.Error(t, err)
			assert.True(t, IsValidation(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestNewEpisodeValidates(t *testing.T) {
	assert.NoError(t, NewEpisode("1399", 1, 1).Validate())
	assert.NoError(t, NewMovie("603").Validate())
	assert.Error(t, Query{TMDBID: "1399", Kind: KindTV}.Validate())
}

func TestDetectFromRawURL(t *testing.T) {
	assert.Equal(t, HLS, DetectFromRawURL("https://cdn.example/master.m3u8?token=x"))
	assert.Equal(t, MP4, DetectFromRawURL("https://cdn.example/video/720.MP4"))
	assert.Equal(t, VTT, DetectFromRawURL("https://cdn.example/subs/en.vtt"))
	assert.Empty(t, DetectFromRawURL("https://cdn.example/watch"))
}
