package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/vidrelay/internal/media"
)

func TestBuilderRequiresFetcher(t *testing.T) {
	_, err := NewBuilder().Build()
	assert.Error(t, err)
}

func TestBuilderRejectsDuplicates(t *testing.T) {
	_, err := NewBuilder().
		WithFetcher(nopFetcher{}).
		WithSources(source("a", 1, nil, nil), source("a", 2, nil, nil)).
		Build()
	assert.Error(t, err)

	_, err = NewBuilder().
		WithFetcher(nopFetcher{}).
		WithEmbeds(embed("e", 1, nil, nil), embed("e", 2, nil, nil)).
		Build()
	assert.Error(t, err)
}

func TestListSortedByRank(t *testing.T) {
	lib, err := NewBuilder().
		WithFetcher(nopFetcher{}).
		WithSources(source("low", 1, nil, nil), source("high", 9, nil, nil), source("mid", 5, nil, nil)).
		WithEmbeds(embed("e1", 1, nil, nil), embed("e2", 2, nil, nil)).
		Build()
	require.NoError(t, err)

	var ids []string
	for _, m := range lib.ListSources() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"high", "mid", "low"}, ids)
	assert.Equal(t, "e2", lib.ListEmbeds()[0].ID)
}

func TestRunSourceUnknown(t *testing.T) {
	lib, err := NewBuilder().WithFetcher(nopFetcher{}).Build()
	require.NoError(t, err)

	_, err = lib.RunSource(context.Background(), "missing", media.Descriptor{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lib.RunEmbed(context.Background(), "missing", "https://x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunSourceDropsUnknownStreamType(t *testing.T) {
	src := source("s", 1, &SourceOutput{Stream: &Stream{Type: "dash", Playlist: "https://x/manifest.mpd"}}, nil)
	lib, err := NewBuilder().WithFetcher(nopFetcher{}).WithSources(src).Build()
	require.NoError(t, err)

	out, err := lib.RunSource(context.Background(), "s", media.Descriptor{})
	require.NoError(t, err)
	assert.Nil(t, out.Stream)
}

func TestRunAllPrefersRankAndDirectStream(t *testing.T) {
	failing := source("failing", 10, nil, errors.New("boom"))
	empty := source("empty", 8, &SourceOutput{}, nil)
	winner := source("winner", 5, &SourceOutput{Stream: hls("https://cdn/master.m3u8")}, nil)
	never := source("never", 1, &SourceOutput{Stream: hls("https://other")}, nil)

	lib, err := NewBuilder().WithFetcher(nopFetcher{}).WithSources(failing, empty, winner, never).Build()
	require.NoError(t, err)

	out, err := lib.RunAll(context.Background(), media.Descriptor{})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "winner", out.SourceID)
	assert.Empty(t, out.EmbedID)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 0, never.calls)
}

func TestRunAllTriesEveryEmbed(t *testing.T) {
	bad := embed("bad", 1, nil, errors.New("blocked"))
	good := embed("good", 1, &EmbedOutput{Stream: hls("https://cdn/index.m3u8")}, nil)
	src := source("s", 1, &SourceOutput{Embeds: []Embed{
		{EmbedID: "bad", URL: "https://bad/e/1"},
		{EmbedID: "good", URL: "https://good/e/1"},
	}}, nil)

	lib, err := NewBuilder().WithFetcher(nopFetcher{}).WithSources(src).WithEmbeds(bad, good).Build()
	require.NoError(t, err)

	out, err := lib.RunAll(context.Background(), media.Descriptor{})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "s", out.SourceID)
	assert.Equal(t, "good", out.EmbedID)
	assert.Equal(t, []string{"https://bad/e/1"}, bad.urls)
}

func TestRunAllNothingFound(t *testing.T) {
	lib, err := NewBuilder().WithFetcher(nopFetcher{}).WithSources(source("s", 1, &SourceOutput{}, nil)).Build()
	require.NoError(t, err)

	out, err := lib.RunAll(context.Background(), media.Descriptor{})
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestRunAllCancelled(t *testing.T) {
	lib, err := NewBuilder().WithFetcher(nopFetcher{}).WithSources(source("s", 1, &SourceOutput{}, nil)).Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = lib.RunAll(ctx, media.Descriptor{})
	assert.ErrorIs(t, err, context.Canceled)
}
