package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/stupside/vidrelay/internal/media"
)

func capture(got *media.Query) resolveFunc {
	return func(_ context.Context, _ *cli.Command, q media.Query) error {
		*got = q
		return nil
	}
}

func TestResolveEpisodeParsesFlags(t *testing.T) {
	var got media.Query
	cmd := resolveEpisodeCommand(capture(&got))

	err := cmd.Run(context.Background(), []string{"episode", "--season", "2", "-e", "5", "1399"})
	require.NoError(t, err)

	assert.Equal(t, media.KindTV, got.Kind)
	assert.Equal(t, "1399", got.TMDBID)
	require.NotNil(t, got.Season)
	require.NotNil(t, got.Episode)
	assert.Equal(t, 2, *got.Season)
	assert.Equal(t, 5, *got.Episode)
}

func TestResolveEpisodeRequiresSeason(t *testing.T) {
	var got media.Query
	cmd := resolveEpisodeCommand(capture(&got))

	err := cmd.Run(context.Background(), []string{"episode", "--episode", "5", "1399"})
	assert.Error(t, err)
	assert.Empty(t, got.TMDBID)
}

func TestResolveMovieParsesID(t *testing.T) {
	var got media.Query
	cmd := resolveMovieCommand(capture(&got))

	require.NoError(t, cmd.Run(context.Background(), []string{"movie", "603"}))
	assert.Equal(t, media.NewMovie("603"), got)
}
