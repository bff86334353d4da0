package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/media"
)

// resolveFunc runs one resolution for a parsed query.
type resolveFunc func(ctx context.Context, cmd *cli.Command, q media.Query) error

// resolveCommand returns the "resolve" CLI subcommand.
func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Run the resolution cascade once and print the outcome",
		Commands: []*cli.Command{
			resolveMovieCommand(runResolve),
			resolveEpisodeCommand(runResolve),
		},
	}
}

func resolveMovieCommand(run resolveFunc) *cli.Command {
	var tmdbID string

	return &cli.Command{
		Name:  "movie",
		Usage: "Resolve a movie by TMDB id",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:        "tmdbId",
				Destination: &tmdbID,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, media.NewMovie(tmdbID))
		},
	}
}

func resolveEpisodeCommand(run resolveFunc) *cli.Command {
	var tmdbID string
	var season, episode int

	return &cli.Command{
		Name:  "episode",
		Usage: "Resolve a TV episode by TMDB id",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "season",
				Aliases:     []string{"s"},
				Usage:       "Season number",
				Required:    true,
				Destination: &season,
			},
			&cli.IntFlag{
				Name:        "episode",
				Aliases:     []string{"e"},
				Usage:       "Episode number",
				Required:    true,
				Destination: &episode,
			},
		},
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:        "tmdbId",
				Destination: &tmdbID,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, media.NewEpisode(tmdbID, season, episode))
		},
	}
}

func runResolve(ctx context.Context, cmd *cli.Command, q media.Query) error {
	cfg, err := app.ConfigFrom(cmd)
	if err != nil {
		return err
	}

	out, err := newResolver(cfg, newClientManager(cfg)).Resolve(ctx, q)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Success   bool          `json:"success"`
		Data      *media.Result `json:"data,omitempty"`
		Fallbacks []string      `json:"fallbacks"`
	}{Success: out.Found(), Data: out.Result, Fallbacks: out.Fallbacks})
}
