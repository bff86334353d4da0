package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/vidrelay/internal/app"
)

// sourcesCommand returns the "sources" CLI subcommand.
func sourcesCommand() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "List the configured sources and embeds",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			client := newClientManager(cfg).Get(ctx, cfg.Proxy.URL)
			if client == nil {
				return errors.New("provider client could not be initialized")
			}

			sources, embeds := client.ListSources(), client.ListEmbeds()
			slog.InfoContext(ctx, "provider library ready", "sources", len(sources), "embeds", len(embeds))
			for _, m := range sources {
				slog.InfoContext(ctx, "source", "id", m.ID, "name", m.Name, "rank", m.Rank)
			}
			for _, m := range embeds {
				slog.InfoContext(ctx, "embed", "id", m.ID, "name", m.Name, "rank", m.Rank)
			}
			return nil
		},
	}
}
