package cmd

import (
	"context"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/stupside/vidrelay/internal/app"
	"github.com/stupside/vidrelay/internal/relay"
	"github.com/stupside/vidrelay/internal/server"
)

// serveCommand returns the "serve" CLI subcommand.
func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides server.addr",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			if addr := cmd.String("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			clients := newClientManager(cfg)

			// Streams outlive any fixed client timeout; the relay bounds
			// only the wait for headers.
			rl := relay.New(cfg.Proxy, &http.Client{})

			srv := server.New(cfg, newResolver(cfg, clients), clients, rl)
			return srv.Run(ctx)
		},
	}
}
