// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "Path to .env file with credential overrides",
			Value: ".env",
		},
	}
}

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"u"},
			Usage:   "Base URL of a running crowdmix server",
			Value:   "http://localhost:8888",
		},
	}
}

// serveCommand runs the HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the group top-tracks server",
		Flags:  configFlags(),
		Action: r.Serve,
	}
}

// configCommand handles configuration scaffolding.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a config.toml scaffold",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"p"},
						Usage:   "Destination path",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}

// topCommand prints the leaderboard from a running server.
func topCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Show the group leaderboard",
		Flags: append(clientFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table, json, csv, markdown, text",
				Value:   "table",
			},
		),
		Action: r.Top,
	}
}

// rosterCommand prints the participant roster from a running server.
func rosterCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "roster",
		Usage:  "Show who has joined the group",
		Flags:  clientFlags(),
		Action: r.Roster,
	}
}

// resetCommand clears the group state on a running server.
func resetCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "reset",
		Usage:  "Clear the leaderboard and roster",
		Flags:  clientFlags(),
		Action: r.Reset,
	}
}
