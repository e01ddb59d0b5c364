package main

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "uptimemon",
		Version: version,
		Usage:   "continuously monitor a host and log connection quality",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "ping_config.toml",
				Usage:   "path to the configuration file",
			},
			&cli.IntFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Value:   -1,
				Usage:   "monitoring duration in minutes (0 = until interrupted, negative = ask)",
			},
		},
		Action: runMonitor,
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "print aggregate statistics from the history database",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "since",
						Value: 24,
						Usage: "look back this many hours",
					},
				},
				Action: runHistory,
			},
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(c *cli.Context) error {
					fmt.Printf("uptimemon %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
					return nil
				},
			},
		},
	}
}
