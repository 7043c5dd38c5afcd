package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/discotune/discotune/internal/catalog"
)

var version = "0.1.0"

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "discotune",
		Usage:   "Discover music and play it from the terminal",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: ~/.config/discotune/config.toml)",
			},
		},
		Before:   r.before,
		After:    r.after,
		Action:   r.Play,
		Commands: r.register(),
	}
}

func main() {
	r := NewRunner(RunnerOpts{})
	if err := newApp(r).Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, catalog.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "discotune: not logged in, run `discotune login`")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "discotune: %v\n", err)
		os.Exit(1)
	}
}
