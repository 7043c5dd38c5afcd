package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/discotune/discotune/internal/app"
	"github.com/discotune/discotune/internal/catalog"
	"github.com/discotune/discotune/internal/library"
)

func (r *Runner) apiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.API.TimeoutMs)*time.Millisecond)
}

// playOrList opens the player on src, or prints it with --list/--json.
func (r *Runner) playOrList(ctx context.Context, cmd *cli.Command, src app.Source) error {
	if !cmd.Bool("list") && !cmd.Bool("json") {
		return r.tui(ctx, src, false)
	}
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	tracks, err := src.Load(actx)
	if err != nil {
		return fmt.Errorf("%s: %w", src.Name, err)
	}
	return r.writeTracks(tracks, cmd.Bool("json"))
}

// Play is the default action: the player on the last session's queue, or
// on the top tracks when there is none.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	return r.tui(ctx, r.trendingSource(), true)
}

func (r *Runner) trendingSource() app.Source {
	return app.Source{Name: "trending", Load: r.client.TopTracks}
}

func (r *Runner) Trending(ctx context.Context, cmd *cli.Command) error {
	return r.playOrList(ctx, cmd, r.trendingSource())
}

func (r *Runner) Genre(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("genre name is required: %w", catalog.ErrInvalidInput)
	}
	return r.playOrList(ctx, cmd, app.Source{
		Name: "genre:" + name,
		Load: func(ctx context.Context) ([]catalog.Track, error) {
			return r.client.Genre(ctx, name)
		},
	})
}

func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	q := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if q == "" {
		return fmt.Errorf("search query is required: %w", catalog.ErrInvalidInput)
	}
	return r.playOrList(ctx, cmd, app.Source{
		Name: "search:" + q,
		Load: func(ctx context.Context) ([]catalog.Track, error) {
			return r.client.Search(ctx, q)
		},
	})
}

func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("quiz") {
		quiz := catalog.Quiz{
			Mood:            cmd.String("mood"),
			Activity:        cmd.String("activity"),
			PreferredGenres: cmd.StringSlice("genres"),
			Decade:          cmd.String("decade"),
			DiscoveryMode:   cmd.String("discovery"),
		}
		return r.playOrList(ctx, cmd, app.Source{
			Name: "quiz",
			Load: func(ctx context.Context) ([]catalog.Track, error) {
				return r.client.GenerateFromQuiz(ctx, quiz)
			},
		})
	}
	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		return fmt.Errorf("a prompt or --quiz is required: %w", catalog.ErrInvalidInput)
	}
	return r.playOrList(ctx, cmd, app.Source{
		Name: "ai:" + prompt,
		Load: func(ctx context.Context) ([]catalog.Track, error) {
			return r.client.GenerateFromPrompt(ctx, prompt)
		},
	})
}

// Import plays local files. The scan is not bound by the API timeout.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.StringArg("dir")
	if dir == "" {
		return fmt.Errorf("directory is required: %w", catalog.ErrInvalidInput)
	}
	return r.playOrList(ctx, cmd, app.Source{
		Name: "import:" + filepath.Base(filepath.Clean(dir)),
		Load: func(ctx context.Context) ([]catalog.Track, error) {
			return library.Scan(context.WithoutCancel(ctx), dir, r.logger)
		},
	})
}
