package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/discotune/discotune/internal/api"
	"github.com/discotune/discotune/internal/app"
	"github.com/discotune/discotune/internal/catalog"
	"github.com/discotune/discotune/internal/config"
	"github.com/discotune/discotune/internal/logging"
)

// Runner holds the dependencies shared by every command. Config, logging
// and the API client are set up lazily in before so --config applies.
type Runner struct {
	cfg        *config.Config
	cfgPath    string
	stateDir   string
	logger     *slog.Logger
	logFile    io.Closer
	output     io.Writer
	input      io.Reader
	lines      *bufio.Reader
	httpClient *http.Client
	session    *api.Session
	client     *api.Client
	tui        func(ctx context.Context, src app.Source, restore bool) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *config.Config
	StateDir   string
	Logger     *slog.Logger
	Output     io.Writer
	Input      io.Reader
	HTTPClient *http.Client
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	r := &Runner{
		cfg:        opts.Config,
		stateDir:   opts.StateDir,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		httpClient: opts.HTTPClient,
	}
	r.tui = r.runTUI
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		trendingCommand, genreCommand, searchCommand, generateCommand,
		loginCommand, registerCommand, logoutCommand, whoamiCommand, playlistsCommand,
		importCommand, doctorCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.cfg == nil {
		cfg, path, err := config.Load(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.cfg, r.cfgPath = cfg, path
	}
	if r.stateDir == "" {
		dir, err := logging.StateDir()
		if err != nil {
			return ctx, fmt.Errorf("state dir: %w", err)
		}
		r.stateDir = dir
	}
	if r.logger == nil {
		logger, f, err := logging.Setup(r.cfg.Log.Level)
		if err != nil {
			return ctx, fmt.Errorf("setup logging: %w", err)
		}
		r.logger, r.logFile = logger, f
	}
	r.session = api.NewSession(r.stateDir)
	token, err := r.session.Token()
	if err != nil && !errors.Is(err, api.ErrUnauthorized) {
		r.logger.Warn("reading session", slog.Any("err", err))
	}
	client, err := api.New(api.Options{
		BaseURL:    r.cfg.API.BaseURL,
		Token:      token,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	if err != nil {
		return ctx, err
	}
	r.client = client
	r.logger.Info("starting discotune", slog.String("config", r.cfgPath), slog.String("command", cmd.Name))
	return ctx, nil
}

func (r *Runner) after(context.Context, *cli.Command) error {
	if r.logFile != nil {
		return r.logFile.Close()
	}
	return nil
}

func (r *Runner) writeJSON(data any) error {
	enc := json.NewEncoder(r.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeTracks(tracks []catalog.Track, asJSON bool) error {
	if asJSON {
		return r.writeJSON(tracks)
	}
	if len(tracks) == 0 {
		return r.writePlain("No tracks found\n")
	}
	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tARTIST\tGENRE")
	for i, t := range tracks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, t.Title, t.Artist, t.Genre)
	}
	return tw.Flush()
}
