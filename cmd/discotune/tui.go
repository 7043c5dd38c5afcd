package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/discotune/discotune/internal/app"
	"github.com/discotune/discotune/internal/playback"
	"github.com/discotune/discotune/internal/player"
	"github.com/discotune/discotune/internal/queue"
	"github.com/discotune/discotune/internal/resolver"
)

// runTUI wires the resolver, the mpv host and the playback adapter behind
// the bubbletea model. With restore set, the last saved queue is shown
// instead of src.
func (r *Runner) runTUI(ctx context.Context, src app.Source, restore bool) error {
	cfg := r.cfg
	res, err := resolver.New(resolver.Options{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
		Timeout:    cfg.ResolveTimeout(),
		CacheSize:  cfg.Resolver.CacheSize,
		RatePerSec: cfg.Resolver.RatePerSec,
		Burst:      cfg.Resolver.Burst,
	})
	if err != nil {
		return fmt.Errorf("resolver: %w", err)
	}

	host := player.New(player.Options{
		MPVPath:          cfg.Player.MPVPath,
		IPCPath:          cfg.Player.IPC,
		Logger:           r.logger,
		MediaURLTemplate: cfg.Player.MediaURLTemplate,
		YTDLFormat:       cfg.Player.YTDLFormat,
	})
	defer host.Shutdown()

	volume := cfg.Player.InitialVolume
	q := queue.New()
	var saver app.QueueStore
	if cfg.PersistQueue() {
		store, err := queue.NewPersistenceStore(filepath.Join(r.stateDir, "queue.db"))
		if err != nil {
			r.logger.Warn("queue persistence unavailable", slog.Any("err", err))
		} else {
			defer store.Close()
			saver = store
			snap, err := store.Load(ctx)
			switch {
			case err != nil:
				r.logger.Warn("loading saved queue", slog.Any("err", err))
			default:
				if snap.Volume >= 0 {
					volume = snap.Volume
				}
				if restore && len(snap.Tracks) > 0 {
					q = snap.Restore()
					r.logger.Info("restored queue", slog.String("source", snap.Source), slog.Int("tracks", len(snap.Tracks)))
				}
			}
		}
	}

	bridge := &app.Bridge{}
	adapter, err := playback.NewAdapter(playback.Options{
		Resolver:         res,
		Host:             host,
		OnEnded:          bridge.OnEnded,
		OnNotice:         bridge.OnNotice,
		Logger:           r.logger,
		ResolveTimeout:   cfg.ResolveTimeout(),
		BootstrapTimeout: cfg.BootstrapTimeout(),
	})
	if err != nil {
		return err
	}
	defer adapter.Close()

	intents := playback.NewStore(volume, adapter.Apply)
	adapter.Start(ctx)
	adapter.Apply(intents.Intent())

	model := app.New(app.Options{
		Config:     cfg,
		Store:      intents,
		Player:     adapter,
		Queue:      q,
		QueueStore: saver,
		Source:     src,
		Logger:     r.logger,
		NoColor:    os.Getenv("NO_COLOR") != "",
	})
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(prog)
	if _, err := prog.Run(); err != nil {
		r.logger.Error("run tui", slog.Any("err", err))
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
