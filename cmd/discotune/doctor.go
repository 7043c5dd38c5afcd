package main

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/discotune/discotune/internal/api"
)

// Doctor checks the setup without starting the player. Failures are
// reported, not returned.
func (r *Runner) Doctor(ctx context.Context, cmd *cli.Command) error {
	r.writePlain("discotune doctor\n")
	r.writePlain("Config file: OK (%s)\n", r.cfgPath)
	r.writePlain("State dir: %s\n", r.stateDir)

	if path, err := lookPath(r.cfg.Player.MPVPath); err != nil {
		r.writePlain("mpv (%s): NOT FOUND\n", r.cfg.Player.MPVPath)
	} else {
		r.writePlain("mpv: OK (%s)\n", path)
	}
	if path, err := lookPath("yt-dlp"); err != nil {
		r.writePlain("yt-dlp: NOT FOUND (needed to stream remote media)\n")
	} else {
		r.writePlain("yt-dlp: OK (%s)\n", path)
	}

	actx, cancel := r.apiContext(ctx)
	defer cancel()
	start := time.Now()
	tracks, err := r.client.TopTracks(actx)
	if err != nil {
		r.writePlain("API (%s): ERROR - %v\n", r.cfg.API.BaseURL, err)
	} else {
		r.writePlain("API (%s): OK (%d top tracks in %s)\n", r.cfg.API.BaseURL, len(tracks), time.Since(start).Round(time.Millisecond))
	}

	token, err := r.session.Token()
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		r.writePlain("Session: not logged in\n")
	case err != nil:
		r.writePlain("Session: ERROR - %v\n", err)
	default:
		if exp := r.session.Expiry(token); !exp.IsZero() {
			r.writePlain("Session: OK (expires %s)\n", exp.Local().Format(time.RFC1123))
		} else {
			r.writePlain("Session: OK\n")
		}
	}

	if r.cfg.PersistQueue() {
		r.writePlain("Queue: saved to %s\n", filepath.Join(r.stateDir, "queue.db"))
	} else {
		r.writePlain("Queue: not persisted\n")
	}
	r.logger.Info("doctor complete")
	return nil
}

// lookPath is a test seam.
var lookPath = exec.LookPath
