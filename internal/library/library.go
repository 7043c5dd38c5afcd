// Package library imports local audio files as playable tracks.
package library

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"

	"github.com/discotune/discotune/internal/catalog"
)

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
}

// Scan walks root and returns one track per audio file, sorted by artist
// then title. MediaID is the absolute file path so the player can open it
// without a lookup. Unreadable files are skipped.
func Scan(ctx context.Context, root string, logger *slog.Logger) ([]catalog.Track, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, catalog.ErrInvalidInput)
	}

	var tracks []catalog.Track
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("skipping unreadable path", slog.String("path", path), slog.Any("err", err))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !allowedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		tracks = append(tracks, readTrack(path, logger))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		a, b := strings.ToLower(tracks[i].Artist), strings.ToLower(tracks[j].Artist)
		if a != b {
			return a < b
		}
		return strings.ToLower(tracks[i].Title) < strings.ToLower(tracks[j].Title)
	})
	logger.Info("library scan complete", slog.String("root", abs), slog.Int("tracks", len(tracks)))
	return tracks, nil
}

func readTrack(path string, logger *slog.Logger) catalog.Track {
	t := catalog.Track{MediaID: path}
	if f, err := os.Open(path); err == nil {
		meta, err := tag.ReadFrom(f)
		f.Close()
		if err == nil {
			t.Title = strings.TrimSpace(meta.Title())
			t.Artist = strings.TrimSpace(meta.Artist())
			if t.Artist == "" {
				t.Artist = strings.TrimSpace(meta.AlbumArtist())
			}
			t.Genre = strings.TrimSpace(meta.Genre())
		} else {
			logger.Debug("no tags", slog.String("path", path), slog.Any("err", err))
		}
	}
	if t.Title == "" {
		t.Title, t.Artist = fromFileName(path, t.Artist)
	}
	return t
}

// fromFileName handles the common "Artist - Title.ext" layout.
func fromFileName(path, artist string) (string, string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if a, title, ok := strings.Cut(base, " - "); ok && artist == "" {
		return strings.TrimSpace(title), strings.TrimSpace(a)
	}
	return base, artist
}
