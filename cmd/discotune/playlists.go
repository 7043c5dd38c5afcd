package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/discotune/discotune/internal/app"
	"github.com/discotune/discotune/internal/catalog"
)

func playlistID(cmd *cli.Command) (int, error) {
	raw := cmd.StringArg("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("playlist id %q: %w", raw, catalog.ErrInvalidInput)
	}
	return id, nil
}

func (r *Runner) findPlaylist(ctx context.Context, id int) (catalog.Playlist, error) {
	lists, err := r.client.Playlists(ctx)
	if err != nil {
		return catalog.Playlist{}, err
	}
	for _, p := range lists {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Playlist{}, fmt.Errorf("playlist %d: %w", id, catalog.ErrNotFound)
}

func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	lists, err := r.client.Playlists(actx)
	if err != nil {
		return fmt.Errorf("playlists: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(lists)
	}
	if len(lists) == 0 {
		return r.writePlain("No playlists yet\n")
	}
	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTRACKS\tCREATED")
	for _, p := range lists {
		name := p.Name
		if p.IsFavorite {
			name += " ★"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", p.ID, name, len(p.Tracks), p.CreatedAt)
	}
	return tw.Flush()
}

func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	var tracks []catalog.Track
	if cmd.Bool("from-trending") {
		var err error
		if tracks, err = r.client.TopTracks(actx); err != nil {
			return fmt.Errorf("trending: %w", err)
		}
	}
	p, err := r.client.CreatePlaylist(actx, cmd.String("name"), cmd.String("description"), tracks)
	if err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}
	return r.writePlain("✓ Created playlist %d %q with %d tracks\n", p.ID, p.Name, len(tracks))
}

func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}
	track := catalog.Track{Title: cmd.String("title"), Artist: cmd.String("artist")}
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	if err := r.client.AddTracks(actx, id, []catalog.Track{track}); err != nil {
		return fmt.Errorf("add to playlist %d: %w", id, err)
	}
	return r.writePlain("✓ Added %s to playlist %d\n", track.Label(), id)
}

func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	p, err := r.findPlaylist(actx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(p.Tracks)
	}
	if len(p.Tracks) == 0 {
		return r.writePlain("Playlist %q is empty\n", p.Name)
	}
	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRACK ID\tTITLE\tARTIST")
	for _, t := range p.Tracks {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", t.ID, t.Title, t.Artist)
	}
	return tw.Flush()
}

func (r *Runner) PlaylistsRename(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}
	var description *string
	if cmd.IsSet("description") {
		d := cmd.String("description")
		description = &d
	}
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	p, err := r.client.UpdatePlaylist(actx, id, cmd.String("name"), description)
	if err != nil {
		return fmt.Errorf("rename playlist %d: %w", id, err)
	}
	return r.writePlain("✓ Renamed playlist %d to %q\n", id, p.Name)
}

func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}
	raw := cmd.StringArg("track")
	trackID, err := strconv.Atoi(raw)
	if err != nil || trackID <= 0 {
		return fmt.Errorf("track id %q: %w", raw, catalog.ErrInvalidInput)
	}
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	if err := r.client.RemoveTrack(actx, id, trackID); err != nil {
		return fmt.Errorf("remove track %d from playlist %d: %w", trackID, id, err)
	}
	return r.writePlain("✓ Removed track %d from playlist %d\n", trackID, id)
}

func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	if err := r.client.DeletePlaylist(actx, id); err != nil {
		return fmt.Errorf("delete playlist %d: %w", id, err)
	}
	return r.writePlain("✓ Deleted playlist %d\n", id)
}

func (r *Runner) PlaylistsPlay(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}
	return r.playOrList(ctx, cmd, app.Source{
		Name: fmt.Sprintf("playlist:%d", id),
		Load: func(ctx context.Context) ([]catalog.Track, error) {
			p, err := r.findPlaylist(ctx, id)
			return p.Tracks, err
		},
	})
}
