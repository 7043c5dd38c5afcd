package main

import "github.com/urfave/cli/v3"

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "list",
			Aliases: []string{"l"},
			Usage:   "Print the tracks instead of opening the player",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the tracks as JSON",
		},
	}
}

func trendingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "trending",
		Usage:  "Play the current top tracks",
		Flags:  listFlags(),
		Action: r.Trending,
	}
}

func genreCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "genre",
		Usage: "Play tracks from a genre",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "name"},
		},
		Flags:  listFlags(),
		Action: r.Genre,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search tracks by title or artist",
		ArgsUsage: "<query>",
		Flags:     listFlags(),
		Action:    r.Search,
	}
}

func generateCommand(r *Runner) *cli.Command {
	flags := append(listFlags(),
		&cli.BoolFlag{
			Name:  "quiz",
			Usage: "Generate from the quiz flags instead of a prompt",
		},
		&cli.StringFlag{Name: "mood", Usage: "Quiz: current mood"},
		&cli.StringFlag{Name: "activity", Usage: "Quiz: what you are doing"},
		&cli.StringSliceFlag{Name: "genres", Usage: "Quiz: preferred genres"},
		&cli.StringFlag{Name: "decade", Usage: "Quiz: favourite decade"},
		&cli.StringFlag{Name: "discovery", Usage: "Quiz: familiar, mixed or adventurous", Value: "mixed"},
	)
	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate a playlist with AI from a prompt or a quiz",
		ArgsUsage: "<prompt>",
		Flags:     flags,
		Action:    r.Generate,
	}
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and store the session token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password (read from stdin when omitted)"},
		},
		Action: r.Login,
	}
}

func registerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "first-name"},
			&cli.StringFlag{Name: "last-name"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password (read from stdin when omitted)"},
		},
		Action: r.Register,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Forget the stored session token",
		Action: r.Logout,
	}
}

func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed in account",
		Action: r.Whoami,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage saved playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print as JSON"},
		},
		Action: r.PlaylistsList,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved playlists",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Print as JSON"}},
				Action: r.PlaylistsList,
			},
			{
				Name:  "create",
				Usage: "Create a playlist, optionally seeded from trending",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.BoolFlag{Name: "from-trending", Usage: "Seed with the current top tracks"},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:  "add",
				Usage: "Add a track to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "artist"},
				},
				Action: r.PlaylistsAdd,
			},
			{
				Name:  "show",
				Usage: "List the tracks of a playlist with their ids",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Print as JSON"}},
				Action: r.PlaylistsShow,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
				},
				Action: r.PlaylistsRename,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "track"},
				},
				Action: r.PlaylistsRemove,
			},
			{
				Name:  "delete",
				Usage: "Delete a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistsDelete,
			},
			{
				Name:  "play",
				Usage: "Play a saved playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  listFlags(),
				Action: r.PlaylistsPlay,
			},
		},
	}
}

func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Play audio files from a local directory",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "dir"},
		},
		Flags:  listFlags(),
		Action: r.Import,
	}
}

func doctorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "doctor",
		Usage:  "Check configuration, mpv and the API",
		Action: r.Doctor,
	}
}
