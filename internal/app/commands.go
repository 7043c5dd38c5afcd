package app

import tea "github.com/charmbracelet/bubbletea"

// Command is an action bound to one or more keys.
type Command struct {
	Keys        []string
	Name        string
	Description string
	Handler     func(m Model) (Model, tea.Cmd)
}

// CommandRegistry maps keys to commands and keeps them in help order.
type CommandRegistry struct {
	commands []Command
	byKey    map[string]int
}

// NewCommandRegistry creates a registry with the list view key bindings.
func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{byKey: map[string]int{}}

	r.register(Command{
		Keys:        []string{"enter"},
		Name:        "Play",
		Description: "Select the highlighted track and start playing",
		Handler:     Model.playSelected,
	})
	r.register(Command{
		Keys:        []string{" ", "space"},
		Name:        "Play/Pause",
		Description: "Toggle playback of the selected track",
		Handler:     Model.togglePlaying,
	})
	r.register(Command{
		Keys:        []string{"j", "down"},
		Name:        "Down",
		Description: "Move the cursor down",
		Handler:     func(m Model) (Model, tea.Cmd) { return m.moveCursor(1), nil },
	})
	r.register(Command{
		Keys:        []string{"k", "up"},
		Name:        "Up",
		Description: "Move the cursor up",
		Handler:     func(m Model) (Model, tea.Cmd) { return m.moveCursor(-1), nil },
	})
	r.register(Command{
		Keys:        []string{"n"},
		Name:        "Next",
		Description: "Skip to the next track",
		Handler:     Model.skip,
	})
	r.register(Command{
		Keys:        []string{"p"},
		Name:        "Previous",
		Description: "Go back to the previous track",
		Handler:     Model.previous,
	})
	r.register(Command{
		Keys:        []string{"+", "="},
		Name:        "Volume up",
		Description: "Raise the volume by one step",
		Handler:     func(m Model) (Model, tea.Cmd) { return m.adjustVolume(1) },
	})
	r.register(Command{
		Keys:        []string{"-"},
		Name:        "Volume down",
		Description: "Lower the volume by one step",
		Handler:     func(m Model) (Model, tea.Cmd) { return m.adjustVolume(-1) },
	})
	r.register(Command{
		Keys:        []string{"r"},
		Name:        "Repeat",
		Description: "Cycle repeat mode (off, all, one)",
		Handler:     Model.cycleRepeat,
	})
	r.register(Command{
		Keys:        []string{"/"},
		Name:        "Filter",
		Description: "Fuzzy find a track in the list",
		Handler:     Model.openFilter,
	})
	r.register(Command{
		Keys:        []string{"ctrl+r"},
		Name:        "Reload",
		Description: "Fetch the track list again",
		Handler:     Model.reload,
	})
	r.register(Command{
		Keys:        []string{"?"},
		Name:        "Help",
		Description: "Show or hide key bindings",
		Handler: func(m Model) (Model, tea.Cmd) {
			m.showHelp = !m.showHelp
			return m, nil
		},
	})
	r.register(Command{
		Keys:        []string{"ctrl+d"},
		Name:        "Diagnostics",
		Description: "Show or hide the diagnostics overlay",
		Handler: func(m Model) (Model, tea.Cmd) {
			m.showDiag = !m.showDiag
			return m, nil
		},
	})
	r.register(Command{
		Keys:        []string{"q", "ctrl+c"},
		Name:        "Quit",
		Description: "Stop playback and exit",
		Handler:     Model.quit,
	})

	return r
}

func (r *CommandRegistry) register(cmd Command) {
	r.commands = append(r.commands, cmd)
	for _, k := range cmd.Keys {
		r.byKey[k] = len(r.commands) - 1
	}
}

// Lookup returns the command bound to key.
func (r *CommandRegistry) Lookup(key string) (Command, bool) {
	idx, ok := r.byKey[key]
	if !ok {
		return Command{}, false
	}
	return r.commands[idx], true
}

// Commands returns all commands in registration order.
func (r *CommandRegistry) Commands() []Command {
	return r.commands
}
