package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/discotune/discotune/internal/api"
	"github.com/discotune/discotune/internal/catalog"
)

func (r *Runner) prompt(label string) (string, error) {
	if r.lines == nil {
		r.lines = bufio.NewReader(r.input)
	}
	if err := r.writePlain("%s", label); err != nil {
		return "", err
	}
	line, err := r.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func (r *Runner) flagOrPrompt(cmd *cli.Command, name, label string) (string, error) {
	if v := cmd.String(name); v != "" {
		return v, nil
	}
	return r.prompt(label)
}

func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	user, err := r.flagOrPrompt(cmd, "username", "Username: ")
	if err != nil {
		return err
	}
	pass, err := r.flagOrPrompt(cmd, "password", "Password: ")
	if err != nil {
		return err
	}
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	token, err := r.client.Login(actx, user, pass)
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("login failed: wrong username or password")
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := r.session.Save(token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	r.logger.Info("logged in", slog.String("user", user))
	return r.writePlain("✓ Logged in as %s\n", user)
}

func (r *Runner) Register(ctx context.Context, cmd *cli.Command) error {
	pass, err := r.flagOrPrompt(cmd, "password", "Password: ")
	if err != nil {
		return err
	}
	reg := catalog.Registration{
		Username:  cmd.String("username"),
		Email:     cmd.String("email"),
		FirstName: cmd.String("first-name"),
		LastName:  cmd.String("last-name"),
		Password:  pass,
	}
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	token, err := r.client.Register(actx, reg)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if token == "" {
		if token, err = r.client.Login(actx, reg.Username, reg.Password); err != nil {
			return fmt.Errorf("registered, but login failed: %w", err)
		}
	}
	if err := r.session.Save(token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	r.logger.Info("registered", slog.String("user", reg.Username))
	return r.writePlain("✓ Registered and logged in as %s\n", reg.Username)
}

func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if err := r.session.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	r.client.SetToken("")
	return r.writePlain("✓ Logged out\n")
}

func (r *Runner) Whoami(ctx context.Context, cmd *cli.Command) error {
	token, err := r.session.Token()
	if errors.Is(err, api.ErrUnauthorized) {
		return r.writePlain("Not logged in\n")
	}
	if err != nil {
		return err
	}
	actx, cancel := r.apiContext(ctx)
	defer cancel()
	me, err := r.client.Me(actx)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	name := strings.TrimSpace(me.FirstName + " " + me.LastName)
	if name == "" {
		name = me.Username
	}
	if err := r.writePlain("%s <%s> (%s)\n", name, me.Email, me.Username); err != nil {
		return err
	}
	if exp := r.session.Expiry(token); !exp.IsZero() {
		return r.writePlain("Session expires %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}
