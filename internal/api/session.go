package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenFile = "token"

// Session persists the bearer token between runs. The token is only
// inspected for expiry; the signature is the backend's concern.
type Session struct {
	path string
	now  func() time.Time
}

func NewSession(stateDir string) *Session {
	return &Session{path: filepath.Join(stateDir, tokenFile), now: time.Now}
}

func (s *Session) Path() string { return s.path }

// Token returns the stored token, discarding it when it has expired.
func (s *Session) Token() (string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrUnauthorized
		}
		return "", err
	}
	token := strings.TrimSpace(string(b))
	if err := s.check(token); err != nil {
		_ = s.Clear()
		return "", err
	}
	return token, nil
}

func (s *Session) check(token string) error {
	if token == "" {
		return ErrUnauthorized
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if exp != nil && !s.now().Before(exp.Time) {
		return fmt.Errorf("%w: token expired", ErrUnauthorized)
	}
	return nil
}

// Expiry reports when the token stops being accepted; zero if it never does.
func (s *Session) Expiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (s *Session) Save(token string) error {
	if err := s.check(token); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token+"\n"), 0o600)
}

func (s *Session) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
