package catalog

import "errors"

var (
	ErrNotFound      = errors.New("catalog: not found")
	ErrUnauthorized  = errors.New("catalog: unauthorized")
	ErrOffline       = errors.New("catalog: offline")
	ErrRateLimited   = errors.New("catalog: rate limited")
	ErrInvalidInput  = errors.New("catalog: invalid input")
	ErrInvalidConfig = errors.New("catalog: invalid config")
)

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
func IsOffline(err error) bool      { return errors.Is(err, ErrOffline) }
func IsRateLimited(err error) bool  { return errors.Is(err, ErrRateLimited) }
