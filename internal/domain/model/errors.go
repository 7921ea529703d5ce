package model

import "errors"

var (
	ErrInvalidSeason = errors.New("invalid season")
	ErrInvalidPlayer = errors.New("invalid player")
	// ErrSeasonClosed is returned when closing a season that already finished.
	ErrSeasonClosed = errors.New("season already closed")
)
