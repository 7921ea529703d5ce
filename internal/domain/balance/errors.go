package balance

import "errors"

// Sentinel errors returned by Balance.
var (
	ErrInsufficientPlayers = errors.New("insufficient players")
	ErrDuplicatePlayer     = errors.New("duplicate player")
)
