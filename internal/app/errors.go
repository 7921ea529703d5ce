package service

import (
	"fmt"

	"github.com/okian/trio/internal/adapters/repository"
)

// ErrDuplicateMatch is returned when a match id was already submitted. It
// wraps repository.ErrConflict.
var ErrDuplicateMatch = fmt.Errorf("duplicate match: %w", repository.ErrConflict)
