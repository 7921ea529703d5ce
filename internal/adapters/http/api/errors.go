package api

import (
	"errors"
	"net/http"

	"github.com/okian/trio/internal/adapters/repository"
	"github.com/okian/trio/internal/domain/balance"
	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/internal/domain/triangular"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeded")
)

// Error records the handler operation that failed along with its kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// classify maps an error to its HTTP status and response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, triangular.ErrMalformedTriangular):
		return http.StatusUnprocessableEntity, "malformed_triangular"
	case errors.Is(err, balance.ErrInsufficientPlayers):
		return http.StatusUnprocessableEntity, "insufficient_players"
	case errors.Is(err, balance.ErrDuplicatePlayer):
		return http.StatusUnprocessableEntity, "duplicate_player"
	case errors.Is(err, model.ErrInvalidSeason):
		return http.StatusUnprocessableEntity, "invalid_season"
	case errors.Is(err, model.ErrInvalidPlayer):
		return http.StatusUnprocessableEntity, "invalid_player"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrSeasonClosed):
		return http.StatusConflict, "season_closed"
	case errors.Is(err, repository.ErrTriangularExists):
		return http.StatusConflict, "triangular_exists"
	case errors.Is(err, repository.ErrSeasonExists):
		return http.StatusConflict, "season_exists"
	case errors.Is(err, repository.ErrPlayerExists):
		return http.StatusConflict, "player_exists"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "duplicate_match"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
