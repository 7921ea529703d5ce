package model

import (
	"fmt"
	"strings"
	"time"
)

// Season groups triangulars by date. At most one season is open (FinishDate nil).
type Season struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	InitDate   time.Time  `json:"init_date"`
	FinishDate *time.Time `json:"finish_date,omitempty"`
}

// Active reports whether the season is still open.
func (s Season) Active() bool { return s.FinishDate == nil }

// Validate checks that the season has a name, a start date and, when
// closed, does not finish before it starts.
func (s Season) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidSeason)
	case s.InitDate.IsZero():
		return fmt.Errorf("%w: init date is required", ErrInvalidSeason)
	case s.FinishDate != nil && s.FinishDate.Before(s.InitDate):
		return fmt.Errorf("%w: finish date %s is before init date %s",
			ErrInvalidSeason, s.FinishDate.Format(time.DateOnly), s.InitDate.Format(time.DateOnly))
	}
	return nil
}

// SeasonScope selects which triangulars a read covers.
type SeasonScope string

const (
	ScopeActive SeasonScope = "active"
	ScopeAll    SeasonScope = "all"
	ScopeSeason SeasonScope = "season"
)

// SeasonFilter is resolved by the store; the engine never interprets it.
type SeasonFilter struct {
	Scope    SeasonScope `json:"scope"`
	SeasonID string      `json:"season_id,omitempty"`
}

// ActiveSeason is the default filter.
func ActiveSeason() SeasonFilter { return SeasonFilter{Scope: ScopeActive} }

// AllSeasons covers every triangular ever played.
func AllSeasons() SeasonFilter { return SeasonFilter{Scope: ScopeAll} }

// ForSeason restricts reads to one season.
func ForSeason(id string) SeasonFilter { return SeasonFilter{Scope: ScopeSeason, SeasonID: id} }

// ParseSeasonFilter maps a query value to a filter: "" or "active", "all",
// anything else is taken as a season id.
func ParseSeasonFilter(v string) SeasonFilter {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", string(ScopeActive):
		return ActiveSeason()
	case string(ScopeAll):
		return AllSeasons()
	default:
		return ForSeason(strings.TrimSpace(v))
	}
}

// Matches reports whether a triangular of seasonID falls under the filter,
// given the id of the currently active season. When no season is open
// activeID is "" and the active scope covers triangulars played outside
// any season.
func (f SeasonFilter) Matches(seasonID, activeID string) bool {
	switch f.Scope {
	case ScopeAll:
		return true
	case ScopeSeason:
		return seasonID == f.SeasonID
	default:
		return seasonID == activeID
	}
}
