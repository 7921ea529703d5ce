package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trio/internal/adapters/repository"
	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/pkg/logger"
)

// Seasons lists every season ordered by start date.
func (s *Service) Seasons(ctx context.Context) ([]model.Season, error) {
	return s.store.Seasons(ctx)
}

// CreateSeason stores a new season. A missing id is generated and a missing
// init date defaults to now. Opening a season closes any season still open,
// finishing it when the new one starts.
func (s *Service) CreateSeason(ctx context.Context, season model.Season) (model.Season, error) {
	if season.ID == "" {
		season.ID = uuid.NewString()
	}
	if season.InitDate.IsZero() {
		season.InitDate = s.now()
	}
	if err := season.Validate(); err != nil {
		return model.Season{}, err
	}

	s.seasonMu.Lock()
	defer s.seasonMu.Unlock()

	seasons, err := s.store.Seasons(ctx)
	if err != nil {
		return model.Season{}, err
	}
	for _, prev := range seasons {
		if prev.ID == season.ID {
			return model.Season{}, fmt.Errorf("%q: %w", season.ID, repository.ErrSeasonExists)
		}
	}

	if season.Active() {
		for _, prev := range seasons {
			if !prev.Active() {
				continue
			}
			finish := season.InitDate
			if finish.Before(prev.InitDate) {
				finish = prev.InitDate
			}
			if err := s.finishSeason(ctx, prev, finish); err != nil {
				return model.Season{}, err
			}
		}
	}

	if err := s.store.SaveSeason(ctx, season); err != nil {
		return model.Season{}, err
	}
	s.logger.Info(ctx, "season created",
		logger.String("season_id", season.ID),
		logger.String("name", season.Name),
		logger.Bool("open", season.Active()),
	)
	return season, nil
}

// CloseSeason finishes an open season now. Triangulars created afterwards
// carry no season until another one opens.
func (s *Service) CloseSeason(ctx context.Context, id string) (model.Season, error) {
	s.seasonMu.Lock()
	defer s.seasonMu.Unlock()

	seasons, err := s.store.Seasons(ctx)
	if err != nil {
		return model.Season{}, err
	}
	for _, season := range seasons {
		if season.ID != id {
			continue
		}
		if !season.Active() {
			return model.Season{}, fmt.Errorf("%w: %q", model.ErrSeasonClosed, id)
		}
		finish := s.now()
		if finish.Before(season.InitDate) {
			finish = season.InitDate
		}
		if err := s.finishSeason(ctx, season, finish); err != nil {
			return model.Season{}, err
		}
		season.FinishDate = &finish
		return season, nil
	}
	return model.Season{}, fmt.Errorf("season %q: %w", id, repository.ErrNotFound)
}

// finishSeason assumes seasonMu is held.
func (s *Service) finishSeason(ctx context.Context, season model.Season, at time.Time) error {
	season.FinishDate = &at
	if err := s.store.SaveSeason(ctx, season); err != nil {
		return err
	}
	s.logger.Info(ctx, "season closed",
		logger.String("season_id", season.ID),
		logger.String("finish_date", at.Format(time.RFC3339)),
	)
	return nil
}
