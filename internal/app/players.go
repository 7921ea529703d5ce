package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/pkg/logger"
)

// RegisterPlayer stores a new league member. A missing id is generated; a
// known id yields repository.ErrPlayerExists.
func (s *Service) RegisterPlayer(ctx context.Context, p model.Player) (model.Player, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if err := p.Validate(); err != nil {
		return model.Player{}, err
	}
	if err := s.store.SavePlayer(ctx, p); err != nil {
		return model.Player{}, err
	}
	s.logger.Info(ctx, "player registered", logger.String("player_id", p.ID))
	return p, nil
}

// Players lists registered players ordered by id.
func (s *Service) Players(ctx context.Context) ([]model.Player, error) {
	return s.store.Players(ctx)
}

// Player returns one registered player.
func (s *Service) Player(ctx context.Context, id string) (model.Player, error) {
	return s.store.Player(ctx, id)
}

// PlayerMatches returns every match the player's team played, oldest first.
func (s *Service) PlayerMatches(ctx context.Context, playerID string) ([]model.Match, error) {
	return s.store.PlayerMatches(ctx, playerID)
}

// PersistedPlayerStats returns the snapshot written by the last recompute
// or full recalculation. It always spans every season.
func (s *Service) PersistedPlayerStats(ctx context.Context, playerID string) (model.PlayerStats, error) {
	return s.store.PlayerStats(ctx, playerID)
}
