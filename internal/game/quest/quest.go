// Package quest completes quests against the player's inventory.
package quest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fazenda/internal/game/progression"
	"github.com/cory-johannsen/fazenda/internal/gamedata"
)

var (
	ErrUnknownQuest     = errors.New("quest: unknown quest")
	ErrAlreadyCompleted = errors.New("quest: already completed")
	ErrLevelTooLow      = errors.New("quest: player level too low")
)

// AchievementID is the achievement recording completion of quest id.
func AchievementID(id string) string {
	return "quest:" + id
}

// Service completes quests through a progression.Store.
type Service struct {
	store   *progression.Store
	catalog *gamedata.Catalog
	logger  *zap.Logger
}

// NewService creates a Service.
//
// Precondition: all arguments must be non-nil.
func NewService(store *progression.Store, catalog *gamedata.Catalog, logger *zap.Logger) *Service {
	return &Service{store: store, catalog: catalog, logger: logger}
}

// Complete consumes the quest's required items, grants its reward and
// records it as completed.
//
// Postcondition: On error the player state is unchanged.
func (s *Service) Complete(ctx context.Context, questID string) (*gamedata.QuestDef, error) {
	def, ok := s.catalog.Quest(questID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuest, questID)
	}
	err := s.store.Apply(ctx, func(p *progression.PlayerState) error {
		if p.HasAchievement(AchievementID(def.ID)) {
			return fmt.Errorf("%w: %q", ErrAlreadyCompleted, def.ID)
		}
		if p.Level < def.MinLevel {
			return fmt.Errorf("%w: need %d, have %d", ErrLevelTooLow, def.MinLevel, p.Level)
		}
		items := make([]string, 0, len(def.Requires))
		for id := range def.Requires {
			items = append(items, id)
		}
		sort.Strings(items)
		for _, id := range items {
			if err := p.RemoveItem(id, def.Requires[id]); err != nil {
				return err
			}
		}
		if err := p.Grant(def.Reward); err != nil {
			return err
		}
		p.UnlockAchievement(AchievementID(def.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("quest completed", zap.String("quest", def.ID))
	return def, nil
}

// Available returns the quests not yet completed whose level requirement is met.
func (s *Service) Available() []*gamedata.QuestDef {
	p := s.store.Player()
	var out []*gamedata.QuestDef
	for _, def := range s.catalog.Quests() {
		if !p.HasAchievement(AchievementID(def.ID)) && p.Level >= def.MinLevel {
			out = append(out, def)
		}
	}
	return out
}
