package progression

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/cory-johannsen/fazenda/internal/clock"
	"github.com/cory-johannsen/fazenda/internal/storage"
)

// Natural regeneration defaults.
const (
	DefaultRegenInterval = 60 * time.Second
	DefaultRegenAmount   = 1
)

// Store owns the PlayerState of one save slot. Every successful mutation
// is persisted immediately; a failed write is logged and not retried, and
// play continues on the in-memory state.
//
// All methods are safe for concurrent use.
type Store struct {
	kv            storage.KV
	clk           clock.Clock
	logger        *zap.Logger
	regenInterval time.Duration
	regenAmount   int

	mu        sync.Mutex
	player    *PlayerState
	lastRegen time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRegen overrides the natural regeneration period and amount.
//
// Precondition: interval > 0; amount >= 1.
func WithRegen(interval time.Duration, amount int) Option {
	return func(s *Store) {
		s.regenInterval = interval
		s.regenAmount = amount
	}
}

// NewStore returns a Store holding a new game. Call Load to resume a save.
//
// Precondition: kv, clk, and logger must be non-nil.
func NewStore(kv storage.KV, clk clock.Clock, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		kv:            kv,
		clk:           clk,
		logger:        logger,
		regenInterval: DefaultRegenInterval,
		regenAmount:   DefaultRegenAmount,
		player:        NewPlayerState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted one, routed through
// Migrate. A slot with no save starts a new game. A migrated save is
// written back immediately.
//
// Postcondition: On a storage read error the in-memory state is left
// untouched and the error is returned.
func (s *Store) Load(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.kv.Get(ctx, storage.KeyPlayer)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.player = NewPlayerState()
		s.logger.Info("no save found, starting new game",
			zap.String("save_id", s.player.SaveID),
		)
		_ = s.persistLocked(ctx)
		s.lastRegen = s.clk.Now()
		_ = s.persistRegenLocked(ctx)
		return Report{FromVersion: SchemaVersion}, nil
	case err != nil:
		s.logger.Error("loading save failed, continuing in memory", zap.Error(err))
		return Report{}, fmt.Errorf("loading player state: %w", err)
	}

	p, rep := Migrate(data)
	s.player = p
	s.loadRegenLocked(ctx)

	fields := []zap.Field{
		zap.String("save_id", p.SaveID),
		zap.Int("level", p.Level),
		zap.Int("energy", p.Energy),
		zap.Int("max_energy", p.MaxEnergy),
	}
	if rep.Changed() {
		s.logger.Info("save migrated", append(fields,
			zap.Int("from_version", rep.FromVersion),
			zap.Int("to_version", SchemaVersion),
			zap.Strings("defaulted", rep.Defaulted),
			zap.Int("stored_max_energy", rep.StoredMaxEnergy),
			zap.Bool("stale_max_energy", rep.StaleMaxEnergy),
			zap.Bool("energy_clamped", rep.EnergyClamped),
		)...)
		_ = s.persistLocked(ctx)
	} else {
		s.logger.Info("save loaded", fields...)
	}
	return rep, nil
}

// Save persists the current state.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// Reset discards the save slot and starts a new game.
//
// Postcondition: The in-memory state is a new game even when clearing storage fails.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.player.SaveID
	s.player = NewPlayerState()
	s.lastRegen = s.clk.Now()
	if err := storage.Clear(ctx, s.kv); err != nil {
		s.logger.Error("clearing save slot failed", zap.Error(err))
		return fmt.Errorf("resetting save slot: %w", err)
	}
	s.logger.Info("save slot reset",
		zap.String("old_save_id", old),
		zap.String("save_id", s.player.SaveID),
	)
	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	return s.persistRegenLocked(ctx)
}

// Player returns a snapshot of the current state.
func (s *Store) Player() *PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Clone()
}

// Apply runs fn against a working copy of the state. If fn returns an
// error the state is left untouched and nothing is written; otherwise the
// copy becomes the state and is persisted.
//
// Postcondition: Returns fn's error, never a storage error.
func (s *Store) Apply(ctx context.Context, fn func(p *PlayerState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.player.Clone()
	if err := fn(work); err != nil {
		return err
	}
	before := s.player
	s.player = work
	s.logProgressLocked(before, work)
	_ = s.persistLocked(ctx)
	return nil
}

// AddXP adds player XP. See PlayerState.AddXP.
func (s *Store) AddXP(ctx context.Context, amount int) (int, error) {
	var gained int
	err := s.Apply(ctx, func(p *PlayerState) error {
		var err error
		gained, err = p.AddXP(amount)
		return err
	})
	return gained, err
}

// AddSkillXP adds XP to the named skill. See PlayerState.AddSkillXP.
func (s *Store) AddSkillXP(ctx context.Context, skill string, amount int) (int, error) {
	var gained int
	err := s.Apply(ctx, func(p *PlayerState) error {
		var err error
		gained, err = p.AddSkillXP(Skill(skill), amount)
		return err
	})
	return gained, err
}

// AddEnergy adds energy, clamped to the ceiling. Returns the applied change.
func (s *Store) AddEnergy(ctx context.Context, amount int) int {
	var applied int
	_ = s.Apply(ctx, func(p *PlayerState) error {
		applied = p.AddEnergy(amount)
		return nil
	})
	return applied
}

// AddGold adds gold with a floor of zero. Returns the new balance.
func (s *Store) AddGold(ctx context.Context, amount int) int {
	var balance int
	_ = s.Apply(ctx, func(p *PlayerState) error {
		balance = p.AddGold(amount)
		return nil
	})
	return balance
}

// Plot returns the plot at index i.
func (s *Store) Plot(i int) (Plot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Plot(i)
}

// Plots returns a copy of every plot.
func (s *Store) Plots() [PlotCount]Plot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Plots
}

// SetPlot replaces the plot at index i.
func (s *Store) SetPlot(ctx context.Context, i int, plot Plot) error {
	return s.Apply(ctx, func(p *PlayerState) error {
		return p.SetPlot(i, plot)
	})
}

// Regenerate grants regenAmount energy per whole regen interval elapsed
// since the last regen tick, stopping at the ceiling. The tick timestamp
// advances by whole intervals even when energy is full, so regeneration
// never banks. The first call only records now.
//
// Postcondition: Returns the energy gained.
func (s *Store) Regenerate(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRegen.IsZero() || now.Before(s.lastRegen) {
		s.lastRegen = now
		return 0, s.persistRegenLocked(ctx)
	}
	ticks := int(now.Sub(s.lastRegen) / s.regenInterval)
	if ticks == 0 {
		return 0, nil
	}
	s.lastRegen = s.lastRegen.Add(time.Duration(ticks) * s.regenInterval)

	gained := 0
	if s.player.Energy < s.player.MaxEnergy {
		gained = s.player.AddEnergy(ticks * s.regenAmount)
		s.logger.Debug("energy regenerated",
			zap.Int("ticks", ticks),
			zap.Int("gained", gained),
			zap.Int("energy", s.player.Energy),
		)
		_ = s.persistLocked(ctx)
	}
	return gained, s.persistRegenLocked(ctx)
}

// LastRegen returns the time of the last regen tick; zero if none.
func (s *Store) LastRegen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRegen
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := Encode(s.player)
	if err != nil {
		s.logger.Error("encoding player state failed", zap.Error(err))
		return err
	}
	if err := s.kv.Put(ctx, storage.KeyPlayer, data); err != nil {
		s.logger.Error("saving player state failed", zap.Error(err))
		return fmt.Errorf("saving player state: %w", err)
	}
	return nil
}

func (s *Store) persistRegenLocked(ctx context.Context) error {
	value := strconv.FormatInt(s.lastRegen.UnixMilli(), 10)
	if err := s.kv.Put(ctx, storage.KeyLastRegen, []byte(value)); err != nil {
		s.logger.Warn("saving regen timestamp failed", zap.Error(err))
		return fmt.Errorf("saving regen timestamp: %w", err)
	}
	return nil
}

// loadRegenLocked reads the last regen tick. A missing or malformed value
// leaves it zero so the next Regenerate starts counting from then.
func (s *Store) loadRegenLocked(ctx context.Context) {
	s.lastRegen = time.Time{}
	data, err := s.kv.Get(ctx, storage.KeyLastRegen)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("loading regen timestamp failed", zap.Error(err))
		}
		return
	}
	r := gjson.ParseBytes(data)
	if r.Type != gjson.Number || r.Int() <= 0 {
		s.logger.Warn("ignoring malformed regen timestamp", zap.ByteString("value", data))
		return
	}
	s.lastRegen = time.UnixMilli(r.Int())
}

func (s *Store) logProgressLocked(before, after *PlayerState) {
	if after.Level > before.Level {
		s.logger.Info("player leveled up",
			zap.Int("from", before.Level),
			zap.Int("to", after.Level),
			zap.Int("max_energy", after.MaxEnergy),
		)
	}
	for _, sk := range AllSkills {
		if after.Skills[sk].Level > before.Skills[sk].Level {
			s.logger.Info("skill leveled up",
				zap.String("skill", string(sk)),
				zap.Int("from", before.Skills[sk].Level),
				zap.Int("to", after.Skills[sk].Level),
				zap.Int("max_energy", after.MaxEnergy),
			)
		}
	}
}
