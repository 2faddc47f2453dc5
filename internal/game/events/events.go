// Package events tracks which seasonal events are active and pays out
// their scripted rewards.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fazenda/internal/clock"
	"github.com/cory-johannsen/fazenda/internal/game/progression"
	"github.com/cory-johannsen/fazenda/internal/gamedata"
	"github.com/cory-johannsen/fazenda/internal/scripting"
	"github.com/cory-johannsen/fazenda/internal/storage"
)

var (
	ErrUnknownEvent   = errors.New("events: unknown event")
	ErrInactive       = errors.New("events: event is not active")
	ErrAlreadyClaimed = errors.New("events: reward already claimed this season")
)

// Manager owns the active-event set of one save slot.
//
// All methods are safe for concurrent use.
type Manager struct {
	store   *progression.Store
	kv      storage.KV
	catalog *gamedata.Catalog
	runner  *scripting.Runner
	clk     clock.Clock
	logger  *zap.Logger
	scripts map[string]*scripting.Script

	mu     sync.Mutex
	active []string
}

// NewManager compiles every event's reward script.
//
// Precondition: all arguments must be non-nil.
// Postcondition: Returns a Manager with no active events, or the first compile error.
func NewManager(store *progression.Store, kv storage.KV, catalog *gamedata.Catalog, runner *scripting.Runner, clk clock.Clock, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		store:   store,
		kv:      kv,
		catalog: catalog,
		runner:  runner,
		clk:     clk,
		logger:  logger,
		scripts: make(map[string]*scripting.Script),
	}
	for _, def := range catalog.Events() {
		s, err := scripting.Compile(def.ID, def.Script)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", def.ID, err)
		}
		m.scripts[def.ID] = s
	}
	return m, nil
}

// Load reads the persisted active set. A missing or malformed value and
// ids with no definition are dropped.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = nil
	data, err := m.kv.Get(ctx, storage.KeyActiveEvents)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading active events: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		m.logger.Warn("ignoring malformed active events", zap.ByteString("value", data), zap.Error(err))
		return nil
	}
	for _, id := range ids {
		if _, ok := m.catalog.Event(id); !ok {
			m.logger.Warn("dropping unknown active event", zap.String("event", id))
			continue
		}
		if !slices.Contains(m.active, id) {
			m.active = append(m.active, id)
		}
	}
	slices.Sort(m.active)
	return nil
}

// Active returns the active event ids, sorted.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.active)
}

// IsActive reports whether id is active.
func (m *Manager) IsActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, found := slices.BinarySearch(m.active, id)
	return found
}

// Refresh makes the active set exactly the events whose window contains
// now. The set is persisted only when it changes.
//
// Postcondition: Returns the ids that became active and those that ended.
func (m *Manager) Refresh(ctx context.Context, now time.Time) (started, ended []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var next []string
	for _, def := range m.catalog.Events() {
		if def.Window.Contains(now) {
			next = append(next, def.ID)
		}
	}
	for _, id := range next {
		if !slices.Contains(m.active, id) {
			started = append(started, id)
		}
	}
	for _, id := range m.active {
		if !slices.Contains(next, id) {
			ended = append(ended, id)
		}
	}
	if len(started) == 0 && len(ended) == 0 {
		return nil, nil, nil
	}

	m.active = next
	for _, id := range started {
		m.logger.Info("seasonal event started", zap.String("event", id))
	}
	for _, id := range ended {
		m.logger.Info("seasonal event ended", zap.String("event", id))
	}
	return started, ended, m.persistLocked(ctx)
}

func (m *Manager) persistLocked(ctx context.Context) error {
	ids := m.active
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding active events: %w", err)
	}
	if err := m.kv.Put(ctx, storage.KeyActiveEvents, data); err != nil {
		m.logger.Error("saving active events failed", zap.Error(err))
		return fmt.Errorf("saving active events: %w", err)
	}
	return nil
}

// ClaimAchievement is the achievement recording that the reward of event
// id was claimed in the season starting in year.
func ClaimAchievement(id string, year int) string {
	return "event:" + id + ":" + strconv.Itoa(year)
}

// seasonYear is the year in which the occurrence of w containing now began.
func seasonYear(w gamedata.Window, now time.Time) int {
	day := gamedata.MonthDay{Month: now.Month(), Day: now.Day()}
	if w.Wraps() && day.Before(w.Start) {
		return now.Year() - 1
	}
	return now.Year()
}

// Claim runs the reward script of an active event against the player,
// once per season.
//
// Postcondition: On error the player state is unchanged.
func (m *Manager) Claim(ctx context.Context, id string) error {
	def, ok := m.catalog.Event(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, id)
	}
	if !m.IsActive(id) {
		return fmt.Errorf("%w: %q", ErrInactive, id)
	}
	achievement := ClaimAchievement(id, seasonYear(def.Window, m.clk.Now()))
	err := m.store.Apply(ctx, func(p *progression.PlayerState) error {
		if p.HasAchievement(achievement) {
			return fmt.Errorf("%w: %q", ErrAlreadyClaimed, id)
		}
		if err := m.runner.RunReward(ctx, m.scripts[id], p); err != nil {
			return err
		}
		p.UnlockAchievement(achievement)
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("event reward claimed", zap.String("event", id))
	return nil
}
