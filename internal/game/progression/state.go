// Package progression owns the player's persistent state: levels, skills,
// energy, gold, inventory, achievements and farm plots. It derives the
// energy ceiling, enforces the state invariants, and migrates old saves.
package progression

import (
	"fmt"

	"github.com/google/uuid"
)

// Defaults for a new game.
const (
	PlotCount      = 9
	StartingGold   = 100
	StartingEnergy = 100
)

// StartingInventory is the kit every new game begins with.
func StartingInventory() map[string]int {
	return map[string]int{
		"hoe":          1,
		"watering_can": 1,
		"wheat_seed":   5,
		"carrot_seed":  3,
	}
}

// PlotState is the growth stage of a farm plot.
type PlotState string

const (
	PlotEmpty PlotState = "empty"
	PlotSeed  PlotState = "seed"
	PlotGrown PlotState = "grown"
)

// Valid reports whether s is a known plot state.
func (s PlotState) Valid() bool {
	switch s {
	case PlotEmpty, PlotSeed, PlotGrown:
		return true
	}
	return false
}

// Plot is one cell of the farm grid.
//
// Invariant: an empty plot has no CropID and a zero PlantedAt.
type Plot struct {
	State PlotState
	// CropID references a crop definition; empty when State is PlotEmpty.
	CropID string
	// PlantedAt is the unix-millisecond planting time; 0 when State is PlotEmpty.
	PlantedAt int64
}

// Validate checks the plot invariants.
func (p Plot) Validate() error {
	if !p.State.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidPlot, p.State)
	}
	if p.State == PlotEmpty && (p.CropID != "" || p.PlantedAt != 0) {
		return fmt.Errorf("%w: empty plot carries crop data", ErrInvalidPlot)
	}
	if p.PlantedAt < 0 {
		return fmt.Errorf("%w: negative planted-at time", ErrInvalidPlot)
	}
	return nil
}

// PlayerState is the complete state of one save slot.
//
// Invariants:
//   - Level >= 1, XP >= 0, Gold >= 0
//   - MaxEnergy == CalculateMaxEnergy(Level, Skills)
//   - 0 <= Energy <= MaxEnergy
//   - Skills holds exactly AllSkills, each with Level >= 1 and XP >= 0
//   - every Inventory count is >= 0
type PlayerState struct {
	SaveID       string
	Level        int
	XP           int
	Gold         int
	Energy       int
	MaxEnergy    int
	Skills       map[Skill]SkillProgress
	Inventory    map[string]int
	Achievements map[string]struct{}
	Plots        [PlotCount]Plot
}

// NewPlayerState returns the state of a new game.
//
// Postcondition: All invariants hold; every plot is empty.
func NewPlayerState() *PlayerState {
	p := &PlayerState{
		SaveID:       uuid.NewString(),
		Level:        1,
		Gold:         StartingGold,
		Energy:       StartingEnergy,
		Skills:       NewSkills(),
		Inventory:    StartingInventory(),
		Achievements: make(map[string]struct{}),
	}
	for i := range p.Plots {
		p.Plots[i] = Plot{State: PlotEmpty}
	}
	p.recompute()
	return p
}

// Clone returns a deep copy of p.
func (p *PlayerState) Clone() *PlayerState {
	out := *p
	out.Skills = make(map[Skill]SkillProgress, len(p.Skills))
	for k, v := range p.Skills {
		out.Skills[k] = v
	}
	out.Inventory = make(map[string]int, len(p.Inventory))
	for k, v := range p.Inventory {
		out.Inventory[k] = v
	}
	out.Achievements = make(map[string]struct{}, len(p.Achievements))
	for k := range p.Achievements {
		out.Achievements[k] = struct{}{}
	}
	return &out
}

// Validate reports the first violated invariant, or nil.
func (p *PlayerState) Validate() error {
	switch {
	case p.Level < 1:
		return fmt.Errorf("level must be >= 1, got %d", p.Level)
	case p.XP < 0 || p.XP > MaxAmount:
		return fmt.Errorf("xp must be in [0, %d], got %d", MaxAmount, p.XP)
	case p.Gold < 0 || p.Gold > MaxAmount:
		return fmt.Errorf("gold must be in [0, %d], got %d", MaxAmount, p.Gold)
	case p.MaxEnergy != CalculateMaxEnergy(p.Level, p.Skills):
		return fmt.Errorf("max energy %d does not match derived %d", p.MaxEnergy, CalculateMaxEnergy(p.Level, p.Skills))
	case p.Energy < 0 || p.Energy > p.MaxEnergy:
		return fmt.Errorf("energy %d outside [0, %d]", p.Energy, p.MaxEnergy)
	case len(p.Skills) != len(AllSkills):
		return fmt.Errorf("expected %d skills, got %d", len(AllSkills), len(p.Skills))
	}
	for _, s := range AllSkills {
		sp, ok := p.Skills[s]
		if !ok {
			return fmt.Errorf("missing skill %q", s)
		}
		if sp.Level < 1 || sp.XP < 0 || sp.XP > MaxAmount {
			return fmt.Errorf("skill %q has level %d xp %d", s, sp.Level, sp.XP)
		}
	}
	for id, n := range p.Inventory {
		if n < 0 || n > MaxAmount {
			return fmt.Errorf("item %q count %d outside [0, %d]", id, n, MaxAmount)
		}
	}
	for i, plot := range p.Plots {
		if err := plot.Validate(); err != nil {
			return fmt.Errorf("plot %d: %w", i, err)
		}
	}
	return nil
}

// Plot returns the plot at index i.
func (p *PlayerState) Plot(i int) (Plot, error) {
	if i < 0 || i >= PlotCount {
		return Plot{}, fmt.Errorf("%w: %d", ErrPlotIndex, i)
	}
	return p.Plots[i], nil
}

// SetPlot replaces the plot at index i.
//
// Postcondition: Returns ErrPlotIndex or ErrInvalidPlot without modifying p on bad input.
func (p *PlayerState) SetPlot(i int, plot Plot) error {
	if i < 0 || i >= PlotCount {
		return fmt.Errorf("%w: %d", ErrPlotIndex, i)
	}
	if err := plot.Validate(); err != nil {
		return err
	}
	p.Plots[i] = plot
	return nil
}

// recompute derives MaxEnergy and re-clamps Energy into [0, MaxEnergy].
func (p *PlayerState) recompute() {
	p.MaxEnergy = CalculateMaxEnergy(p.Level, p.Skills)
	p.Energy = clamp(p.Energy, 0, p.MaxEnergy)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
