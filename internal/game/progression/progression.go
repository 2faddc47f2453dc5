package progression

import (
	"fmt"
	"sort"
)

// AddXP adds player XP and applies every level-up it pays for. The
// threshold is recomputed at each level, and the remainder carries over.
// Any level-up recomputes MaxEnergy and restores Energy to full.
//
// XP saturates at MaxAmount.
//
// Precondition: amount >= 0.
// Postcondition: Returns the number of levels gained, or ErrNegativeAmount with p unchanged.
func (p *PlayerState) AddXP(amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("adding %d player xp: %w", amount, ErrNegativeAmount)
	}
	p.XP = addCapped(p.XP, amount)
	gained := 0
	for p.XP >= XPToNextLevel(p.Level) {
		p.XP -= XPToNextLevel(p.Level)
		p.Level++
		gained++
	}
	if gained > 0 {
		p.restore()
	}
	return gained, nil
}

// AddSkillXP applies the AddXP rule to one skill. Because MaxEnergy depends
// on every skill level, a skill level-up also recomputes the global
// MaxEnergy and restores Energy to full.
//
// Precondition: skill must be valid; amount >= 0.
// Postcondition: Returns levels gained, or ErrUnknownSkill/ErrNegativeAmount with p unchanged.
func (p *PlayerState) AddSkillXP(skill Skill, amount int) (int, error) {
	if !skill.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSkill, skill)
	}
	if amount < 0 {
		return 0, fmt.Errorf("adding %d %s xp: %w", amount, skill, ErrNegativeAmount)
	}
	sp, ok := p.Skills[skill]
	if !ok {
		sp = SkillProgress{Level: 1}
	}
	sp.XP = addCapped(sp.XP, amount)
	gained := 0
	for sp.XP >= XPToNextLevel(sp.Level) {
		sp.XP -= XPToNextLevel(sp.Level)
		sp.Level++
		gained++
	}
	p.Skills[skill] = sp
	if gained > 0 {
		p.restore()
	}
	return gained, nil
}

// AddEnergy adds amount to Energy, clamped to [0, MaxEnergy]. It never
// raises MaxEnergy.
//
// Postcondition: Returns the change actually applied.
func (p *PlayerState) AddEnergy(amount int) int {
	before := p.Energy
	p.Energy = clamp(addCapped(p.Energy, amount), 0, p.MaxEnergy)
	return p.Energy - before
}

// SpendEnergy removes n energy.
//
// Postcondition: Returns ErrInsufficientEnergy with p unchanged if n > Energy.
func (p *PlayerState) SpendEnergy(n int) error {
	if n < 0 {
		return fmt.Errorf("spending %d energy: %w", n, ErrNegativeAmount)
	}
	if n > p.Energy {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientEnergy, n, p.Energy)
	}
	p.Energy -= n
	return nil
}

// AddGold adds amount to Gold, clamped to [0, MaxAmount], and returns the
// new balance.
func (p *PlayerState) AddGold(amount int) int {
	p.Gold = addCapped(p.Gold, amount)
	if p.Gold < 0 {
		p.Gold = 0
	}
	return p.Gold
}

// ItemCount returns how many of id the player holds.
func (p *PlayerState) ItemCount(id string) int {
	return p.Inventory[id]
}

// AddItem adds n of id to the inventory. A stack saturates at MaxAmount.
func (p *PlayerState) AddItem(id string, n int) error {
	if n < 0 {
		return fmt.Errorf("adding %d %q: %w", n, id, ErrNegativeAmount)
	}
	if id == "" {
		return fmt.Errorf("item id must not be empty")
	}
	p.Inventory[id] = addCapped(p.Inventory[id], n)
	return nil
}

// RemoveItem removes n of id from the inventory. A stack reduced to zero
// is dropped from the map.
//
// Postcondition: Returns ErrInsufficientItems with p unchanged if fewer than n are held.
func (p *PlayerState) RemoveItem(id string, n int) error {
	if n < 0 {
		return fmt.Errorf("removing %d %q: %w", n, id, ErrNegativeAmount)
	}
	have := p.Inventory[id]
	if have < n {
		return fmt.Errorf("%w: %q need %d, have %d", ErrInsufficientItems, id, n, have)
	}
	if have == n {
		delete(p.Inventory, id)
		return nil
	}
	p.Inventory[id] = have - n
	return nil
}

// UnlockAchievement records id. Returns false if it was already unlocked.
func (p *PlayerState) UnlockAchievement(id string) bool {
	if _, ok := p.Achievements[id]; ok {
		return false
	}
	p.Achievements[id] = struct{}{}
	return true
}

// HasAchievement reports whether id is unlocked.
func (p *PlayerState) HasAchievement(id string) bool {
	_, ok := p.Achievements[id]
	return ok
}

// AchievementList returns the unlocked achievements sorted.
func (p *PlayerState) AchievementList() []string {
	out := make([]string, 0, len(p.Achievements))
	for id := range p.Achievements {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Reward is a bundle granted by quests and events.
type Reward struct {
	Gold    int            `yaml:"gold" json:"gold"`
	XP      int            `yaml:"xp" json:"xp"`
	SkillXP map[string]int `yaml:"skill_xp" json:"skillXp"`
	Energy  int            `yaml:"energy" json:"energy"`
	Items   map[string]int `yaml:"items" json:"items"`
}

// Validate checks that every amount is non-negative and every skill is known.
func (r Reward) Validate() error {
	if r.Gold < 0 || r.XP < 0 || r.Energy < 0 {
		return fmt.Errorf("reward: %w", ErrNegativeAmount)
	}
	for name, xp := range r.SkillXP {
		if _, err := ParseSkill(name); err != nil {
			return fmt.Errorf("reward: %w", err)
		}
		if xp < 0 {
			return fmt.Errorf("reward: %s xp: %w", name, ErrNegativeAmount)
		}
	}
	for id, n := range r.Items {
		if id == "" || n < 0 {
			return fmt.Errorf("reward: item %q count %d: %w", id, n, ErrNegativeAmount)
		}
	}
	return nil
}

// Grant applies r: gold, player XP, skill XP in name order, energy, items.
//
// Postcondition: Returns the validation error with p unchanged on an invalid reward.
func (p *PlayerState) Grant(r Reward) error {
	if err := r.Validate(); err != nil {
		return err
	}
	p.AddGold(r.Gold)
	if _, err := p.AddXP(r.XP); err != nil {
		return err
	}
	skills := make([]string, 0, len(r.SkillXP))
	for name := range r.SkillXP {
		skills = append(skills, name)
	}
	sort.Strings(skills)
	for _, name := range skills {
		if _, err := p.AddSkillXP(Skill(name), r.SkillXP[name]); err != nil {
			return err
		}
	}
	p.AddEnergy(r.Energy)
	for id, n := range r.Items {
		if err := p.AddItem(id, n); err != nil {
			return err
		}
	}
	return nil
}

// restore recomputes MaxEnergy and fills Energy to it.
func (p *PlayerState) restore() {
	p.MaxEnergy = CalculateMaxEnergy(p.Level, p.Skills)
	p.Energy = p.MaxEnergy
}

// addCapped returns a+b, saturating at MaxAmount.
//
// Precondition: a <= MaxAmount.
func addCapped(a, b int) int {
	if b > MaxAmount-a {
		return MaxAmount
	}
	return a + b
}
