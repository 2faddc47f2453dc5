package progression

// Progression policy.
const (
	// BaseMaxEnergy is the energy ceiling of a level 1 player with level 1 skills.
	BaseMaxEnergy = 100
	// EnergyPerPlayerLevel is added to the ceiling per player level above 1.
	EnergyPerPlayerLevel = 5
	// EnergyPerSkillLevel is added to the ceiling per skill level above 1, per skill.
	EnergyPerSkillLevel = 5
	// XPPerLevel scales the XP needed to leave a level: level * XPPerLevel.
	XPPerLevel = 100
	// MaxAmount caps every counter (gold, xp, item counts). Saves are JSON,
	// and integers above it do not survive a float64 decode exactly.
	MaxAmount = 1<<53 - 1
)

// CalculateMaxEnergy derives the energy ceiling from the player level and
// every skill level. Skills absent from the map count as level 1.
//
// Postcondition: Returns 100 + (level-1)*5 + Σ (skillLevel-1)*5.
func CalculateMaxEnergy(level int, skills map[Skill]SkillProgress) int {
	ceiling := BaseMaxEnergy + (level-1)*EnergyPerPlayerLevel
	for _, sp := range skills {
		ceiling += (sp.Level - 1) * EnergyPerSkillLevel
	}
	return ceiling
}

// XPToNextLevel is the XP that must be accumulated at level to reach level+1.
// The same threshold applies to the player and to each skill.
func XPToNextLevel(level int) int {
	return level * XPPerLevel
}
