package progression

import "fmt"

// Skill names one of the fixed progression tracks.
type Skill string

const (
	SkillFarming     Skill = "farming"
	SkillMining      Skill = "mining"
	SkillFishing     Skill = "fishing"
	SkillCooking     Skill = "cooking"
	SkillWoodcutting Skill = "woodcutting"
	SkillCrafting    Skill = "crafting"
	SkillSmithing    Skill = "smithing"
	SkillForaging    Skill = "foraging"
)

// AllSkills lists every recognised skill in display order.
var AllSkills = []Skill{
	SkillFarming,
	SkillMining,
	SkillFishing,
	SkillCooking,
	SkillWoodcutting,
	SkillCrafting,
	SkillSmithing,
	SkillForaging,
}

// Valid reports whether s is one of AllSkills.
func (s Skill) Valid() bool {
	for _, known := range AllSkills {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSkill converts name to a Skill.
//
// Postcondition: Returns ErrUnknownSkill wrapped with the name when name is not recognised.
func ParseSkill(name string) (Skill, error) {
	s := Skill(name)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSkill, name)
	}
	return s, nil
}

// SkillProgress is one skill's level and XP toward its next level.
type SkillProgress struct {
	Level int
	XP    int
}

// NewSkills returns every skill at level 1 with no XP.
func NewSkills() map[Skill]SkillProgress {
	skills := make(map[Skill]SkillProgress, len(AllSkills))
	for _, s := range AllSkills {
		skills[s] = SkillProgress{Level: 1}
	}
	return skills
}
