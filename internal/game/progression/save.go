package progression

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is the save document version Encode writes. Documents
// without a schemaVersion field are version 1.
const SchemaVersion = 2

type skillRecord struct {
	Level int `json:"level"`
	XP    int `json:"xp"`
}

// saveRecord is the persisted document. Plots are stored as three
// index-aligned arrays.
type saveRecord struct {
	SchemaVersion int                   `json:"schemaVersion"`
	SaveID        string                `json:"saveId"`
	Level         int                   `json:"level"`
	XP            int                   `json:"xp"`
	Gold          int                   `json:"gold"`
	Energy        int                   `json:"energy"`
	MaxEnergy     int                   `json:"maxEnergy"`
	Skills        map[Skill]skillRecord `json:"skills"`
	Inventory     map[string]int        `json:"inventory"`
	Achievements  []string              `json:"achievements"`
	Crops         []PlotState           `json:"crops"`
	CropIDs       []string              `json:"cropIds"`
	PlantedAt     []int64               `json:"plantedAt"`
}

// Encode serialises p as a current-version save document.
func Encode(p *PlayerState) ([]byte, error) {
	rec := saveRecord{
		SchemaVersion: SchemaVersion,
		SaveID:        p.SaveID,
		Level:         p.Level,
		XP:            p.XP,
		Gold:          p.Gold,
		Energy:        p.Energy,
		MaxEnergy:     p.MaxEnergy,
		Skills:        make(map[Skill]skillRecord, len(p.Skills)),
		Inventory:     make(map[string]int, len(p.Inventory)),
		Achievements:  p.AchievementList(),
		Crops:         make([]PlotState, PlotCount),
		CropIDs:       make([]string, PlotCount),
		PlantedAt:     make([]int64, PlotCount),
	}
	for s, sp := range p.Skills {
		rec.Skills[s] = skillRecord{Level: sp.Level, XP: sp.XP}
	}
	for id, n := range p.Inventory {
		rec.Inventory[id] = n
	}
	for i, plot := range p.Plots {
		rec.Crops[i] = plot.State
		rec.CropIDs[i] = plot.CropID
		rec.PlantedAt[i] = plot.PlantedAt
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding player state: %w", err)
	}
	return data, nil
}
