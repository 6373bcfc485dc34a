package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UnitInfo holds the movement and combat timings of one unit type,
// loaded from unit_list.yaml.
type UnitInfo struct {
	ID          uint8  `yaml:"id"`
	Name        string `yaml:"name"`
	WalkTicks   uint16 `yaml:"walk_ticks"`   // ticks to cross one cell
	AttackTicks uint16 `yaml:"attack_ticks"` // length of one attack animation
	Reach       uint32 `yaml:"reach"`        // Chebyshev distance an attack connects at
}

type unitListFile struct {
	Units []UnitInfo `yaml:"units"`
}

// UnitTable provides unit lookups by type id.
type UnitTable struct {
	units    map[uint8]*UnitInfo
	fallback UnitInfo
}

// defaultUnit is used for unit types missing from the table.
var defaultUnit = UnitInfo{
	ID:          0,
	Name:        "wanderer",
	WalkTicks:   4,
	AttackTicks: 6,
	Reach:       1,
}

// NewUnitTable builds a table from in-memory entries; zero timings are
// replaced with the defaults.
func NewUnitTable(units []UnitInfo) *UnitTable {
	t := &UnitTable{
		units:    make(map[uint8]*UnitInfo, len(units)),
		fallback: defaultUnit,
	}
	for i := range units {
		u := units[i]
		if u.WalkTicks == 0 {
			u.WalkTicks = defaultUnit.WalkTicks
		}
		if u.AttackTicks == 0 {
			u.AttackTicks = defaultUnit.AttackTicks
		}
		if u.Reach == 0 {
			u.Reach = defaultUnit.Reach
		}
		t.units[u.ID] = &u
	}
	return t
}

// LoadUnitTable loads unit definitions from YAML. A missing file yields a
// table containing only the default unit.
func LoadUnitTable(path string) (*UnitTable, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewUnitTable(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read unit list %s: %w", path, err)
	}
	var file unitListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse unit list: %w", err)
	}
	return NewUnitTable(file.Units), nil
}

// Get returns the unit for id, or the default unit when id is unknown.
func (t *UnitTable) Get(id uint8) *UnitInfo {
	if u, ok := t.units[id]; ok {
		return u
	}
	return &t.fallback
}

func (t *UnitTable) Count() int {
	return len(t.units)
}
