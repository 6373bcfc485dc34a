package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inmosttrail/server/internal/core/entity"
)

// TerrainRect tags every cell of a rectangle with one terrain type.
// Later rectangles overwrite earlier ones.
type TerrainRect struct {
	Type   uint32 `yaml:"type"`
	X      uint32 `yaml:"x"`
	Y      uint32 `yaml:"y"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

type terrainListFile struct {
	Terrain []TerrainRect `yaml:"terrain"`
}

// LoadTerrain loads terrain rectangles from YAML. A missing file leaves the
// whole map open.
func LoadTerrain(path string) ([]TerrainRect, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read terrain %s: %w", path, err)
	}
	var file terrainListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse terrain: %w", err)
	}
	for i, r := range file.Terrain {
		if r.Type > entity.MaxCellType {
			return nil, fmt.Errorf("terrain entry %d: type %d exceeds %d", i, r.Type, entity.MaxCellType)
		}
	}
	return file.Terrain, nil
}
