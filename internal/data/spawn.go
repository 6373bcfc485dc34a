package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpawnEntry places Count server-controlled avatars of one unit type
// around (X, Y) at boot.
type SpawnEntry struct {
	Unit   uint8  `yaml:"unit"`
	X      uint32 `yaml:"x"`
	Y      uint32 `yaml:"y"`
	Count  int    `yaml:"count"`
	Spread uint32 `yaml:"spread"` // avatars are scattered within this Chebyshev radius
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// LoadSpawnList loads spawn entries from YAML. A missing file is an empty list.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read spawn list %s: %w", path, err)
	}
	var file spawnListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse spawn list: %w", err)
	}
	for i := range file.Spawns {
		if file.Spawns[i].Count <= 0 {
			file.Spawns[i].Count = 1
		}
	}
	return file.Spawns, nil
}
