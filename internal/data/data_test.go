package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadUnitTable(t *testing.T) {
	path := writeFile(t, "unit_list.yaml", `
units:
  - id: 1
    name: knight
    walk_ticks: 3
    attack_ticks: 8
    reach: 1
  - id: 2
    name: archer
    reach: 5
`)
	table, err := LoadUnitTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", table.Count())
	}
	knight := table.Get(1)
	if knight.Name != "knight" || knight.WalkTicks != 3 || knight.AttackTicks != 8 {
		t.Errorf("knight = %+v", *knight)
	}
	archer := table.Get(2)
	if archer.Reach != 5 || archer.WalkTicks != defaultUnit.WalkTicks {
		t.Errorf("archer defaults not applied: %+v", *archer)
	}
	if table.Get(99).Name != defaultUnit.Name {
		t.Error("unknown unit does not fall back to the default")
	}
}

func TestLoadUnitTableMissingFile(t *testing.T) {
	table, err := LoadUnitTable(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 0 || table.Get(0).WalkTicks == 0 {
		t.Fatal("missing file should give an empty table with a usable default")
	}
}

func TestLoadUnitTableBadYAML(t *testing.T) {
	path := writeFile(t, "unit_list.yaml", "units: [this is: not valid")
	if _, err := LoadUnitTable(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadSpawnList(t *testing.T) {
	path := writeFile(t, "spawn_list.yaml", `
spawns:
  - unit: 2
    x: 10
    y: 12
    count: 3
    spread: 2
  - unit: 1
    x: 4
    y: 4
`)
	spawns, err := LoadSpawnList(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(spawns) != 2 {
		t.Fatalf("len = %d, want 2", len(spawns))
	}
	if spawns[0].Count != 3 || spawns[0].Spread != 2 || spawns[0].X != 10 {
		t.Errorf("spawn[0] = %+v", spawns[0])
	}
	if spawns[1].Count != 1 {
		t.Errorf("spawn[1] count defaulted to %d, want 1", spawns[1].Count)
	}
}

func TestLoadTerrain(t *testing.T) {
	path := writeFile(t, "terrain_list.yaml", `
terrain:
  - type: 1
    x: 2
    y: 3
    width: 4
    height: 1
`)
	rects, err := LoadTerrain(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rects) != 1 || rects[0] != (TerrainRect{Type: 1, X: 2, Y: 3, Width: 4, Height: 1}) {
		t.Fatalf("rects = %+v", rects)
	}

	if rects, err := LoadTerrain(filepath.Join(t.TempDir(), "absent.yaml")); err != nil || rects != nil {
		t.Fatalf("missing file = (%v, %v)", rects, err)
	}

	bad := writeFile(t, "bad.yaml", "terrain:\n  - type: 4096\n    width: 1\n    height: 1\n")
	if _, err := LoadTerrain(bad); err == nil {
		t.Fatal("type wider than the cell tag accepted")
	}
}
