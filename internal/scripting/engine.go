package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding avatar behaviour scripts.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir.
// A missing directory leaves the engine empty; every hook then reports
// "no decision".
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua source in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// WanderContext describes an idle server-controlled avatar.
type WanderContext struct {
	UnitType uint8
	X, Y     uint32
	Tick     uint32
	Width    uint32
	Height   uint32
}

// Wander calls Lua npc_wander(ctx). The script returns {x=, y=} to start a
// walk, or nil to stay put.
func (e *Engine) Wander(ctx WanderContext) (x, y uint32, ok bool) {
	fn := e.vm.GetGlobal("npc_wander")
	if fn == lua.LNil {
		return 0, 0, false
	}

	t := e.vm.NewTable()
	t.RawSetString("unit_type", lua.LNumber(ctx.UnitType))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("tick", lua.LNumber(ctx.Tick))
	t.RawSetString("width", lua.LNumber(ctx.Width))
	t.RawSetString("height", lua.LNumber(ctx.Height))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua npc_wander error", zap.Error(err))
		return 0, 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return 0, 0, false
	}
	lx, xOK := rt.RawGetString("x").(lua.LNumber)
	ly, yOK := rt.RawGetString("y").(lua.LNumber)
	if !xOK || !yOK || lx < 0 || ly < 0 {
		return 0, 0, false
	}
	return uint32(lx), uint32(ly), true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
