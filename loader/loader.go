// Package loader compiles a game directory of Lua content (and optional
// Tiled maps) into immutable definitions.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/nathoo/tinytalkers/engine/state"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game    *lua.LTable
	phrases *lua.LTable
	floors  []rawFloor
	npcs    []rawNPC
}

// Option configures Load.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger reports content warnings and a load summary to log.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// Load runs every .lua file in dir (game.lua first), compiles the result
// and validates it. Warnings are logged; errors come back as a
// *ValidationError. Floors that name a .tmx map are read relative to dir.
func Load(dir string, opts ...Option) (*state.Defs, error) {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.Named("loader").With(zap.String("dir", dir))

	files, err := luaFiles(dir)
	if err != nil {
		return nil, err
	}

	coll := &collector{}
	if err := run(dir, files, coll); err != nil {
		return nil, err
	}

	defs, err := compile(coll, dir)
	if err != nil {
		return nil, fmt.Errorf("compiling game data: %w", err)
	}
	if err := validate(defs, log); err != nil {
		return nil, err
	}
	log.Info("game loaded",
		zap.String("title", defs.Game.Title),
		zap.Int("floors", len(defs.Floors)),
		zap.Int("npcs", len(defs.NPCs)))
	return defs, nil
}

func luaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading game directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	return sortedLuaFiles(names), nil
}

// run executes files in a fresh sandboxed VM. The VM is discarded once the
// tables have been collected.
func run(dir string, files []string, coll *collector) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)
	registerAPI(L, coll)

	for _, f := range files {
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return fmt.Errorf("executing %s: %w", f, err)
		}
	}
	return nil
}

// openSafeLibs opens base, table, string and math only.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox strips globals that reach the filesystem or bypass metatables.
func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	} {
		L.SetGlobal(name, lua.LNil)
	}

	// Content must not reseed: phrase picks are replayed from saves.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
	}
}
