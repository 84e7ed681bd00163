package gui

import (
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"go.uber.org/zap"

	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/types"
)

// Assets holds the images named by the game content. Missing files are
// logged and drawn as plain shapes instead.
type Assets struct {
	Backgrounds map[types.FloorID]*ebiten.Image
	NPCs        map[string]*ebiten.Image
}

// LoadAssets reads floor backgrounds and NPC sprites relative to dir.
func LoadAssets(dir string, defs *state.Defs, log *zap.Logger) *Assets {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Assets{
		Backgrounds: make(map[types.FloorID]*ebiten.Image),
		NPCs:        make(map[string]*ebiten.Image),
	}
	load := func(name string) *ebiten.Image {
		if name == "" {
			return nil
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		img, _, err := ebitenutil.NewImageFromFile(path)
		if err != nil {
			log.Warn("failed to load image", zap.String("path", path), zap.Error(err))
			return nil
		}
		return img
	}
	for id, f := range defs.Floors {
		if img := load(f.Background); img != nil {
			a.Backgrounds[id] = img
		}
	}
	for id, npc := range defs.NPCs {
		if img := load(npc.Sprite); img != nil {
			a.NPCs[id] = img
		}
	}
	return a
}
