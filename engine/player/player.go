// Package player advances the player's position each tick from held
// movement keys, enforcing the floor boundary, obstacles and stairways.
package player

import (
	"github.com/nathoo/tinytalkers/engine/geom"
	"github.com/nathoo/tinytalkers/engine/scene"
	"github.com/nathoo/tinytalkers/types"
)

// Config holds the movement tuning.
type Config struct {
	Sprite float64    // side of the square sprite
	Feet   types.Size // collision box at the sprite's feet
	Speed  float64    // pixels per tick on each active axis
}

// Move describes what one tick did.
type Move struct {
	Moved        bool
	Blocked      bool // an axis was rejected by an obstacle
	Transitioned bool // the player took the stairs
	From, To     types.FloorID
}

// Controller owns the player's position, facing and floor.
type Controller struct {
	scene  *scene.Map
	cfg    Config
	player *types.Player
}

// New creates a controller that mutates p in place.
func New(m *scene.Map, cfg Config, p *types.Player) *Controller {
	if p.Dir == "" {
		p.Dir = types.DirFront
	}
	return &Controller{scene: m, cfg: cfg, player: p}
}

// Player returns the controlled player state.
func (c *Controller) Player() types.Player {
	return *c.player
}

// FeetBox returns the current collision box.
func (c *Controller) FeetBox() types.Rect {
	return c.feetAt(c.player.Pos)
}

func (c *Controller) feetAt(pos types.Vec) types.Rect {
	return geom.FeetBox(pos, c.cfg.Sprite, c.cfg.Feet)
}

// Tick applies one frame of movement intent.
//
// The stair test runs on the clamped candidate before any obstacle test, so
// a stair always wins over furniture at the same spot. Otherwise X and Y are
// applied one after the other and an axis that would hit an obstacle is
// reverted on its own, which lets the player slide along walls.
func (c *Controller) Tick(in types.Intent) Move {
	p := c.player
	floor := c.scene.MustFloor(p.Floor)
	mv := Move{From: p.Floor, To: p.Floor}

	dx := axis(in.Left, in.Right)
	dy := axis(in.Up, in.Down)
	if dx == 0 && dy == 0 {
		return mv
	}

	maxX := floor.Boundary.W - c.cfg.Sprite
	maxY := floor.Boundary.H - c.cfg.Sprite
	cand := types.Vec{
		X: geom.Clamp(p.Pos.X+dx*c.cfg.Speed, 0, maxX),
		Y: geom.Clamp(p.Pos.Y+dy*c.cfg.Speed, 0, maxY),
	}

	if st := floor.Stair; st != nil && traverses(st, dy) && geom.Intersects(c.feetAt(cand), st.Zone) {
		p.Floor = st.Target
		p.Pos = st.Landing
		p.Dir = facing(dx, dy)
		mv.Moved = true
		mv.Transitioned = true
		mv.To = st.Target
		return mv
	}

	if cand.X != p.Pos.X {
		try := types.Vec{X: cand.X, Y: p.Pos.Y}
		if c.collides(floor.ID, try) {
			mv.Blocked = true
		} else {
			p.Pos = try
			p.Dir = facing(dx, 0)
			mv.Moved = true
		}
	}
	if cand.Y != p.Pos.Y {
		try := types.Vec{X: p.Pos.X, Y: cand.Y}
		if c.collides(floor.ID, try) {
			mv.Blocked = true
		} else {
			p.Pos = try
			p.Dir = facing(0, dy)
			mv.Moved = true
		}
	}
	return mv
}

func (c *Controller) collides(floor types.FloorID, pos types.Vec) bool {
	hit, err := c.scene.WouldCollide(floor, c.feetAt(pos))
	if err != nil {
		panic(err)
	}
	return hit
}

// axis resolves an exclusive key pair to -1, 0 or +1.
func axis(neg, pos bool) float64 {
	switch {
	case neg && !pos:
		return -1
	case pos && !neg:
		return 1
	}
	return 0
}

// traverses reports whether vertical movement dy goes the stair's way.
func traverses(st *types.Stair, dy float64) bool {
	switch st.Direction {
	case "up":
		return dy < 0
	case "down":
		return dy > 0
	}
	return false
}

// facing picks the sprite direction, vertical movement winning.
func facing(dx, dy float64) types.Direction {
	switch {
	case dy < 0:
		return types.DirBack
	case dy > 0:
		return types.DirFront
	case dx < 0:
		return types.DirLeft
	default:
		return types.DirRight
	}
}
