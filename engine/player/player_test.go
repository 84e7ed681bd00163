package player

import (
	"testing"

	"github.com/nathoo/tinytalkers/engine/scene"
	"github.com/nathoo/tinytalkers/types"
)

var houseCfg = Config{Sprite: 150, Feet: types.Size{W: 10, H: 10}, Speed: 5}

// houseMap mirrors the sample house: a TV downstairs, a wall, bed and bath
// upstairs, and one stair on each floor.
func houseMap() *scene.Map {
	return scene.New(map[types.FloorID]types.FloorDef{
		types.FloorGround: {
			Boundary:  types.Size{W: 800, H: 800},
			Obstacles: []types.Rect{{X: 50, Y: 500, W: 100, H: 100}},
			Stair: &types.Stair{
				Zone:      types.Rect{X: 290, Y: 300, W: 200, H: 50},
				Direction: "up",
				Target:    types.FloorUpper,
				Landing:   types.Vec{X: 290, Y: 530},
			},
		},
		types.FloorUpper: {
			Boundary: types.Size{W: 800, H: 800},
			Obstacles: []types.Rect{
				{X: 0, Y: 0, W: 800, H: 350},
				{X: 50, Y: 500, W: 100, H: 300},
				{X: 500, Y: 650, W: 300, H: 150},
			},
			Stair: &types.Stair{
				Zone:      types.Rect{X: 290, Y: 700, W: 200, H: 50},
				Direction: "down",
				Target:    types.FloorGround,
				Landing:   types.Vec{X: 290, Y: 190},
			},
		},
	})
}

func newController(floor types.FloorID, x, y float64) (*Controller, *types.Player) {
	p := &types.Player{Floor: floor, Pos: types.Vec{X: x, Y: y}}
	return New(houseMap(), houseCfg, p), p
}

func TestTick_NoIntent(t *testing.T) {
	c, p := newController(types.FloorGround, 400, 600)
	mv := c.Tick(types.Intent{})
	if mv.Moved || mv.Blocked || mv.Transitioned {
		t.Errorf("unexpected move: %+v", mv)
	}
	if p.Pos != (types.Vec{X: 400, Y: 600}) {
		t.Errorf("position changed: %+v", p.Pos)
	}
	if p.Dir != types.DirFront {
		t.Errorf("default direction = %q", p.Dir)
	}
}

func TestTick_Directions(t *testing.T) {
	tests := []struct {
		name    string
		intent  types.Intent
		wantPos types.Vec
		wantDir types.Direction
	}{
		{"up", types.Intent{Up: true}, types.Vec{X: 400, Y: 595}, types.DirBack},
		{"down", types.Intent{Down: true}, types.Vec{X: 400, Y: 605}, types.DirFront},
		{"left", types.Intent{Left: true}, types.Vec{X: 395, Y: 600}, types.DirLeft},
		{"right", types.Intent{Right: true}, types.Vec{X: 405, Y: 600}, types.DirRight},
		{"diagonal", types.Intent{Up: true, Right: true}, types.Vec{X: 405, Y: 595}, types.DirBack},
		{"opposed vertical", types.Intent{Up: true, Down: true, Left: true}, types.Vec{X: 395, Y: 600}, types.DirLeft},
	}
	for _, tt := range tests {
		c, p := newController(types.FloorGround, 400, 600)
		c.Tick(tt.intent)
		if p.Pos != tt.wantPos {
			t.Errorf("%s: pos = %+v, want %+v", tt.name, p.Pos, tt.wantPos)
		}
		if p.Dir != tt.wantDir {
			t.Errorf("%s: dir = %q, want %q", tt.name, p.Dir, tt.wantDir)
		}
	}
}

func TestTick_OpposedKeysCancel(t *testing.T) {
	c, p := newController(types.FloorGround, 400, 600)
	p.Dir = types.DirLeft
	mv := c.Tick(types.Intent{Up: true, Down: true, Left: true, Right: true})
	if mv.Moved {
		t.Error("opposed keys on both axes should not move")
	}
	if p.Dir != types.DirLeft {
		t.Errorf("direction should be unchanged, got %q", p.Dir)
	}
}

func TestTick_ClampNeverViolated(t *testing.T) {
	intents := []types.Intent{
		{Up: true, Left: true},
		{Up: true, Right: true},
		{Down: true, Left: true},
		{Down: true, Right: true},
		{Left: true},
		{Down: true},
	}
	for _, in := range intents {
		c, p := newController(types.FloorGround, 600, 650)
		for i := 0; i < 400; i++ {
			c.Tick(in)
			if p.Pos.X < 0 || p.Pos.X > 650 || p.Pos.Y < 0 || p.Pos.Y > 650 {
				t.Fatalf("intent %+v tick %d: position %+v out of bounds", in, i, p.Pos)
			}
		}
	}
}

func TestTick_ObstacleBlocksAxis(t *testing.T) {
	// Feet box level with the TV and just right of it: moving left is rejected.
	c, p := newController(types.FloorGround, 80, 300)
	mv := c.Tick(types.Intent{Left: true})
	if mv.Blocked {
		t.Fatalf("first step should be free, feet at %+v", c.FeetBox())
	}

	c, p = newController(types.FloorGround, 80, 410)
	before := p.Pos
	mv = c.Tick(types.Intent{Left: true})
	if !mv.Blocked || mv.Moved {
		t.Errorf("expected blocked move, got %+v", mv)
	}
	if p.Pos != before {
		t.Errorf("blocked move changed position to %+v", p.Pos)
	}
}

func TestTick_SlideAlongObstacle(t *testing.T) {
	// Feet bottom resting on the TV's top edge: down is blocked, right is not.
	c, p := newController(types.FloorGround, 80, 335)
	c.Tick(types.Intent{Down: true})
	if p.Pos.Y != 340 {
		t.Fatalf("expected free step to y=340, got %+v", p.Pos)
	}
	c2, p2 := newController(types.FloorGround, 10, 350)
	mv := c2.Tick(types.Intent{Down: true, Right: true})
	if !mv.Blocked {
		t.Fatalf("expected vertical axis blocked by tv, feet %+v", c2.FeetBox())
	}
	if p2.Pos != (types.Vec{X: 15, Y: 350}) {
		t.Errorf("expected horizontal slide only, got %+v", p2.Pos)
	}
	if p2.Dir != types.DirRight {
		t.Errorf("direction should follow the accepted axis, got %q", p2.Dir)
	}
}

func TestTick_StairScenario(t *testing.T) {
	c, p := newController(types.FloorGround, 300, 340)
	var mv Move
	for i := 0; i < 100 && p.Floor == types.FloorGround; i++ {
		mv = c.Tick(types.Intent{Up: true})
	}
	if p.Floor != types.FloorUpper {
		t.Fatalf("never reached upper floor, at %+v", p.Pos)
	}
	if !mv.Transitioned || mv.From != types.FloorGround || mv.To != types.FloorUpper {
		t.Errorf("unexpected move report: %+v", mv)
	}
	if p.Pos != (types.Vec{X: 290, Y: 530}) {
		t.Errorf("landing = %+v, want upper landing point", p.Pos)
	}
}

func TestTick_StairRoundTrip(t *testing.T) {
	c, p := newController(types.FloorUpper, 290, 530)
	for i := 0; i < 100 && p.Floor == types.FloorUpper; i++ {
		c.Tick(types.Intent{Down: true})
	}
	if p.Floor != types.FloorGround {
		t.Fatalf("never reached ground floor, at %+v", p.Pos)
	}
	if p.Pos != (types.Vec{X: 290, Y: 190}) {
		t.Errorf("landing = %+v, want ground landing point", p.Pos)
	}

	// The ground landing sits inside the ground stair zone; moving down must
	// not bounce the player back up.
	c.Tick(types.Intent{Down: true})
	if p.Floor != types.FloorGround {
		t.Error("moving down on the ground stair must not go up")
	}
	c.Tick(types.Intent{Up: true})
	if p.Floor != types.FloorUpper || p.Pos != (types.Vec{X: 290, Y: 530}) {
		t.Errorf("expected second transition to upper landing, got %q %+v", p.Floor, p.Pos)
	}
}

func TestTick_StairWrongDirection(t *testing.T) {
	// Walking sideways through the ground stair does nothing.
	c, p := newController(types.FloorGround, 200, 200)
	for i := 0; i < 30; i++ {
		mv := c.Tick(types.Intent{Right: true})
		if mv.Transitioned {
			t.Fatalf("sideways movement took the stairs at %+v", p.Pos)
		}
	}
	if p.Floor != types.FloorGround {
		t.Error("floor changed")
	}
}

func TestTick_StairBeatsObstacle(t *testing.T) {
	m := scene.New(map[types.FloorID]types.FloorDef{
		types.FloorGround: {
			Boundary:  types.Size{W: 800, H: 800},
			Obstacles: []types.Rect{{X: 200, Y: 300, W: 90, H: 50}},
			Stair: &types.Stair{
				Zone:      types.Rect{X: 290, Y: 300, W: 200, H: 50},
				Direction: "up",
				Target:    types.FloorUpper,
				Landing:   types.Vec{X: 100, Y: 100},
			},
		},
		types.FloorUpper: {Boundary: types.Size{W: 800, H: 800}},
	})
	// Feet box at x 285..295 straddles the obstacle and the stair.
	p := &types.Player{Floor: types.FloorGround, Pos: types.Vec{X: 215, Y: 210}}
	c := New(m, houseCfg, p)
	mv := c.Tick(types.Intent{Up: true})
	if !mv.Transitioned {
		t.Fatalf("expected stair to win over obstacle, got %+v", mv)
	}
	if p.Floor != types.FloorUpper || p.Pos != (types.Vec{X: 100, Y: 100}) {
		t.Errorf("unexpected state after transition: %q %+v", p.Floor, p.Pos)
	}
}

func TestTick_UnknownFloorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown floor")
		}
	}()
	c, _ := newController("attic", 0, 0)
	c.Tick(types.Intent{Up: true})
}
