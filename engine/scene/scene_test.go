package scene

import (
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/tinytalkers/types"
)

func testFloors() map[types.FloorID]types.FloorDef {
	return map[types.FloorID]types.FloorDef{
		types.FloorGround: {
			Boundary:  types.Size{W: 800, H: 800},
			Obstacles: []types.Rect{{X: 50, Y: 500, W: 100, H: 100}},
			Stair: &types.Stair{
				Zone:      types.Rect{X: 290, Y: 300, W: 200, H: 50},
				Direction: "up",
				Target:    types.FloorUpper,
				Landing:   types.Vec{X: 290, Y: 530},
			},
			NPCs: []types.NPCSlot{
				{NPC: "mother", Trigger: types.Rect{X: 535, Y: 280, W: 120, H: 150}},
			},
		},
		types.FloorUpper: {
			Boundary: types.Size{W: 800, H: 800},
			Obstacles: []types.Rect{
				{X: 0, Y: 0, W: 800, H: 350},
				{X: 50, Y: 500, W: 100, H: 300},
			},
			Stair: &types.Stair{
				Zone:      types.Rect{X: 290, Y: 700, W: 200, H: 50},
				Direction: "down",
				Target:    types.FloorGround,
				Landing:   types.Vec{X: 290, Y: 190},
			},
		},
	}
}

func TestAccessors(t *testing.T) {
	m := New(testFloors())

	obs, err := m.ObstaclesFor(types.FloorUpper)
	if err != nil {
		t.Fatalf("ObstaclesFor: %v", err)
	}
	if len(obs) != 2 {
		t.Errorf("expected 2 upper obstacles, got %d", len(obs))
	}

	st, err := m.StairFor(types.FloorGround)
	if err != nil || st == nil {
		t.Fatalf("StairFor: %v, %v", st, err)
	}
	if st.Target != types.FloorUpper {
		t.Errorf("ground stair target = %q", st.Target)
	}

	slots, err := m.NPCSlotsFor(types.FloorGround)
	if err != nil {
		t.Fatalf("NPCSlotsFor: %v", err)
	}
	if len(slots) != 1 || slots[0].NPC != "mother" {
		t.Errorf("unexpected slots: %+v", slots)
	}

	if f := m.MustFloor(types.FloorGround); f.ID != types.FloorGround {
		t.Errorf("floor ID not filled in: %q", f.ID)
	}
}

func TestUnknownFloor_ConfigError(t *testing.T) {
	m := New(testFloors())
	_, err := m.ObstaclesFor("attic")
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
	}
	if ce.Floor != "attic" {
		t.Errorf("ConfigError.Floor = %q", ce.Floor)
	}
	if _, err := m.StairFor("attic"); err == nil {
		t.Error("StairFor should fail for unknown floor")
	}
	if _, err := m.NPCSlotsFor("attic"); err == nil {
		t.Error("NPCSlotsFor should fail for unknown floor")
	}
}

func TestMustFloor_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(testFloors()).MustFloor("attic")
}

func TestWouldCollide(t *testing.T) {
	m := New(testFloors())
	tests := []struct {
		name string
		box  types.Rect
		want bool
	}{
		{"open floor", types.Rect{X: 400, Y: 600, W: 10, H: 10}, false},
		{"fully inside tv", types.Rect{X: 60, Y: 510, W: 10, H: 10}, true},
		{"touching tv edge", types.Rect{X: 150, Y: 550, W: 10, H: 10}, false},
		{"straddling tv", types.Rect{X: 145, Y: 550, W: 10, H: 10}, true},
	}
	for _, tt := range tests {
		got, err := m.WouldCollide(types.FloorGround, tt.box)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: WouldCollide = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValidate_Clean(t *testing.T) {
	if problems := New(testFloors()).Validate(); len(problems) != 0 {
		t.Errorf("expected no problems, got %v", problems)
	}
}

func TestValidate_ObstacleOverStair(t *testing.T) {
	floors := testFloors()
	g := floors[types.FloorGround]
	g.Obstacles = append(g.Obstacles, types.Rect{X: 300, Y: 320, W: 20, H: 20})
	floors[types.FloorGround] = g

	problems := New(floors).Validate()
	if !containsProblem(problems, "overlaps the stair zone") {
		t.Errorf("expected stair overlap problem, got %v", problems)
	}
}

func TestValidate_BadStairTarget(t *testing.T) {
	floors := testFloors()
	g := floors[types.FloorGround]
	st := *g.Stair
	st.Target = "attic"
	g.Stair = &st
	floors[types.FloorGround] = g

	problems := New(floors).Validate()
	if !containsProblem(problems, "undefined floor") {
		t.Errorf("expected undefined floor problem, got %v", problems)
	}
}

func TestValidate_LandingOutside(t *testing.T) {
	floors := testFloors()
	u := floors[types.FloorUpper]
	st := *u.Stair
	st.Landing = types.Vec{X: 900, Y: 10}
	u.Stair = &st
	floors[types.FloorUpper] = u

	problems := New(floors).Validate()
	if !containsProblem(problems, "lies outside") {
		t.Errorf("expected landing problem, got %v", problems)
	}
}

func containsProblem(problems []string, substr string) bool {
	for _, p := range problems {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}
