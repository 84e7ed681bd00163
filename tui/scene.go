package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nathoo/tinytalkers/engine/geom"
	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/types"
)

// cellKind classifies one character cell of the scene grid. Higher kinds
// draw over lower ones.
type cellKind int

const (
	cellFloor cellKind = iota
	cellTrigger
	cellWall
	cellStair
	cellNPC
	cellNPCDone
	cellPlayer
	cellBoundary
)

// Terminal cells are about twice as tall as they are wide.
const cellAspect = 2

type cell struct {
	kind cellKind
	ch   rune
}

// sceneGrid rasterizes a floor into cols columns. Each cell covers a
// rectangle of the floor; a cell takes the topmost kind it intersects.
func sceneGrid(defs *state.Defs, s *types.State, feet types.Rect, sprite float64, cols int) [][]cell {
	floor := defs.Floors[s.Player.Floor]
	if cols < 4 || floor.Boundary.W <= 0 || floor.Boundary.H <= 0 {
		return nil
	}
	cw := floor.Boundary.W / float64(cols)
	rows := int(floor.Boundary.H / (cw * cellAspect))
	if rows < 2 {
		rows = 2
	}
	ch := floor.Boundary.H / float64(rows)

	grid := make([][]cell, rows)
	for y := range grid {
		grid[y] = make([]cell, cols)
		for x := range grid[y] {
			grid[y][x] = cell{kind: cellFloor, ch: '·'}
		}
	}

	paint := func(r types.Rect, c cell) {
		for y := range grid {
			for x := range grid[y] {
				box := types.Rect{X: float64(x) * cw, Y: float64(y) * ch, W: cw, H: ch}
				if geom.Intersects(box, r) && grid[y][x].kind <= c.kind {
					grid[y][x] = c
				}
			}
		}
	}

	for _, slot := range floor.NPCs {
		paint(slot.Trigger, cell{kind: cellTrigger, ch: '∙'})
	}
	for _, o := range floor.Obstacles {
		paint(o, cell{kind: cellWall, ch: '#'})
	}
	if st := floor.Stair; st != nil {
		mark := '▲'
		if st.Direction == "down" {
			mark = '▼'
		}
		paint(st.Zone, cell{kind: cellStair, ch: mark})
	}
	for _, slot := range floor.NPCs {
		kind := cellNPC
		if state.IsCompleted(s, slot.NPC) {
			kind = cellNPCDone
		}
		name := []rune(state.NPCName(defs, slot.NPC))
		mark := '?'
		if len(name) > 0 {
			mark = name[0]
		}
		center := types.Vec{X: slot.Anchor.X + sprite/2, Y: slot.Anchor.Y + sprite/2}
		paint(types.Rect{X: center.X, Y: center.Y, W: 1, H: 1}, cell{kind: kind, ch: mark})
	}
	paint(feet, cell{kind: cellPlayer, ch: '@'})
	return grid
}

// renderScene draws the grid inside a border. Runs of the same kind are
// styled together. bg, when set, colors the floor cells.
func renderScene(grid [][]cell, bg string) string {
	if len(grid) == 0 {
		return ""
	}
	styles := cellStyles
	if bg != "" {
		styles = make(map[cellKind]lipgloss.Style, len(cellStyles))
		for k, v := range cellStyles {
			styles[k] = v.Background(lipgloss.Color(bg))
		}
	}

	border := styles[cellBoundary]
	width := len(grid[0])
	var b strings.Builder
	b.WriteString(border.Render("┌" + strings.Repeat("─", width) + "┐"))
	b.WriteByte('\n')
	for _, row := range grid {
		b.WriteString(border.Render("│"))
		start := 0
		for i := 1; i <= len(row); i++ {
			if i < len(row) && row[i].kind == row[start].kind {
				continue
			}
			run := make([]rune, 0, i-start)
			for _, c := range row[start:i] {
				run = append(run, c.ch)
			}
			b.WriteString(styles[row[start].kind].Render(string(run)))
			start = i
		}
		b.WriteString(border.Render("│"))
		b.WriteByte('\n')
	}
	b.WriteString(border.Render("└" + strings.Repeat("─", width) + "┘"))
	return b.String()
}
