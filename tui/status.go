package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/nathoo/tinytalkers/engine/state"
)

// renderStatusBar produces a full-width inverted status line showing the
// floor, position, friends helped and elapsed time.
func (m Model) renderStatusBar() string {
	s := m.engine.State
	p := s.Player

	left := fmt.Sprintf(" %s | (%.0f, %.0f) %s", state.FloorName(m.defs, p.Floor), p.Pos.X, p.Pos.Y, p.Dir)
	if id, ok := m.engine.Nearby(); ok && m.engine.Session() == nil {
		left += fmt.Sprintf(" | %s is here", state.NPCName(m.defs, id))
	}
	right := fmt.Sprintf("Friends %d/%d | %s ",
		state.CompletedCount(s, m.defs), len(m.defs.NPCs), clock(m.engine.Clock()))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return styleStatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// clock formats elapsed game time as m:ss.
func clock(d time.Duration) string {
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
