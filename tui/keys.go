package tui

import (
	"time"

	"github.com/nathoo/tinytalkers/types"
)

// Terminals report key presses and auto-repeat but never releases, so a
// key counts as held for holdWindow after its last press. The window
// covers the usual auto-repeat delay.
const holdWindow = 300 * time.Millisecond

type direction int

const (
	dirUp direction = iota
	dirDown
	dirLeft
	dirRight
	numDirs
)

var moveKeys = map[string]direction{
	"w": dirUp, "up": dirUp, "k": dirUp,
	"s": dirDown, "down": dirDown, "j": dirDown,
	"a": dirLeft, "left": dirLeft, "h": dirLeft,
	"d": dirRight, "right": dirRight, "l": dirRight,
}

var opposite = [numDirs]direction{dirDown, dirUp, dirRight, dirLeft}

// keyHold tracks, per direction, how many more ticks the key counts as
// held.
type keyHold struct {
	ticks  [numDirs]int
	window int
}

func newKeyHold(step time.Duration) keyHold {
	w := int(holdWindow / step)
	if w < 1 {
		w = 1
	}
	return keyHold{window: w}
}

// press refreshes d and drops its opposite so turning round is immediate.
func (k *keyHold) press(d direction) {
	k.ticks[d] = k.window
	k.ticks[opposite[d]] = 0
}

// intent returns the held keys and ages them by one tick.
func (k *keyHold) intent() types.Intent {
	in := types.Intent{
		Up:    k.ticks[dirUp] > 0,
		Down:  k.ticks[dirDown] > 0,
		Left:  k.ticks[dirLeft] > 0,
		Right: k.ticks[dirRight] > 0,
	}
	for d := range k.ticks {
		if k.ticks[d] > 0 {
			k.ticks[d]--
		}
	}
	return in
}

func (k *keyHold) release() { k.ticks = [numDirs]int{} }
