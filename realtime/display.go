package realtime

import (
	"fmt"
	"strings"
	"sync"
)

// Display is the on-screen state the assistant can change. Front ends read
// a Snapshot each frame.
type Display struct {
	mu       sync.Mutex
	snap     Snapshot
	scene    string
	describe func() string
}

// Snapshot is a copy of the display state.
type Snapshot struct {
	Background string
	TextColor  string
	Fingers    int
	Invite     string
}

// NewDisplay returns a Display. describe supplies the scene description;
// when nil, the text last passed to SetScene is used.
func NewDisplay(describe func() string) *Display {
	return &Display{describe: describe}
}

// Snapshot returns the current state.
func (d *Display) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

// DismissInvite clears a shown invitation.
func (d *Display) DismissInvite() {
	d.mu.Lock()
	d.snap.Invite = ""
	d.mu.Unlock()
}

// SetScene records the scene description. Front ends call it from their
// own loop so the assistant never reads engine state concurrently.
func (d *Display) SetScene(lines []string) {
	text := strings.Join(lines, " ")
	d.mu.Lock()
	d.scene = text
	d.mu.Unlock()
}

func (d *Display) ChangeBackground(color string) error {
	d.mu.Lock()
	d.snap.Background = color
	d.mu.Unlock()
	return nil
}

func (d *Display) ChangeTextColor(color string) error {
	d.mu.Lock()
	d.snap.TextColor = color
	d.mu.Unlock()
	return nil
}

func (d *Display) ShowFingers(count int) error {
	d.mu.Lock()
	d.snap.Fingers = count
	d.mu.Unlock()
	return nil
}

func (d *Display) OpenGameInvite(message string) error {
	d.mu.Lock()
	d.snap.Invite = message
	d.mu.Unlock()
	return nil
}

func (d *Display) DescribeScene() (string, error) {
	if d.describe != nil {
		return d.describe(), nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scene == "" {
		return "", fmt.Errorf("scene description unavailable")
	}
	return d.scene, nil
}
