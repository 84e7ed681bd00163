package gui

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/nathoo/tinytalkers/engine/quiz"
	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/types"
)

// DebugPrint glyphs are 6x16.
const (
	glyphW  = 6
	glyphH  = 16
	padding = 10
)

var (
	floorColor   = color.RGBA{0xf4, 0xe9, 0xd8, 0xff}
	wallColor    = color.RGBA{0x8b, 0x5e, 0x3c, 0xff}
	stairColor   = color.RGBA{0xc9, 0xa2, 0x27, 0xff}
	triggerColor = color.RGBA{0x6a, 0xb0, 0x4c, 0x40}
	npcColor     = color.RGBA{0x3b, 0x82, 0xc4, 0xff}
	npcDoneColor = color.RGBA{0x9a, 0xa5, 0xb1, 0xff}
	playerColor  = color.RGBA{0xe0, 0x4f, 0x5f, 0xff}
	feetColor    = color.RGBA{0xff, 0xff, 0x00, 0xff}
	windowColor  = color.RGBA{0x00, 0x00, 0x00, 0xc8}
	assistColor  = color.RGBA{0x1e, 0x3a, 0x5f, 0xe6}
	overlayColor = color.RGBA{0x00, 0x00, 0x00, 0x90}
)

var namedColors = map[string]color.RGBA{
	"black":  {0x00, 0x00, 0x00, 0xff},
	"white":  {0xff, 0xff, 0xff, 0xff},
	"red":    {0xe5, 0x39, 0x35, 0xff},
	"green":  {0x43, 0xa0, 0x47, 0xff},
	"blue":   {0x1e, 0x88, 0xe5, 0xff},
	"yellow": {0xfd, 0xd8, 0x35, 0xff},
	"orange": {0xfb, 0x8c, 0x00, 0xff},
	"purple": {0x8e, 0x24, 0xaa, 0xff},
	"pink":   {0xec, 0x40, 0x7a, 0xff},
	"brown":  {0x6d, 0x4c, 0x41, 0xff},
	"gray":   {0x75, 0x75, 0x75, 0xff},
	"grey":   {0x75, 0x75, 0x75, 0xff},
}

// parseColor accepts a color name, #rgb or #rrggbb.
func parseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("unknown color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("unknown color %q", s)
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, nil
}

// Draw renders the floor, characters and overlays.
func (g *Game) Draw(screen *ebiten.Image) {
	p := g.engine.Player()
	floor := g.defs.Floors[p.Floor]

	g.drawFloor(screen, floor)
	g.drawNPCs(screen, floor)
	g.drawPlayer(screen)

	if s := g.engine.Session(); s != nil {
		g.drawDialogue(screen, s, floor.Boundary)
	} else if id, ok := g.engine.Nearby(); ok {
		hint := fmt.Sprintf("Press E to talk to %s", state.NPCName(g.defs, id))
		if state.IsCompleted(g.engine.State, id) {
			hint = fmt.Sprintf("%s is proud of you!", state.NPCName(g.defs, id))
		}
		ebitenutil.DebugPrintAt(screen, hint, padding, int(floor.Boundary.H)-glyphH-padding)
	}
	g.drawHelper(screen, floor.Boundary)
	if g.debug {
		g.drawDebug(screen, floor)
	}
}

func (g *Game) drawFloor(screen *ebiten.Image, floor types.FloorDef) {
	bg := floorColor
	if g.opts.Display != nil {
		if name := g.opts.Display.Snapshot().Background; name != "" {
			if c, err := parseColor(name); err == nil {
				bg = c
			}
		}
	}
	screen.Fill(bg)
	if img := g.background(floor.ID); img != nil {
		op := &ebiten.DrawImageOptions{}
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		op.GeoM.Scale(floor.Boundary.W/float64(w), floor.Boundary.H/float64(h))
		screen.DrawImage(img, op)
		return
	}
	for _, o := range floor.Obstacles {
		fillRect(screen, o, wallColor)
	}
	if st := floor.Stair; st != nil {
		fillRect(screen, st.Zone, stairColor)
		ebitenutil.DebugPrintAt(screen, strings.ToUpper(st.Direction), int(st.Zone.X)+4, int(st.Zone.Y)+4)
	}
	for _, slot := range floor.NPCs {
		fillRect(screen, slot.Trigger, triggerColor)
	}
}

func (g *Game) drawNPCs(screen *ebiten.Image, floor types.FloorDef) {
	size := g.spriteSize()
	for _, slot := range floor.NPCs {
		if img := g.npcImage(slot.NPC); img != nil {
			op := &ebiten.DrawImageOptions{}
			w := img.Bounds().Dx()
			op.GeoM.Scale(size/float64(w), size/float64(w))
			op.GeoM.Translate(slot.Anchor.X, slot.Anchor.Y)
			screen.DrawImage(img, op)
			continue
		}
		c := npcColor
		if state.IsCompleted(g.engine.State, slot.NPC) {
			c = npcDoneColor
		}
		fillRect(screen, types.Rect{X: slot.Anchor.X, Y: slot.Anchor.Y, W: size, H: size}, c)
		ebitenutil.DebugPrintAt(screen, state.NPCName(g.defs, slot.NPC), int(slot.Anchor.X), int(slot.Anchor.Y)-glyphH)
	}
}

func (g *Game) drawPlayer(screen *ebiten.Image) {
	p := g.engine.Player()
	size := g.spriteSize()
	body := types.Rect{X: p.Pos.X + size/4, Y: p.Pos.Y + size/4, W: size / 2, H: size * 3 / 4}
	fillRect(screen, body, playerColor)
	ebitenutil.DebugPrintAt(screen, string(p.Dir), int(body.X)+2, int(body.Y)+2)
}

// drawDialogue is the quiz window along the bottom, with the helper popup
// above it while assist is open.
func (g *Game) drawDialogue(screen *ebiten.Image, s *quiz.Session, bounds types.Size) {
	w := int(bounds.W) - 2*padding
	lines := g.dialogueLines(s, w/glyphW-2)
	h := (len(lines)+1)*glyphH + padding
	y := int(bounds.H) - h - padding
	window := types.Rect{X: padding, Y: float64(y), W: float64(w), H: float64(h)}
	fillRect(screen, window, windowColor)
	for i, line := range lines {
		ebitenutil.DebugPrintAt(screen, line, 2*padding, y+padding/2+i*glyphH)
	}

	if s.Phase() != quiz.AssistPopup {
		return
	}
	popup := g.assistLines(s, w/glyphW-4)
	ph := (len(popup)+1)*glyphH + padding
	py := y - ph - padding
	if py < padding {
		py = padding
	}
	fillRect(screen, types.Rect{X: 2 * padding, Y: float64(py), W: float64(w - 2*padding), H: float64(ph)}, assistColor)
	for i, line := range popup {
		ebitenutil.DebugPrintAt(screen, line, 3*padding, py+padding/2+i*glyphH)
	}
}

// dialogueLines is the text of the quiz window, wrapped to width columns.
func (g *Game) dialogueLines(s *quiz.Session, width int) []string {
	var lines []string
	title := fmt.Sprintf("%s  %s", s.NPC.Name, strings.Repeat("<3 ", s.Lives))
	if prog := s.Progress(); len(s.NPC.Questions) > 0 {
		title += fmt.Sprintf(" %d/%d", min(prog.Index+1, len(s.NPC.Questions)), len(s.NPC.Questions))
	}
	lines = append(lines, title)
	for _, l := range g.lines {
		lines = append(lines, wrapText(l, width)...)
	}
	if len(lines) > maxLog+2 {
		lines = append(lines[:1], lines[len(lines)-maxLog-1:]...)
	}
	lines = append(lines, "> "+string(g.typed)+"_")
	help := "Enter: answer  Esc: close"
	if g.opts.Recorder != nil {
		help += "  Tab: speak"
	}
	return append(lines, help)
}

func (g *Game) assistLines(s *quiz.Session, width int) []string {
	lines := []string{"Let's learn it!"}
	switch {
	case s.Loading:
		lines = append(lines, "Loading...")
	case s.Explanation != "":
		lines = append(lines, wrapText(s.Explanation, width)...)
	}
	for _, t := range s.ChatHistory {
		lines = append(lines, wrapText("You: "+t.Question, width)...)
		if t.Pending {
			lines = append(lines, "...")
			continue
		}
		lines = append(lines, wrapText(t.Answer, width)...)
	}
	lines = append(lines, "Type a question and press Enter.")
	return lines
}

// drawHelper shows what the voice assistant asked for.
func (g *Game) drawHelper(screen *ebiten.Image, bounds types.Size) {
	if g.opts.Display == nil {
		return
	}
	snap := g.opts.Display.Snapshot()
	y := padding
	if snap.Fingers > 0 {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Fingers: %d", snap.Fingers), int(bounds.W)-120, y)
		y += glyphH
	}
	if snap.Invite != "" {
		lines := wrapText(snap.Invite, 40)
		lines = append(lines, "(Esc to dismiss)")
		box := types.Rect{X: bounds.W/2 - 130, Y: float64(y), W: 260, H: float64((len(lines) + 1) * glyphH)}
		fillRect(screen, box, overlayColor)
		for i, l := range lines {
			ebitenutil.DebugPrintAt(screen, l, int(box.X)+padding, y+padding/2+i*glyphH)
		}
	}
}

func (g *Game) drawDebug(screen *ebiten.Image, floor types.FloorDef) {
	for _, o := range floor.Obstacles {
		strokeRect(screen, o, wallColor)
	}
	if st := floor.Stair; st != nil {
		strokeRect(screen, st.Zone, stairColor)
	}
	for _, slot := range floor.NPCs {
		strokeRect(screen, slot.Trigger, npcColor)
	}
	strokeRect(screen, g.engine.FeetBox(), feetColor)
	p := g.engine.Player()
	info := fmt.Sprintf("TPS %.0f  pos %.0f,%.0f  %s  %s", ebiten.ActualTPS(), p.Pos.X, p.Pos.Y, p.Floor, g.engine.Phase())
	ebitenutil.DebugPrintAt(screen, info, padding, padding)
}

func (g *Game) spriteSize() float64 { return g.defs.Game.SpriteSize }

func (g *Game) background(id types.FloorID) *ebiten.Image {
	if g.opts.Assets == nil {
		return nil
	}
	return g.opts.Assets.Backgrounds[id]
}

func (g *Game) npcImage(id string) *ebiten.Image {
	if g.opts.Assets == nil {
		return nil
	}
	return g.opts.Assets.NPCs[id]
}

func fillRect(dst *ebiten.Image, r types.Rect, c color.Color) {
	vector.DrawFilledRect(dst, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), c, false)
}

func strokeRect(dst *ebiten.Image, r types.Rect, c color.Color) {
	vector.StrokeRect(dst, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), 2, c, false)
}

// wrapText splits text into lines of at most width columns, breaking at
// spaces where it can.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			for len([]rune(w)) > width {
				if line != "" {
					lines = append(lines, line)
					line = ""
				}
				r := []rune(w)
				lines = append(lines, string(r[:width]))
				w = string(r[width:])
			}
			switch {
			case line == "":
				line = w
			case len([]rune(line))+1+len([]rune(w)) <= width:
				line += " " + w
			default:
				lines = append(lines, line)
				line = w
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
