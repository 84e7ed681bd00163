// Package gui runs TinyTalkers in an ebiten window. Each ebiten update is
// one engine tick; service replies arrive on channels drained at the start
// of the update, so the engine is only ever touched from the game loop.
package gui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/nathoo/tinytalkers/assist"
	"github.com/nathoo/tinytalkers/engine"
	"github.com/nathoo/tinytalkers/engine/events"
	"github.com/nathoo/tinytalkers/engine/quiz"
	"github.com/nathoo/tinytalkers/engine/save"
	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/realtime"
	"github.com/nathoo/tinytalkers/types"
	"github.com/nathoo/tinytalkers/voice"
)

const (
	maxLog      = 6
	maxTyped    = 120
	replyBuffer = 16
)

// Stopper silences speech, e.g. *voice.Speaker.
type Stopper interface {
	Stop()
}

// Options wires the optional collaborators. Zero values run offline.
type Options struct {
	Services *assist.Services
	Speech   Stopper
	Display  *realtime.Display
	Recorder *voice.Recorder
	Assets   *Assets
	SaveDir  string
	Log      *zap.Logger
}

// Game implements ebiten.Game.
type Game struct {
	engine *engine.Engine
	defs   *state.Defs
	opts   Options
	log    *zap.Logger
	ctx    context.Context

	replies     chan assist.Reply
	transcripts chan string

	typed []rune
	lines []string
	debug bool
}

// frameInput is one update's worth of keyboard state.
type frameInput struct {
	intent    types.Intent
	chars     []rune
	interact  bool
	submit    bool
	cancel    bool
	backspace bool
	mic       bool
	quickSave bool
	quickLoad bool
	debug     bool
}

// New creates a Game. ctx bounds service calls made on its behalf.
func New(ctx context.Context, eng *engine.Engine, defs *state.Defs, opts Options) *Game {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.SaveDir == "" {
		home, _ := os.UserHomeDir()
		opts.SaveDir = filepath.Join(home, ".tinytalkers", "saves")
	}
	g := &Game{
		engine:      eng,
		defs:        defs,
		opts:        opts,
		log:         opts.Log.Named("gui"),
		ctx:         ctx,
		replies:     make(chan assist.Reply, replyBuffer),
		transcripts: make(chan string, replyBuffer),
	}
	if rec := opts.Recorder; rec != nil {
		rec.OnText = g.heard
	}
	return g
}

// Run opens the window and blocks until it is closed.
func Run(ctx context.Context, eng *engine.Engine, defs *state.Defs, opts Options) error {
	g := New(ctx, eng, defs, opts)
	b := defs.Floors[defs.Game.StartFloor].Boundary
	ebiten.SetWindowSize(int(b.W), int(b.H))
	ebiten.SetWindowTitle(defs.Game.Title)
	ebiten.SetTPS(defs.Game.TickRate)
	defer g.stopRecording()
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// Update polls the keyboard and runs one engine tick.
func (g *Game) Update() error {
	if err := g.ctx.Err(); err != nil {
		return ebiten.Termination
	}
	g.frame(pollInput())
	return nil
}

func pollInput() frameInput {
	pressed := func(keys ...ebiten.Key) bool {
		for _, k := range keys {
			if ebiten.IsKeyPressed(k) {
				return true
			}
		}
		return false
	}
	just := inpututil.IsKeyJustPressed
	return frameInput{
		intent: types.Intent{
			Up:    pressed(ebiten.KeyW, ebiten.KeyArrowUp),
			Down:  pressed(ebiten.KeyS, ebiten.KeyArrowDown),
			Left:  pressed(ebiten.KeyA, ebiten.KeyArrowLeft),
			Right: pressed(ebiten.KeyD, ebiten.KeyArrowRight),
		},
		chars:     ebiten.AppendInputChars(nil),
		interact:  just(ebiten.KeyE) || just(ebiten.KeySpace),
		submit:    just(ebiten.KeyEnter) || just(ebiten.KeyNumpadEnter),
		cancel:    just(ebiten.KeyEscape),
		backspace: just(ebiten.KeyBackspace) || inpututil.KeyPressDuration(ebiten.KeyBackspace) > 20,
		mic:       just(ebiten.KeyTab),
		quickSave: just(ebiten.KeyF5),
		quickLoad: just(ebiten.KeyF9),
		debug:     just(ebiten.KeyF3),
	}
}

// frame applies one update's input. Split from Update so it runs without
// a window.
func (g *Game) frame(in frameInput) {
	g.drain()

	if in.debug {
		g.debug = !g.debug
	}
	if in.quickSave {
		g.say(g.quickSave())
	}
	if in.quickLoad {
		g.say(g.quickLoad())
	}

	var ein engine.Input
	if g.engine.Session() != nil {
		ein = g.dialogueInput(in)
	} else {
		g.typed = nil
		ein.Intent = in.intent
		ein.Interact = in.interact
		if in.cancel && g.opts.Display != nil {
			g.opts.Display.DismissInvite()
		}
	}

	g.apply(g.engine.Tick(ein))
	if g.opts.Display != nil {
		g.opts.Display.SetScene(g.engine.Describe())
	}
}

// dialogueInput turns typing into an answer, a helper question or a close.
func (g *Game) dialogueInput(in frameInput) engine.Input {
	var ein engine.Input
	for _, r := range in.chars {
		if unicode.IsPrint(r) && len(g.typed) < maxTyped {
			g.typed = append(g.typed, r)
		}
	}
	if in.backspace && len(g.typed) > 0 {
		g.typed = g.typed[:len(g.typed)-1]
	}
	if in.mic {
		g.toggleRecording()
	}
	switch {
	case in.cancel:
		ein.Close = true
	case in.submit && len(g.typed) > 0:
		ein = g.answer(string(g.typed))
		g.typed = nil
	}
	return ein
}

func (g *Game) answer(text string) engine.Input {
	if g.engine.Phase() == quiz.AssistPopup {
		return engine.Input{Ask: text}
	}
	return engine.Input{Submit: true, Answer: text}
}

// drain applies every reply that has arrived since the last update.
func (g *Game) drain() {
	for {
		select {
		case r := <-g.replies:
			g.apply(g.engine.DeliverExplanation(r.Session, r.Request, r.Text, r.Err))
		case text := <-g.transcripts:
			if g.engine.Session() == nil {
				continue
			}
			g.apply(g.engine.Tick(g.answer(text)))
		default:
			return
		}
	}
}

// apply records output and starts side effects. Explanations run on their
// own goroutine and come back through g.replies.
func (g *Game) apply(r types.Result) {
	if len(events.Filter(r.Events, "dialogue_opened")) > 0 {
		g.lines = nil
	}
	for _, line := range r.Output {
		g.say(line)
	}
	for _, e := range r.Events {
		switch e.Type {
		case "speak":
			if g.opts.Services != nil {
				g.opts.Services.Handle(g.ctx, e)
			}
		case "explain":
			if g.opts.Services == nil {
				g.apply(g.engine.DeliverExplanation(
					events.Int(e, "session"), events.Int(e, "request"), "", assist.ErrServiceUnavailable))
				continue
			}
			go func(e types.Event) {
				reply, _ := g.opts.Services.Handle(g.ctx, e)
				select {
				case g.replies <- reply:
				case <-g.ctx.Done():
				}
			}(e)
		case "dialogue_closed":
			g.typed = nil
			g.stopRecording()
			if g.opts.Speech != nil {
				g.opts.Speech.Stop()
			}
		}
	}
}

// heard receives transcribed speech from the recorder goroutine.
func (g *Game) heard(text string) {
	select {
	case g.transcripts <- text:
	default:
		g.log.Warn("dropping transcript, game loop is behind")
	}
}

func (g *Game) toggleRecording() {
	rec := g.opts.Recorder
	if rec == nil {
		g.say("[Voice answers are not available.]")
		return
	}
	if rec.Active() {
		g.stopRecording()
		return
	}
	if err := rec.Start(g.ctx); err != nil {
		g.log.Warn("microphone unavailable", zap.Error(err))
		g.say("[The microphone is not available.]")
		return
	}
	g.say("[Listening...]")
}

// stopRecording stops in the background: the final transcription can take
// a while and the game loop must not wait for it.
func (g *Game) stopRecording() {
	if rec := g.opts.Recorder; rec != nil && rec.Active() {
		go rec.Stop()
	}
}

func (g *Game) say(line string) {
	g.lines = append(g.lines, line)
	if len(g.lines) > maxLog {
		g.lines = g.lines[len(g.lines)-maxLog:]
	}
}

func (g *Game) quickSave() string {
	data, err := save.Save(g.engine.State, g.defs)
	if err == nil {
		err = os.MkdirAll(g.opts.SaveDir, 0o755)
	}
	if err == nil {
		err = os.WriteFile(filepath.Join(g.opts.SaveDir, "quicksave.json"), data, 0o644)
	}
	if err != nil {
		g.log.Warn("quick save failed", zap.Error(err))
		return fmt.Sprintf("[Save failed: %v]", err)
	}
	return "[Game saved.]"
}

func (g *Game) quickLoad() string {
	data, err := os.ReadFile(filepath.Join(g.opts.SaveDir, "quicksave.json"))
	if err != nil {
		return fmt.Sprintf("[Load failed: %v]", err)
	}
	sd, err := save.Load(data)
	if err == nil {
		err = save.Check(sd, g.defs)
	}
	if err != nil {
		g.log.Warn("quick load failed", zap.Error(err))
		return fmt.Sprintf("[Load failed: %v]", err)
	}
	save.ApplySave(g.engine.State, sd)
	g.engine.RestoreRNG(sd.RNGSeed, sd.RNGPosition)
	g.engine.Resync()
	g.stopRecording()
	g.typed = nil
	return "[Game loaded.]"
}

// Layout keeps the logical screen at the current floor's size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	b := g.defs.Floors[g.engine.Player().Floor].Boundary
	return int(b.W), int(b.H)
}
