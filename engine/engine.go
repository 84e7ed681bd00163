// Package engine provides the Tick() orchestrator that wires together
// movement, proximity detection and NPC quiz dialogues into one frame.
package engine

import (
	"fmt"
	"time"

	"github.com/nathoo/tinytalkers/engine/player"
	"github.com/nathoo/tinytalkers/engine/proximity"
	"github.com/nathoo/tinytalkers/engine/quiz"
	"github.com/nathoo/tinytalkers/engine/scene"
	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/types"
)

// Tuning used when content leaves a value unset.
const (
	DefaultSpriteSize = 150
	DefaultFeetSize   = 10
	DefaultSpeed      = 5
	DefaultTickRate   = 30
	DefaultLives      = 3
)

// Input is everything the player did during one frame.
type Input struct {
	Intent   types.Intent
	Interact bool   // the talk key was pressed
	Submit   bool   // an answer was submitted
	Answer   string // the submitted answer text
	Ask      string // a follow-up question for the assistant
	Close    bool   // the dialogue was dismissed
}

// Engine holds the game definitions and mutable session state.
type Engine struct {
	Defs  *state.Defs
	State *types.State
	RNG   *RNG
	Scene *scene.Map

	player     *player.Controller
	nearby     proximity.Tracker
	session    *quiz.Session
	sessionSeq int
	clock      time.Duration
	step       time.Duration
}

// New creates a new engine from definitions.
func New(defs *state.Defs) *Engine {
	applyDefaults(&defs.Game)
	s := state.NewState(defs)
	e := &Engine{
		Defs:  defs,
		State: s,
		RNG:   NewRNG(s.RNGSeed),
		Scene: scene.New(defs.Floors),
		step:  time.Second / time.Duration(defs.Game.TickRate),
	}
	e.bindPlayer()
	return e
}

func applyDefaults(g *types.GameDef) {
	if g.SpriteSize <= 0 {
		g.SpriteSize = DefaultSpriteSize
	}
	if g.FeetSize.W <= 0 || g.FeetSize.H <= 0 {
		g.FeetSize = types.Size{W: DefaultFeetSize, H: DefaultFeetSize}
	}
	if g.Speed <= 0 {
		g.Speed = DefaultSpeed
	}
	if g.TickRate <= 0 {
		g.TickRate = DefaultTickRate
	}
	if g.Lives <= 0 {
		g.Lives = DefaultLives
	}
	if g.StartFloor == "" {
		g.StartFloor = types.FloorGround
	}
}

func (e *Engine) bindPlayer() {
	g := e.Defs.Game
	e.player = player.New(e.Scene, player.Config{
		Sprite: g.SpriteSize,
		Feet:   g.FeetSize,
		Speed:  g.Speed,
	}, &e.State.Player)
}

// RestoreRNG re-creates the RNG from seed and advances to the saved position.
func (e *Engine) RestoreRNG(seed int64, position int64) {
	e.RNG = RestoreRNG(seed, position)
}

// Reseed starts a fresh phrase sequence. Saves record the seed, so a
// reseeded session still restores exactly.
func (e *Engine) Reseed(seed int64) {
	e.RNG = NewRNG(seed)
	e.State.RNGSeed = seed
	e.State.RNGPosition = 0
}

// Clock returns the virtual time elapsed over all ticks.
func (e *Engine) Clock() time.Duration { return e.clock }

// TickDuration returns the virtual time covered by one tick.
func (e *Engine) TickDuration() time.Duration { return e.step }

// Player returns the current player state.
func (e *Engine) Player() types.Player { return e.State.Player }

// FeetBox returns the player's current collision box.
func (e *Engine) FeetBox() types.Rect { return e.player.FeetBox() }

// Nearby returns the NPC the player can talk to, if any.
func (e *Engine) Nearby() (string, bool) { return e.nearby.Current() }

// Session returns the open dialogue, or nil.
func (e *Engine) Session() *quiz.Session { return e.session }

// Phase returns the dialogue phase, Idle when no dialogue is open.
func (e *Engine) Phase() quiz.Phase {
	if e.session == nil {
		return quiz.Idle
	}
	return e.session.Phase()
}

// Tick advances the game by one frame.
func (e *Engine) Tick(in Input) types.Result {
	var result types.Result
	e.clock += e.step
	e.State.TickCount++

	if e.session != nil {
		e.tickDialogue(in, &result)
	} else {
		e.tickWorld(in, &result)
	}

	e.State.RNGPosition = e.RNG.Position()
	return result
}

// Idle advances the clock by d without any input, in whole ticks.
func (e *Engine) Idle(d time.Duration) types.Result {
	var result types.Result
	for elapsed := time.Duration(0); elapsed < d; elapsed += e.step {
		merge(&result, e.Tick(Input{}))
	}
	return result
}

func (e *Engine) tickDialogue(in Input, result *types.Result) {
	s := e.session
	switch {
	case in.Close:
		merge(result, s.Close("dismissed"))
	case in.Submit:
		_, r := s.Submit(in.Answer, e.clock)
		merge(result, r)
	case in.Ask != "":
		r, _ := s.Ask(in.Ask)
		merge(result, r)
	}
	merge(result, s.Advance(e.clock))
	if s.Done() {
		e.session = nil
	}
}

func (e *Engine) tickWorld(in Input, result *types.Result) {
	mv := e.player.Tick(in.Intent)
	if mv.Transitioned {
		result.Events = append(result.Events, types.Event{
			Type: "floor_changed",
			Data: map[string]any{"from": string(mv.From), "to": string(mv.To)},
		})
		result.Output = append(result.Output, fmt.Sprintf("You take the stairs to the %s.", state.FloorName(e.Defs, mv.To)))
	}

	id, ok, err := e.detect()
	if err != nil {
		panic(err)
	}
	if e.nearby.Update(id, ok) {
		if ok {
			result.Events = append(result.Events, types.Event{
				Type: "npc_nearby",
				Data: map[string]any{"npc": id, "name": state.NPCName(e.Defs, id)},
			})
		} else {
			result.Events = append(result.Events, types.Event{Type: "npc_left", Data: map[string]any{}})
		}
	}

	if !in.Interact {
		return
	}
	if npc, ok := e.nearby.Current(); ok {
		e.interact(npc, result)
		return
	}
	result.Output = append(result.Output, "There is nobody here to talk to.")
}

func (e *Engine) detect() (string, bool, error) {
	return proximity.Detect(e.Scene, e.State.Player.Floor, e.player.FeetBox())
}

func (e *Engine) interact(npcID string, result *types.Result) {
	npc, ok := e.Defs.NPCs[npcID]
	if !ok {
		panic(fmt.Sprintf("engine: npc %q is placed on a floor but not defined", npcID))
	}

	progress := state.ProgressRef(e.State, npcID)
	if progress.Completed {
		line := e.RNG.Pick(e.Defs.Phrases.AlreadyDone)
		if line == "" {
			line = "You already answered all my questions. Well done!"
		}
		result.Output = append(result.Output, fmt.Sprintf("%s: %s", npc.Name, line))
		result.Events = append(result.Events, types.Event{
			Type: "speak",
			Data: map[string]any{"npc": npcID, "text": line, "voice": npc.Voice, "session": 0},
		})
		return
	}

	e.sessionSeq++
	s, r, err := quiz.Open(e.sessionSeq, npc, progress, quiz.Config{
		Lives:   e.Defs.Game.Lives,
		Timing:  quiz.DefaultTiming,
		Phrases: e.Defs.Phrases,
		Pick:    e.RNG.Pick,
	})
	if err != nil {
		result.Output = append(result.Output, fmt.Sprintf("%s has nothing to ask you right now.", npc.Name))
		return
	}
	e.session = s
	merge(result, r)
}

// DeliverExplanation hands an assistant reply to the dialogue that asked for
// it. Replies for a dialogue that has since closed are dropped.
func (e *Engine) DeliverExplanation(session, request int, text string, err error) types.Result {
	if e.session == nil || e.session.ID != session {
		return types.Result{}
	}
	r, _ := e.session.Deliver(request, text, err)
	return r
}

// CloseDialogue closes the open dialogue, if any.
func (e *Engine) CloseDialogue(reason string) types.Result {
	if e.session == nil {
		return types.Result{}
	}
	r := e.session.Close(reason)
	e.session = nil
	return r
}

// Reset starts a new session: progress, position and dialogue are cleared.
func (e *Engine) Reset() {
	e.CloseDialogue("reset")
	state.Reset(e.State, e.Defs)
	e.nearby = proximity.Tracker{}
	e.clock = 0
}

// Resync drops the open dialogue and recomputes proximity after the state
// was replaced from outside, e.g. by loading a save.
func (e *Engine) Resync() {
	e.CloseDialogue("restored")
	e.nearby = proximity.Tracker{}
	if id, ok, err := e.detect(); err == nil {
		e.nearby.Update(id, ok)
	}
}

// Describe summarizes where the player is, for text front ends.
func (e *Engine) Describe() []string {
	p := e.State.Player
	lines := []string{fmt.Sprintf("You are in the %s at (%g, %g), facing %s.",
		state.FloorName(e.Defs, p.Floor), p.Pos.X, p.Pos.Y, p.Dir)}
	if id, ok := e.Nearby(); ok {
		lines = append(lines, fmt.Sprintf("%s is here. Say \"talk\" to start.", state.NPCName(e.Defs, id)))
	}
	lines = append(lines, fmt.Sprintf("Friends helped: %d of %d.",
		state.CompletedCount(e.State, e.Defs), len(e.Defs.NPCs)))
	return lines
}

func merge(dst *types.Result, src types.Result) {
	dst.Events = append(dst.Events, src.Events...)
	dst.Output = append(dst.Output, src.Output...)
}
