// Package cli provides the line-based harness for the TinyTalkers engine:
// terminal I/O, script playback and meta-command dispatch.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/tinytalkers/assist"
	"github.com/nathoo/tinytalkers/engine"
	"github.com/nathoo/tinytalkers/engine/events"
	"github.com/nathoo/tinytalkers/engine/parser"
	"github.com/nathoo/tinytalkers/engine/quiz"
	"github.com/nathoo/tinytalkers/engine/save"
	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/prefs"
	"github.com/nathoo/tinytalkers/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	Defs      *state.Defs
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)

	// Services performs speech and explanation requests. Nil runs offline.
	Services *assist.Services
	// Prefs and Identity back the /prefs wizard.
	Prefs    prefs.Store
	Identity string

	ctx     context.Context
	scanner *bufio.Scanner
	bus     *events.Bus
	held    types.Intent
	lastCmd string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs) *CLI {
	home, _ := os.UserHomeDir()
	saveDir := filepath.Join(home, ".tinytalkers", "saves")
	return &CLI{
		Engine:   eng,
		Defs:     defs,
		In:       os.Stdin,
		Out:      os.Stdout,
		SaveDir:  saveDir,
		Identity: "local",
	}
}

// Run starts the game loop. It shows the intro and the starting position,
// then loops: prompt → input → dispatch → output.
func (c *CLI) Run() {
	c.RunContext(context.Background())
}

// RunContext is Run with a context for service requests.
func (c *CLI) RunContext(ctx context.Context) {
	c.ctx = ctx
	c.bus = c.newBus()

	if c.Defs.Game.Intro != "" {
		c.printLine(c.Defs.Game.Intro)
		c.printLine("")
	}
	c.printLines(c.Engine.Describe())

	c.scanner = bufio.NewScanner(c.In)
	for {
		c.print("> ")
		line, ok := c.readLine()
		if !ok {
			break
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		c.execute(input)
	}
}

func (c *CLI) readLine() (string, bool) {
	if !c.scanner.Scan() {
		return "", false
	}
	return c.scanner.Text(), true
}

// newBus subscribes the trace printer. Handlers only print: side effects
// run after dispatch so nothing emits into the pass.
func (c *CLI) newBus() *events.Bus {
	bus := events.NewBus()
	bus.On(events.Any, func(e types.Event) {
		if c.Trace {
			c.printSystem(fmt.Sprintf("[trace] %s %v", e.Type, sortedData(e.Data)))
		}
	})
	return bus
}

// execute runs one game command.
func (c *CLI) execute(input string) {
	cmd := parser.Parse(input)
	// Nobody walks during a dialogue, so "dad" is an answer, not d-a-d.
	if cmd.Verb == "go" && c.Engine.Session() != nil {
		c.answer(input)
		return
	}
	if cmd.Err != nil {
		c.printLine(cmd.Err.Error())
		return
	}

	switch cmd.Verb {
	case "hold":
		c.held = union(c.held, cmd.Intent)
		c.printLine(fmt.Sprintf("Holding %s.", intentString(c.held)))
	case "release":
		if cmd.Intent == (types.Intent{}) {
			c.held = types.Intent{}
		} else {
			c.held = minus(c.held, cmd.Intent)
		}
		c.printLine(fmt.Sprintf("Holding %s.", intentString(c.held)))
	case "go":
		before := c.Engine.Player()
		c.run(cmd.Count, engine.Input{Intent: cmd.Intent})
		c.reportMove(before)
	case "tick":
		before := c.Engine.Player()
		c.run(cmd.Count, engine.Input{Intent: c.held})
		if c.held != (types.Intent{}) {
			c.reportMove(before)
		}
	case "wait":
		ticks := int((cmd.Duration + c.Engine.TickDuration() - 1) / c.Engine.TickDuration())
		c.run(ticks, engine.Input{Intent: c.held})
	case "talk":
		c.run(1, engine.Input{Interact: true, Intent: c.held})
	case "answer":
		c.answer(cmd.Text)
	case "ask":
		if c.Engine.Phase() != quiz.AssistPopup {
			c.printLine("You can ask questions once the helper is open.")
			return
		}
		c.run(1, engine.Input{Ask: cmd.Text})
	case "close":
		if c.Engine.Session() == nil {
			c.printLine("Nobody is talking to you.")
			return
		}
		c.run(1, engine.Input{Close: true})
	case "look":
		c.printLines(c.Engine.Describe())
		c.printLines(c.dialogueStatus())
	default:
		// In a dialogue, anything unrecognized is an answer.
		if c.Engine.Session() != nil {
			c.answer(input)
			return
		}
		c.printLine("I don't understand that. Type /help for commands.")
	}
}

func (c *CLI) answer(text string) {
	if c.Engine.Session() == nil {
		c.printLine("Nobody asked you anything. Walk up to someone and say \"talk\".")
		return
	}
	if c.Engine.Phase() == quiz.AssistPopup {
		c.run(1, engine.Input{Ask: text})
		return
	}
	c.run(1, engine.Input{Submit: true, Answer: text})
}

// run ticks the engine n times with the same input, handling the results of
// each tick as they happen. One-shot actions only apply on the first tick.
func (c *CLI) run(n int, in engine.Input) {
	for i := 0; i < n; i++ {
		c.handle(c.Engine.Tick(in))
		in = engine.Input{Intent: in.Intent}
	}
	// Let dialogue transitions play out so the next prompt sees them.
	if s := c.Engine.Session(); s != nil {
		c.settle()
	}
}

// settle advances time until the open dialogue is waiting for the player.
func (c *CLI) settle() {
	for i := 0; i < 10*c.Defs.Game.TickRate; i++ {
		s := c.Engine.Session()
		if s == nil {
			return
		}
		switch s.Phase() {
		case quiz.Presenting, quiz.AssistPopup:
			if !s.Loading {
				return
			}
		}
		c.handle(c.Engine.Tick(engine.Input{}))
	}
}

// handle prints a tick's output and performs the side effects its events
// ask for. Explanation replies are fed back into the engine.
func (c *CLI) handle(r types.Result) {
	c.printLines(r.Output)
	c.bus.Dispatch(r.Events)
	if c.Services == nil {
		for _, e := range assist.Pending(r.Events) {
			c.handle(c.Engine.DeliverExplanation(events.Int(e, "session"), events.Int(e, "request"), "", assist.ErrServiceUnavailable))
		}
		return
	}
	for _, e := range r.Events {
		reply, ok := c.Services.Handle(c.ctx, e)
		if !ok {
			continue
		}
		c.handle(c.Engine.DeliverExplanation(reply.Session, reply.Request, reply.Text, reply.Err))
	}
}

func (c *CLI) reportMove(before types.Player) {
	after := c.Engine.Player()
	if after.Pos == before.Pos && after.Floor == before.Floor {
		if c.Engine.Session() == nil {
			c.printLine("You can't go that way.")
		}
		return
	}
	c.printLine(fmt.Sprintf("You are at (%g, %g), facing %s.", after.Pos.X, after.Pos.Y, after.Dir))
}

func (c *CLI) dialogueStatus() []string {
	s := c.Engine.Session()
	if s == nil {
		return nil
	}
	lines := []string{fmt.Sprintf("Talking to %s. Hearts: %d.", s.NPC.Name, s.Lives)}
	switch s.Phase() {
	case quiz.Presenting:
		if q, ok := s.Question(); ok {
			p := s.Progress()
			lines = append(lines, fmt.Sprintf("Question %d of %d: %s", p.Index+1, len(s.NPC.Questions), q.Prompt))
		}
	case quiz.AssistPopup:
		lines = append(lines, "The helper is open. Ask a question, or say \"bye\" to close it.")
	}
	return lines
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/prefs":
		c.cmdPrefs()

	case "/reset":
		c.Engine.Reset()
		c.held = types.Intent{}
		c.printSystem("New game started.")
		c.printLines(c.Engine.Describe())

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}

	data, err := save.Save(c.Engine.State, c.Defs)
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	path := filepath.Join(c.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	c.printSystem(fmt.Sprintf("Game saved to %s.", name))
}

func (c *CLI) cmdLoad(name string) {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(c.SaveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	sd, err := save.Load(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	if err := save.Check(sd, c.Defs); err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	save.ApplySave(c.Engine.State, sd)
	c.Engine.RestoreRNG(sd.RNGSeed, sd.RNGPosition)
	c.Engine.Resync()
	c.held = types.Intent{}
	c.printSystem(fmt.Sprintf("Game loaded from %s (tick %d).", name, sd.Tick))

	c.printLines(c.Engine.Describe())
}

// cmdPrefs runs the preference wizard on the input stream.
func (c *CLI) cmdPrefs() {
	if c.Prefs == nil {
		c.printSystem("Preferences are not available.")
		return
	}
	existing, err := c.Prefs.Get(c.ctx, c.Identity)
	if err != nil {
		c.printSystem(fmt.Sprintf("Could not read preferences: %v", err))
		return
	}
	w := prefs.NewWizard(existing)
	for !w.Done() {
		c.printLine(w.Prompt())
		c.print("? ")
		line, ok := c.readLine()
		if !ok {
			c.printSystem("Preferences not saved.")
			return
		}
		if c.EchoInput {
			c.printLine(line)
		}
		if err := w.Answer(line); err != nil {
			c.printLine(err.Error())
		}
	}
	if err := c.Prefs.Put(c.ctx, c.Identity, w.Preferences()); err != nil {
		c.printSystem(fmt.Sprintf("Could not save preferences: %v", err))
		return
	}
	c.printLine(w.Prompt())
	c.printSystem(fmt.Sprintf("Hello, %s!", w.Preferences().FirstName))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]  - Save game (default: quicksave)",
		"  /load [name]  - Load game (default: quicksave)",
		"  /reset        - Start over",
		"  /prefs        - Tell us about yourself",
		"  /quit         - Exit game",
		"  /help         - Show this help",
		"  /state        - Debug: dump current state",
		"  /trace        - Toggle debug event output",
		"",
		"Moving:",
		"  go <dir> [n]          - Walk n ticks (or just type w/a/s/d, up, left...)",
		"  hold <dir> / release  - Keep a key held down",
		"  tick [n] (z)          - Let n ticks pass with held keys",
		"  wait <duration>       - Let time pass, e.g. wait 2s",
		"  look (l)              - Where am I?",
		"",
		"Talking:",
		"  talk (e)              - Talk to the person next to you",
		"  answer <text> (say)   - Answer the question (or just type it)",
		"  ask <question>        - Ask the helper something",
		"  bye                   - Stop talking",
		"  again (g)             - Repeat your last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.State
	p := s.Player
	c.printSystem(fmt.Sprintf("Tick: %d (%s)", s.TickCount, c.Engine.Clock()))
	c.printSystem(fmt.Sprintf("Floor: %s", p.Floor))
	c.printSystem(fmt.Sprintf("Position: (%g, %g) facing %s", p.Pos.X, p.Pos.Y, p.Dir))
	c.printSystem(fmt.Sprintf("Held: %s", intentString(c.held)))
	for _, id := range state.NPCIDs(c.Defs) {
		pr := state.ProgressFor(s, id)
		c.printSystem(fmt.Sprintf("Progress %s: %d/%d completed=%t", id, pr.Index, len(c.Defs.NPCs[id].Questions), pr.Completed))
	}
	if sess := c.Engine.Session(); sess != nil {
		c.printSystem(fmt.Sprintf("Dialogue: %s phase=%s hearts=%d", sess.NPC.ID, sess.Phase(), sess.Lives))
	}
}

func union(a, b types.Intent) types.Intent {
	return types.Intent{Up: a.Up || b.Up, Down: a.Down || b.Down, Left: a.Left || b.Left, Right: a.Right || b.Right}
}

func minus(a, b types.Intent) types.Intent {
	return types.Intent{Up: a.Up && !b.Up, Down: a.Down && !b.Down, Left: a.Left && !b.Left, Right: a.Right && !b.Right}
}

func intentString(in types.Intent) string {
	var keys []string
	if in.Up {
		keys = append(keys, "up")
	}
	if in.Down {
		keys = append(keys, "down")
	}
	if in.Left {
		keys = append(keys, "left")
	}
	if in.Right {
		keys = append(keys, "right")
	}
	if len(keys) == 0 {
		return "nothing"
	}
	return strings.Join(keys, "+")
}

func sortedData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, data[k])
	}
	return strings.Join(parts, " ")
}

func (c *CLI) printLines(lines []string) {
	for _, line := range lines {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
