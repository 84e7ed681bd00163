// Package tui provides a Bubble Tea terminal front end for TinyTalkers: a
// live scene grid driven at the engine's tick rate, with the dialogue and
// helper panels below it.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nathoo/tinytalkers/assist"
	"github.com/nathoo/tinytalkers/engine"
	"github.com/nathoo/tinytalkers/engine/events"
	"github.com/nathoo/tinytalkers/engine/quiz"
	"github.com/nathoo/tinytalkers/engine/save"
	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/prefs"
	"github.com/nathoo/tinytalkers/realtime"
	"github.com/nathoo/tinytalkers/types"
)

const maxLogLines = 200

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool
	isSystem bool
}

// Options wires the optional collaborators. Zero values run offline.
type Options struct {
	Services *assist.Services
	Display  *realtime.Display
	Prefs    prefs.Store
	Identity string
	SaveDir  string
	Log      *zap.Logger
}

// Model is the Bubble Tea model for the TinyTalkers TUI.
type Model struct {
	engine *engine.Engine
	defs   *state.Defs
	opts   Options
	log    *zap.Logger
	ctx    context.Context

	input   textinput.Model
	history *History
	keys    keyHold
	pending engine.Input
	lines   []rawLine

	command bool          // the input line holds a /command
	wizard  *prefs.Wizard // non-nil while /prefs is running

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
}

type tickMsg time.Time

// replyMsg carries an explanation back from a service call.
type replyMsg assist.Reply

// prefsSavedMsg reports the end of a /prefs run.
type prefsSavedMsg struct {
	name string
	err  error
}

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	if opts.SaveDir == "" {
		home, _ := os.UserHomeDir()
		opts.SaveDir = filepath.Join(home, ".tinytalkers", "saves")
	}
	if opts.Identity == "" {
		opts.Identity = "local"
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return Model{
		engine:  eng,
		defs:    defs,
		opts:    opts,
		log:     log.Named("tui"),
		ctx:     context.Background(),
		input:   ti,
		history: NewHistory(100),
		keys:    newKeyHold(eng.TickDuration()),
	}
}

// Run starts the Bubble Tea program and blocks until the player quits or
// ctx is cancelled.
func Run(ctx context.Context, eng *engine.Engine, defs *state.Defs, opts Options) error {
	m := New(eng, defs, opts)
	m.ctx = ctx
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init prints the intro and starts the tick loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick(), func() tea.Msg {
		var lines []string
		g := m.defs.Game
		lines = append(lines, fmt.Sprintf("%s v%s by %s", g.Title, g.Version, g.Author))
		if g.Intro != "" {
			lines = append(lines, g.Intro)
		}
		return introMsg(lines)
	})
}

type introMsg []string

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.engine.TickDuration(), func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages (key presses, ticks, window resize, service replies).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.input.Width = m.width - 4
		return m, nil

	case introMsg:
		m.appendLines(msg, false)
		m.appendLines(m.engine.Describe(), false)
		return m, nil

	case tickMsg:
		cmds := m.step()
		return m, tea.Batch(append(cmds, m.tick())...)

	case replyMsg:
		if msg.Err != nil {
			m.log.Debug("explanation failed", zap.Int("session", msg.Session), zap.Error(msg.Err))
		}
		cmds := m.apply(m.engine.DeliverExplanation(msg.Session, msg.Request, msg.Text, msg.Err))
		return m, tea.Batch(cmds...)

	case prefsSavedMsg:
		if msg.err != nil {
			m.log.Warn("saving preferences failed", zap.Error(msg.err))
			m.appendLines([]string{fmt.Sprintf("Could not save preferences: %v", msg.err)}, true)
		} else {
			m.appendLines([]string{fmt.Sprintf("Hello, %s!", msg.name)}, true)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// step runs one engine tick with the held keys and any queued action.
func (m *Model) step() []tea.Cmd {
	in := m.pending
	m.pending = engine.Input{}
	in.Intent = m.keys.intent()
	cmds := m.apply(m.engine.Tick(in))
	if m.opts.Display != nil {
		m.opts.Display.SetScene(m.engine.Describe())
	}
	if cmd := m.syncInput(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return cmds
}

// apply records a result's output and starts the side effects its events
// ask for. Explanations run as commands and come back as replyMsg.
func (m *Model) apply(r types.Result) []tea.Cmd {
	m.appendLines(r.Output, false)
	if m.trace {
		for _, e := range r.Events {
			m.appendLines([]string{fmt.Sprintf("[trace] %s %v", e.Type, e.Data)}, false)
		}
	}

	var cmds []tea.Cmd
	for _, e := range r.Events {
		switch e.Type {
		case "speak":
			if m.opts.Services != nil {
				m.opts.Services.Handle(m.ctx, e)
			}
		case "explain":
			if m.opts.Services == nil {
				cmds = append(cmds, m.apply(m.engine.DeliverExplanation(
					events.Int(e, "session"), events.Int(e, "request"), "", assist.ErrServiceUnavailable))...)
				continue
			}
			svc, ctx, ev := m.opts.Services, m.ctx, e
			cmds = append(cmds, func() tea.Msg {
				reply, _ := svc.Handle(ctx, ev)
				return replyMsg(reply)
			})
		}
	}
	return cmds
}

// syncInput focuses the input line whenever something wants text.
func (m *Model) syncInput() tea.Cmd {
	switch {
	case m.wizard != nil:
		m.input.Prompt = "? "
		m.input.Placeholder = ""
	case m.command:
		m.input.Prompt = "/"
		m.input.Placeholder = "save, load, reset, prefs, help, quit"
	case m.engine.Phase() == quiz.AssistPopup:
		m.input.Prompt = "? "
		m.input.Placeholder = "Ask the helper a question"
	case m.engine.Session() != nil:
		m.input.Prompt = "> "
		m.input.Placeholder = "Type your answer"
	default:
		if m.input.Focused() {
			m.input.Blur()
			m.input.SetValue("")
		}
		return nil
	}
	if !m.input.Focused() {
		m.keys.release()
		return m.input.Focus()
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if !m.input.Focused() {
		if d, ok := moveKeys[key]; ok {
			m.keys.press(d)
			return m, nil
		}
		switch key {
		case "e", " ", "enter":
			m.pending.Interact = true
		case "/":
			m.command = true
			m.input.SetValue("")
			focus := m.syncInput()
			return m, focus
		case "esc":
			if m.opts.Display != nil {
				m.opts.Display.DismissInvite()
			}
		}
		return m, nil
	}

	switch key {
	case "enter":
		return m.handleEnter()
	case "esc":
		switch {
		case m.wizard != nil:
			m.wizard = nil
			m.appendLines([]string{"Preferences not saved."}, true)
		case m.command:
			m.command = false
		default:
			m.pending.Close = true
		}
		m.input.SetValue("")
		focus := m.syncInput()
		return m, focus
	case "up":
		if prev, ok := m.history.Prev(); ok {
			m.input.SetValue(prev)
			m.input.CursorEnd()
		}
		return m, nil
	case "down":
		if next, ok := m.history.Next(); ok {
			m.input.SetValue(next)
			m.input.CursorEnd()
		} else {
			m.input.SetValue("")
			m.history.ResetCursor()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	m.history.ResetCursor()

	switch {
	case m.wizard != nil:
		return m.answerWizard(input)
	case m.command:
		m.command = false
		if input == "" {
			focus := m.syncInput()
			return m, focus
		}
		return m.runMeta("/" + strings.TrimPrefix(input, "/"))
	}

	if input == "" {
		return m, nil
	}
	if strings.HasPrefix(input, "/") {
		return m.runMeta(input)
	}
	m.history.Push(input)
	m.lines = append(m.lines, rawLine{text: "> " + input, isInput: true})
	if m.engine.Phase() == quiz.AssistPopup {
		m.pending.Ask = input
	} else {
		m.pending.Submit = true
		m.pending.Answer = input
	}
	return m, nil
}

func (m Model) runMeta(cmd string) (tea.Model, tea.Cmd) {
	m.history.Push(cmd)
	m.lines = append(m.lines, rawLine{text: "> " + cmd, isInput: true})
	output, quit := m.handleMeta(cmd)
	m.appendLines(output, true)
	if quit {
		m.quitting = true
		return m, tea.Quit
	}
	if m.wizard != nil {
		m.appendLines([]string{m.wizard.Prompt()}, false)
	}
	focus := m.syncInput()
	return m, focus
}

func (m Model) answerWizard(input string) (tea.Model, tea.Cmd) {
	w := m.wizard
	m.lines = append(m.lines, rawLine{text: "? " + input, isInput: true})
	if err := w.Answer(input); err != nil {
		m.appendLines([]string{err.Error()}, false)
	}
	if !w.Done() {
		m.appendLines([]string{w.Prompt()}, false)
		return m, nil
	}
	m.wizard = nil
	store, ctx, id, p := m.opts.Prefs, m.ctx, m.opts.Identity, w.Preferences()
	put := func() tea.Msg {
		return prefsSavedMsg{name: p.FirstName, err: store.Put(ctx, id, p)}
	}
	focus := m.syncInput()
	return m, tea.Batch(put, focus)
}

// appendLines adds output to the log, trimming the oldest lines.
func (m *Model) appendLines(lines []string, system bool) {
	for _, line := range lines {
		rl := rawLine{text: line, isSystem: system}
		if !system {
			rl.kind = classifyLine(line)
		}
		m.lines = append(m.lines, rl)
	}
	if n := len(m.lines); n > maxLogLines {
		m.lines = m.lines[n-maxLogLines:]
	}
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wLen := len(word)
		switch {
		case i == 0:
			lineLen = wLen
		case lineLen+1+wLen > width:
			result.WriteString("\n")
			lineLen = wLen
		default:
			result.WriteString(" ")
			lineLen += 1 + wLen
		}
		result.WriteString(word)
	}
	return result.String()
}

// View renders the status bar, the scene beside the log, the dialogue
// panel and the input line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var snap realtime.Snapshot
	if m.opts.Display != nil {
		snap = m.opts.Display.Snapshot()
	}

	cols := m.width/2 - 2
	if cols > 60 {
		cols = 60
	}
	grid := sceneGrid(m.defs, m.engine.State, m.engine.FeetBox(), m.defs.Game.SpriteSize, cols)
	scene := renderScene(grid, snap.Background)

	body := scene
	if logW := m.width - lipgloss.Width(scene) - 1; logW >= 20 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, scene, " ", m.renderLog(logW, lipgloss.Height(scene)))
	}

	parts := []string{m.renderStatusBar(), body}
	if panel := m.renderDialogue(m.width-4, snap.TextColor); panel != "" {
		parts = append(parts, panel)
	}
	if helper := renderHelper(snap); helper != "" {
		parts = append(parts, helper)
	}
	if m.input.Focused() {
		parts = append(parts, m.input.View())
	} else {
		parts = append(parts, styleHint.Render("WASD/arrows move | e talk | / commands | ctrl+c quit"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderLog styles the newest lines that fit in height rows.
func (m Model) renderLog(width, height int) string {
	var styled []string
	for _, rl := range m.lines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}
		for _, line := range strings.Split(wordWrap(rl.text, width), "\n") {
			switch {
			case rl.isInput:
				styled = append(styled, stylePlayerInput.Render(line))
			case rl.isSystem:
				styled = append(styled, styledSystemMsg(line))
			default:
				styled = append(styled, renderLineKind(line, rl.kind))
			}
		}
	}
	if len(styled) > height {
		styled = styled[len(styled)-height:]
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(styled, "\n"))
}

// renderDialogue draws the open quiz, or the helper popup once the hearts
// run out.
func (m Model) renderDialogue(width int, textColor string) string {
	s := m.engine.Session()
	if s == nil || width < 10 {
		return ""
	}
	title := styleTitle.Render(s.NPC.Name) + "  " + hearts(s.Lives, m.defs.Game.Lives)
	lines := []string{title}

	switch s.Phase() {
	case quiz.AssistPopup:
		lines = append(lines, quiz.LineAssist)
		if q, ok := s.Question(); ok {
			lines = append(lines, "Question: "+q.Prompt)
		}
		switch {
		case s.Loading:
			lines = append(lines, "Thinking...")
		case s.ExplainFailed:
			lines = append(lines, "The explanation could not be loaded.")
		default:
			lines = append(lines, s.Explanation)
		}
		for _, turn := range s.ChatHistory {
			lines = append(lines, "You: "+turn.Question)
			switch {
			case turn.Pending:
				lines = append(lines, "Helper: ...")
			case turn.Failed:
				lines = append(lines, "Helper: (no answer, try again)")
			default:
				lines = append(lines, "Helper: "+turn.Answer)
			}
		}
		return m.panel(stylePopup, lines, width, textColor)
	case quiz.Completed:
		lines = append(lines, quiz.LineComplete)
	default:
		if q, ok := s.Question(); ok {
			p := s.Progress()
			lines = append(lines, fmt.Sprintf("Question %d of %d: %s", p.Index+1, len(s.NPC.Questions), q.Prompt))
		}
	}
	return m.panel(stylePanel, lines, width, textColor)
}

func (m Model) panel(style lipgloss.Style, lines []string, width int, textColor string) string {
	inner := width - 4
	for i, line := range lines {
		lines[i] = wordWrap(line, inner)
	}
	if textColor != "" {
		style = style.Foreground(lipgloss.Color(textColor))
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

// renderHelper shows what the voice assistant put on screen.
func renderHelper(snap realtime.Snapshot) string {
	var parts []string
	if snap.Fingers > 0 {
		parts = append(parts, fmt.Sprintf("✋ %d", snap.Fingers))
	}
	if snap.Invite != "" {
		parts = append(parts, snap.Invite+" (esc to close)")
	}
	if len(parts) == 0 {
		return ""
	}
	return stylePopup.Render(strings.Join(parts, "  "))
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true
	case "/save":
		return m.cmdSave(arg), false
	case "/load":
		return m.cmdLoad(arg), false
	case "/reset":
		m.engine.Reset()
		m.keys.release()
		return append([]string{"New game started."}, m.engine.Describe()...), false
	case "/prefs":
		return m.cmdPrefs(), false
	case "/help":
		return m.cmdHelp(), false
	case "/state":
		return m.cmdState(), false
	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false
	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdSave(name string) []string {
	if name == "" {
		name = "quicksave"
	}
	data, err := save.Save(m.engine.State, m.defs)
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if err := os.MkdirAll(m.opts.SaveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if err := os.WriteFile(filepath.Join(m.opts.SaveDir, name+".json"), data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Game saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	if name == "" {
		name = "quicksave"
	}
	data, err := os.ReadFile(filepath.Join(m.opts.SaveDir, name+".json"))
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	sd, err := save.Load(data)
	if err == nil {
		err = save.Check(sd, m.defs)
	}
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	save.ApplySave(m.engine.State, sd)
	m.engine.RestoreRNG(sd.RNGSeed, sd.RNGPosition)
	m.engine.Resync()
	m.keys.release()
	return append([]string{fmt.Sprintf("Game loaded from %s (tick %d).", name, sd.Tick)}, m.engine.Describe()...)
}

func (m *Model) cmdPrefs() []string {
	if m.opts.Prefs == nil {
		return []string{"Preferences are not available."}
	}
	existing, err := m.opts.Prefs.Get(m.ctx, m.opts.Identity)
	if err != nil {
		m.log.Warn("reading preferences failed", zap.Error(err))
		return []string{fmt.Sprintf("Could not read preferences: %v", err)}
	}
	m.wizard = prefs.NewWizard(existing)
	return []string{"Tell us about yourself. Press esc to stop."}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"Walk with WASD, the arrow keys or hjkl.",
		"Press e, space or enter next to someone to talk.",
		"Type your answer and press enter. Esc says goodbye.",
		"When the helper opens, type a question for it.",
		"Commands (press / first): save [name], load [name], reset, prefs, state, trace, help, quit",
	}
}

func (m *Model) cmdState() []string {
	s := m.engine.State
	p := s.Player
	out := []string{
		fmt.Sprintf("Tick: %d (%s)", s.TickCount, m.engine.Clock()),
		fmt.Sprintf("Floor: %s at (%g, %g) facing %s", p.Floor, p.Pos.X, p.Pos.Y, p.Dir),
	}
	for _, id := range state.NPCIDs(m.defs) {
		pr := state.ProgressFor(s, id)
		out = append(out, fmt.Sprintf("Progress %s: %d/%d completed=%t", id, pr.Index, len(m.defs.NPCs[id].Questions), pr.Completed))
	}
	return out
}
