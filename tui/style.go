package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nathoo/tinytalkers/engine/quiz"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleHint = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleCorrect = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleHearts = lipgloss.NewStyle().
			Foreground(lipgloss.Color("204"))

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	stylePopup = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1)

	styleTitle = lipgloss.NewStyle().Bold(true)
)

// Scene cell styles, indexed by cellKind.
var cellStyles = map[cellKind]lipgloss.Style{
	cellFloor:    lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	cellWall:     lipgloss.NewStyle().Foreground(lipgloss.Color("94")),
	cellStair:    lipgloss.NewStyle().Foreground(lipgloss.Color("180")),
	cellTrigger:  lipgloss.NewStyle().Foreground(lipgloss.Color("60")),
	cellNPC:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	cellNPCDone:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	cellPlayer:   lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true),
	cellBoundary: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarration lineKind = iota
	kindDialogue
	kindCorrect
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.Contains(line, quiz.LineIncorrect),
		strings.HasPrefix(line, "You can't"),
		strings.HasPrefix(line, "There is nobody"):
		return kindError
	case strings.Contains(line, quiz.LineCorrect),
		strings.Contains(line, quiz.LineComplete):
		return kindCorrect
	case isSpeech(line):
		return kindDialogue
	default:
		return kindNarration
	}
}

// isSpeech reports whether line reads "Name: text" with a short,
// capitalized speaker name.
func isSpeech(line string) bool {
	i := strings.Index(line, ": ")
	if i <= 0 || i > 20 {
		return false
	}
	name := line[:i]
	return name[0] >= 'A' && name[0] <= 'Z' && !strings.ContainsAny(name, ".!?")
}

func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindCorrect:
		return styleCorrect.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarration.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}

// hearts draws remaining lives as filled hearts out of max.
func hearts(lives, max int) string {
	if lives < 0 {
		lives = 0
	}
	if max < lives {
		max = lives
	}
	return styleHearts.Render(strings.Repeat("♥", lives) + strings.Repeat("♡", max-lives))
}
