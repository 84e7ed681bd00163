// Package parser converts harness command strings into Command structs.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nathoo/tinytalkers/types"
)

// Command is one parsed harness line.
type Command struct {
	Verb     string
	Intent   types.Intent  // keys for hold and go
	Count    int           // ticks for tick and go
	Duration time.Duration // wait
	Text     string        // answer, ask and unknown verbs
	Err      error
}

var verbAliases = map[string]string{
	// Movement keys
	"h":     "hold",
	"press": "hold",
	"stop":  "release",
	"walk":  "go",
	"move":  "go",
	"step":  "go",

	// Time
	"z":     "tick",
	"sleep": "wait",
	"pause": "wait",

	// Dialogue
	"e":        "talk",
	"interact": "talk",
	"speak":    "talk",
	"chat":     "talk",
	"hello":    "talk",
	"say":      "answer",
	"reply":    "answer",
	"tell":     "answer",
	"help-me":  "ask",
	"why":      "ask",
	"bye":      "close",
	"goodbye":  "close",
	"leave":    "close",
	"esc":      "close",

	// Misc
	"l":     "look",
	"where": "look",
}

// Single keys follow the keyboard layout: w/a/s/d, plus u/l/r.
var keyDirs = map[rune]string{
	'w': "up", 'a': "left", 's': "down", 'd': "right",
	'u': "up", 'l': "left", 'r': "right",
}

var wordDirs = map[string]string{
	"up": "up", "down": "down", "left": "left", "right": "right",
	"north": "up", "south": "down", "west": "left", "east": "right",
}

// Parse converts a raw command string into a Command.
func Parse(input string) Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return Command{}
	}

	words := strings.Fields(input)
	verb := strings.ToLower(words[0])
	rest := words[1:]

	// "talk to mum" reads as talk.
	if verb == "talk" || verb == "speak" {
		return Command{Verb: "talk"}
	}
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}

	// Bare directions are a one-tick step.
	if len(rest) == 0 {
		if in, err := parseDirs([]string{verb}); err == nil && verb != "look" {
			return Command{Verb: "go", Intent: in, Count: 1}
		}
	}

	switch verb {
	case "hold":
		in, err := parseDirs(rest)
		return Command{Verb: verb, Intent: in, Err: err}
	case "release":
		// A bare release lets go of every key.
		if len(rest) == 0 {
			return Command{Verb: verb}
		}
		in, err := parseDirs(rest)
		return Command{Verb: verb, Intent: in, Err: err}
	case "talk", "close", "look":
		return Command{Verb: verb}
	case "go":
		return parseGo(rest)
	case "tick":
		n, err := parseCount(rest, 1)
		return Command{Verb: verb, Count: n, Err: err}
	case "wait":
		d, err := parseDuration(rest)
		return Command{Verb: verb, Duration: d, Err: err}
	case "answer", "ask":
		text := strings.Join(rest, " ")
		var err error
		if text == "" {
			err = fmt.Errorf("%s what?", verb)
		}
		return Command{Verb: verb, Text: text, Err: err}
	}
	return Command{Verb: verb, Text: strings.Join(rest, " ")}
}

// parseGo reads "go <dirs> [n]".
func parseGo(args []string) Command {
	cmd := Command{Verb: "go", Count: 1}
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[len(args)-1]); err == nil {
			if n <= 0 {
				cmd.Err = fmt.Errorf("step count must be positive, got %d", n)
				return cmd
			}
			cmd.Count = n
			args = args[:len(args)-1]
		}
	}
	cmd.Intent, cmd.Err = parseDirs(args)
	return cmd
}

// parseDirs turns direction words and key letters into an Intent.
// "hold wd" and "hold up right" are equivalent.
func parseDirs(args []string) (types.Intent, error) {
	var in types.Intent
	if len(args) == 0 {
		return in, fmt.Errorf("which way?")
	}
	for _, arg := range args {
		arg = strings.ToLower(arg)
		if dir, ok := wordDirs[arg]; ok {
			set(&in, dir)
			continue
		}
		for _, r := range arg {
			dir, ok := keyDirs[r]
			if !ok {
				return types.Intent{}, fmt.Errorf("unknown direction %q", arg)
			}
			set(&in, dir)
		}
	}
	return in, nil
}

func set(in *types.Intent, dir string) {
	switch dir {
	case "up":
		in.Up = true
	case "down":
		in.Down = true
	case "left":
		in.Left = true
	case "right":
		in.Right = true
	}
}

func parseCount(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("expected a positive number of ticks, got %q", args[0])
	}
	return n, nil
}

// parseDuration accepts Go durations ("1.5s", "300ms") or bare seconds ("2").
func parseDuration(args []string) (time.Duration, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("wait how long?")
	}
	if d, err := time.ParseDuration(args[0]); err == nil && d > 0 {
		return d, nil
	}
	if secs, err := strconv.ParseFloat(args[0], 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("bad duration %q", args[0])
}
