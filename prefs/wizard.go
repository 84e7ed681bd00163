package prefs

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is a stage of the preference wizard.
type Step string

const (
	StepName      Step = "name"
	StepGender    Step = "gender"
	StepLanguages Step = "languages"
	StepAge       Step = "age"
	StepComplete  Step = "complete"
)

// Wizard collects preferences one question at a time.
type Wizard struct {
	step Step
	p    Preferences
}

// NewWizard starts at the name step. A non-nil existing profile pre-fills
// the answers.
func NewWizard(existing *Preferences) *Wizard {
	w := &Wizard{step: StepName}
	if existing != nil {
		w.p = *existing
	}
	return w
}

// Step returns the current stage.
func (w *Wizard) Step() Step { return w.step }

// Done reports whether every answer has been collected.
func (w *Wizard) Done() bool { return w.step == StepComplete }

// Preferences returns the answers so far.
func (w *Wizard) Preferences() Preferences { return w.p }

// Prompt is the question for the current step.
func (w *Wizard) Prompt() string {
	switch w.step {
	case StepName:
		return "What's your name? (first and last)"
	case StepGender:
		return "I am a... (boy, girl or other)"
	case StepLanguages:
		return fmt.Sprintf("What languages do you speak? (main, then the one to practise: %s)",
			strings.Join(Languages, ", "))
	case StepAge:
		return "How old are you?"
	default:
		return "All done! Thanks for sharing your preferences!"
	}
}

// Answer records input for the current step and moves on. On error the
// step is unchanged.
func (w *Wizard) Answer(input string) error {
	input = strings.TrimSpace(input)
	switch w.step {
	case StepName:
		fields := strings.Fields(input)
		if len(fields) == 0 {
			return fmt.Errorf("please tell me your first name")
		}
		w.p.FirstName = fields[0]
		w.p.LastName = strings.Join(fields[1:], " ")
		w.step = StepGender
	case StepGender:
		g := Gender(strings.ToLower(input))
		if !ValidGender(g) {
			return fmt.Errorf("please answer boy, girl or other")
		}
		w.p.Gender = g
		w.step = StepLanguages
	case StepLanguages:
		langs := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
			return r == ',' || r == ' ' || r == '/'
		})
		switch len(langs) {
		case 1:
			w.p.MainLanguage, w.p.PreferredLanguage = langs[0], langs[0]
		case 2:
			w.p.MainLanguage, w.p.PreferredLanguage = langs[0], langs[1]
		default:
			return fmt.Errorf("please name your main language and the one you want to practise")
		}
		w.step = StepAge
	case StepAge:
		age, err := strconv.Atoi(input)
		if err != nil || age < 1 || age > MaxAge {
			return fmt.Errorf("please type your age as a number from 1 to %d", MaxAge)
		}
		w.p.Age = age
		w.step = StepComplete
	}
	return nil
}
