// Package realtime brokers voice sessions with the realtime model and runs
// the small set of actions the assistant may ask the game to perform.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCommand is returned for a tool name outside the catalogue.
	ErrUnknownCommand = errors.New("realtime: unknown command")
	// ErrBadArguments is returned when a tool call's arguments are invalid.
	ErrBadArguments = errors.New("realtime: bad arguments")
)

// Tool names as advertised to the model.
const (
	toolChangeBackground = "changeBackgroundColor"
	toolChangeTextColor  = "changeTextColor"
	toolShowFingers      = "showFingers"
	toolOpenGameInvite   = "openGameInvite"
	toolDescribeScene    = "describeScene"
)

// Command is one action requested by the assistant. The set of commands is
// closed; see Dispatch.
type Command interface {
	Name() string
	command()
}

// ChangeBackground sets the page background colour.
type ChangeBackground struct {
	Color string `json:"color"`
}

// ChangeTextColor sets the text colour.
type ChangeTextColor struct {
	Color string `json:"color"`
}

// ShowFingers holds up 1 to 5 fingers on the helper hand.
type ShowFingers struct {
	Count int `json:"numberOfFingers"`
}

// OpenGameInvite shows an invitation to start playing.
type OpenGameInvite struct {
	Message string `json:"message"`
}

// DescribeScene asks for a text description of what the child sees.
type DescribeScene struct{}

func (ChangeBackground) Name() string { return toolChangeBackground }
func (ChangeTextColor) Name() string  { return toolChangeTextColor }
func (ShowFingers) Name() string      { return toolShowFingers }
func (OpenGameInvite) Name() string   { return toolOpenGameInvite }
func (DescribeScene) Name() string    { return toolDescribeScene }

func (ChangeBackground) command() {}
func (ChangeTextColor) command()  {}
func (ShowFingers) command()      {}
func (OpenGameInvite) command()   {}
func (DescribeScene) command()    {}

// DefaultInviteMessage is used when the model sends an invite with no text.
const DefaultInviteMessage = "Let's play a game!"

// ParseCall decodes a function call from the model.
func ParseCall(name, args string) (Command, error) {
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	switch name {
	case toolChangeBackground:
		var c ChangeBackground
		if err := decodeArgs(args, &c); err != nil {
			return nil, err
		}
		if c.Color = strings.TrimSpace(c.Color); c.Color == "" {
			return nil, fmt.Errorf("%w: color is required", ErrBadArguments)
		}
		return c, nil
	case toolChangeTextColor:
		var c ChangeTextColor
		if err := decodeArgs(args, &c); err != nil {
			return nil, err
		}
		if c.Color = strings.TrimSpace(c.Color); c.Color == "" {
			return nil, fmt.Errorf("%w: color is required", ErrBadArguments)
		}
		return c, nil
	case toolShowFingers:
		var c ShowFingers
		if err := decodeArgs(args, &c); err != nil {
			return nil, err
		}
		if c.Count < 1 || c.Count > 5 {
			return nil, fmt.Errorf("%w: numberOfFingers must be 1 to 5, got %d", ErrBadArguments, c.Count)
		}
		return c, nil
	case toolOpenGameInvite:
		var c OpenGameInvite
		if err := decodeArgs(args, &c); err != nil {
			return nil, err
		}
		if c.Message = strings.TrimSpace(c.Message); c.Message == "" {
			c.Message = DefaultInviteMessage
		}
		return c, nil
	case toolDescribeScene:
		return DescribeScene{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

func decodeArgs(args string, v any) error {
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	return nil
}

// Handler performs commands. Implementations are called from the client's
// read loop and must not block for long.
type Handler interface {
	ChangeBackground(color string) error
	ChangeTextColor(color string) error
	ShowFingers(count int) error
	OpenGameInvite(message string) error
	DescribeScene() (string, error)
}

// Output is the JSON result reported back to the model.
type Output map[string]any

// Dispatch runs cmd on h and builds the result for the model.
func Dispatch(cmd Command, h Handler) (Output, error) {
	switch c := cmd.(type) {
	case ChangeBackground:
		if err := h.ChangeBackground(c.Color); err != nil {
			return nil, err
		}
		return Output{"success": true, "color": c.Color}, nil
	case ChangeTextColor:
		if err := h.ChangeTextColor(c.Color); err != nil {
			return nil, err
		}
		return Output{"success": true, "color": c.Color}, nil
	case ShowFingers:
		if err := h.ShowFingers(c.Count); err != nil {
			return nil, err
		}
		return Output{"success": true, "numberOfFingers": c.Count}, nil
	case OpenGameInvite:
		if err := h.OpenGameInvite(c.Message); err != nil {
			return nil, err
		}
		return Output{"success": true, "message": c.Message}, nil
	case DescribeScene:
		text, err := h.DescribeScene()
		if err != nil {
			return nil, err
		}
		return Output{"success": true, "scene": text}, nil
	default:
		panic(fmt.Sprintf("realtime: unhandled command %T", cmd))
	}
}

// Tool is one function in the catalogue sent with session.update.
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

func colorParams() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"color": map[string]any{"type": "string", "description": "A hex value of the color"},
		},
	}
}

// Tools returns the catalogue of commands the model may call.
func Tools() []Tool {
	return []Tool{
		{Type: "function", Name: toolChangeBackground, Description: "Changes the background color of the game screen", Parameters: colorParams()},
		{Type: "function", Name: toolChangeTextColor, Description: "Changes the text color of the game screen", Parameters: colorParams()},
		{
			Type: "function", Name: toolShowFingers,
			Description: "Controls a helper hand to show a specific number of fingers",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"numberOfFingers": map[string]any{
						"enum":        []int{1, 2, 3, 4, 5},
						"description": "Values 1 through 5 of the number of fingers to hold up",
					},
				},
			},
		},
		{
			Type: "function", Name: toolOpenGameInvite,
			Description: "Shows the child an invitation to start the game",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string", "description": "A short, friendly invitation"},
				},
			},
		},
		{Type: "function", Name: toolDescribeScene, Description: "Describes where the child is in the game and who is nearby"},
	}
}
