// Package save implements JSON serialization and deserialization of a play
// session: position, facing, floor and per-NPC quiz progress.
package save

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nathoo/tinytalkers/engine/state"
	"github.com/nathoo/tinytalkers/types"
)

// ErrWrongGame is returned by Check when a save belongs to other content.
var ErrWrongGame = errors.New("save: belongs to a different game")

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version     string                    `json:"version"`
	Game        string                    `json:"game"`
	Tick        int                       `json:"tick"`
	Player      types.Player              `json:"player"`
	Progress    map[string]types.Progress `json:"progress"`
	RNGSeed     int64                     `json:"rng_seed"`
	RNGPosition int64                     `json:"rng_position"`
}

// Save serializes game state to JSON bytes.
func Save(s *types.State, defs *state.Defs) ([]byte, error) {
	data := SaveData{
		Version:     defs.Game.Version,
		Game:        defs.Game.Title,
		Tick:        s.TickCount,
		Player:      s.Player,
		Progress:    make(map[string]types.Progress, len(s.Progress)),
		RNGSeed:     s.RNGSeed,
		RNGPosition: s.RNGPosition,
	}
	for id, p := range s.Progress {
		if p != nil {
			data.Progress[id] = *p
		}
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Progress == nil {
		sd.Progress = map[string]types.Progress{}
	}
	if sd.Player.Dir == "" {
		sd.Player.Dir = types.DirFront
	}
	return &sd, nil
}

// Check reports whether sd can be applied to the given content.
func Check(sd *SaveData, defs *state.Defs) error {
	if sd.Game != defs.Game.Title {
		return fmt.Errorf("%w: %q, playing %q", ErrWrongGame, sd.Game, defs.Game.Title)
	}
	if _, ok := defs.Floors[sd.Player.Floor]; !ok {
		return fmt.Errorf("save: unknown floor %q", sd.Player.Floor)
	}
	return nil
}

// ApplySave applies loaded save data onto a state. Progress records are
// updated in place; NPCs missing from the save start over.
func ApplySave(s *types.State, sd *SaveData) {
	s.Player = sd.Player
	s.TickCount = sd.Tick
	s.RNGSeed = sd.RNGSeed
	s.RNGPosition = sd.RNGPosition
	if s.Progress == nil {
		s.Progress = map[string]*types.Progress{}
	}
	for id, p := range s.Progress {
		if saved, ok := sd.Progress[id]; ok {
			*p = saved
		} else {
			*p = types.Progress{}
		}
	}
	for id, saved := range sd.Progress {
		if _, ok := s.Progress[id]; !ok {
			p := saved
			s.Progress[id] = &p
		}
	}
}
