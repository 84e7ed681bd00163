// Package types defines the shared data structures for the TinyTalkers engine.
// It holds type definitions only, with no logic beyond trivial helpers.
package types

// Vec is a position in scene-local pixels.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. X, Y is the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Direction is the sprite facing. It has no gameplay effect.
type Direction string

const (
	DirFront Direction = "front"
	DirBack  Direction = "back"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// FloorID names a floor of the scene.
type FloorID string

const (
	FloorGround FloorID = "ground"
	FloorUpper  FloorID = "upper"
)

// Intent is the set of held movement keys for one tick.
type Intent struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
}

// Stair is the stairway region of a floor.
type Stair struct {
	Zone      Rect
	Direction string // "up" or "down": the movement that traverses it
	Target    FloorID
	Landing   Vec // where the player lands on Target
}

// NPCSlot places an NPC on a floor.
type NPCSlot struct {
	NPC     string
	Anchor  Vec  // sprite position, for rendering
	Trigger Rect // interaction zone
}

// FloorDef is the static scene map of one floor.
type FloorDef struct {
	ID         FloorID
	Name       string
	Boundary   Size
	Obstacles  []Rect
	Stair      *Stair
	NPCs       []NPCSlot
	Background string
}

// Question is one quiz prompt and its expected answer.
type Question struct {
	Prompt string `json:"text"`
	Answer string `json:"answer"`
}

// NPCDef is the immutable definition of a talkable character.
type NPCDef struct {
	ID        string
	Name      string
	Voice     string // voice profile passed to speech synthesis
	Sprite    string
	Greeting  string
	Questions []Question
}

// Phrases holds the lines spoken by NPCs on quiz transitions.
// One is picked at random each time.
type Phrases struct {
	Correct     []string
	Incorrect   []string
	Complete    []string
	AlreadyDone []string
	Assist      []string
}

// GameDef holds game metadata and tuning from content.
type GameDef struct {
	Title      string
	Author     string
	Version    string
	Intro      string
	StartFloor FloorID
	StartPos   Vec
	SpriteSize float64 // the player sprite is square
	FeetSize   Size
	Speed      float64 // pixels per tick
	TickRate   int     // ticks per second
	Lives      int
}

// Event is emitted by the engine for front ends and collaborators.
type Event struct {
	Type string
	Data map[string]any
}

// Result is the output of a single engine tick.
type Result struct {
	Events []Event
	Output []string
}

// Player holds the player's runtime state.
type Player struct {
	Pos   Vec       `json:"pos"`
	Dir   Direction `json:"dir"`
	Floor FloorID   `json:"floor"`
}

// Progress is the per-NPC quiz progress for the session.
type Progress struct {
	Index     int  `json:"index"`
	Completed bool `json:"completed"`
}

// ChatTurn is one follow-up exchange with the assistant.
type ChatTurn struct {
	Question string
	Answer   string
	Pending  bool
	Failed   bool
}

// State is the complete mutable session state.
type State struct {
	Player      Player
	Progress    map[string]*Progress
	TickCount   int
	RNGSeed     int64
	RNGPosition int64
}
