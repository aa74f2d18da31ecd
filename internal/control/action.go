package control

import "fmt"

// ActionKind is what a control change does to the parameter state.
type ActionKind uint8

const (
	// ActionFrequency is the fallback for every unmapped controller.
	ActionFrequency ActionKind = iota
	ActionNone
	ActionScale
	ActionRotation
	ActionDistortion
	ActionFPS
	ActionPause
	ActionSong
	ActionSelect
)

var actionNames = [...]string{
	ActionFrequency:  "frequency",
	ActionNone:       "none",
	ActionScale:      "scale",
	ActionRotation:   "rotation",
	ActionDistortion: "distortion",
	ActionFPS:        "fps",
	ActionPause:      "pause",
	ActionSong:       "song",
	ActionSelect:     "select",
}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return fmt.Sprintf("action(%d)", k)
}

// Action is one entry of the controller table. Animation is only used by
// ActionSelect.
type Action struct {
	Kind      ActionKind
	Animation int
}

// Mapping assigns actions to controller numbers 0..127.
type Mapping map[int]Action

// DefaultMapping is the layout of the eight-knob, eight-slider surface the
// engine was built around.
func DefaultMapping() Mapping {
	return Mapping{
		72:  {Kind: ActionScale},
		16:  {Kind: ActionRotation},
		79:  {Kind: ActionDistortion},
		19:  {Kind: ActionFPS},
		91:  {Kind: ActionNone},
		18:  {Kind: ActionNone},
		17:  {Kind: ActionNone},
		114: {Kind: ActionNone},
		75:  {Kind: ActionPause},
		73:  {Kind: ActionSong},
		93:  {Kind: ActionSelect, Animation: 0},
		77:  {Kind: ActionSelect, Animation: 1},
		76:  {Kind: ActionSelect, Animation: 2},
		71:  {Kind: ActionSelect, Animation: 3},
		74:  {Kind: ActionSelect, Animation: 4},
		7:   {Kind: ActionSelect, Animation: 5},
	}
}

// Table is a resolved Mapping indexed by controller number.
type Table [128]Action

// Resolve flattens m into a Table. Controllers m does not mention, and
// entries outside 0..127, fall back to ActionFrequency.
func Resolve(m Mapping) Table {
	var t Table
	for cc, a := range m {
		if cc < 0 || cc >= len(t) {
			continue
		}
		t[cc] = a
	}
	return t
}

// Lookup returns the action for controller cc.
func (t *Table) Lookup(cc int) Action {
	if cc < 0 || cc >= len(t) {
		return Action{Kind: ActionNone}
	}
	return t[cc]
}
