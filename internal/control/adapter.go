package control

import (
	"log/slog"
	"math"

	"github.com/cbegin/oscmusic-go/internal/melody"
	"github.com/cbegin/oscmusic-go/internal/params"
)

// EventKind tells which fields of an Event are set.
type EventKind uint8

const (
	ControlChange EventKind = iota + 1
	NoteOn
	NoteOff
	KeyPress
)

// Event is a decoded input from any control source.
type Event struct {
	Kind     EventKind
	Control  int
	Value    int
	Note     int
	Velocity int
	Key      Key
}

// Handler receives events from a source.
type Handler interface {
	Handle(Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Event)

func (fn HandlerFunc) Handle(ev Event) { fn(ev) }

const (
	semitone       = 1.0594630943592953 // 2^(1/12)
	rotationStep   = 15.0
	scaleStep      = 0.1
	distortionStep = 0.1
)

// Adapter turns events into parameter writes. Every write is a single atomic
// store, last writer wins.
type Adapter struct {
	params  *params.State
	table   Table
	songLen int
	stop    func()
	logger  *slog.Logger
}

// NewAdapter resolves m and binds it to st. songLen is the melody length;
// with 0 the song switch does nothing. stop is called for the quit keys and
// may be nil.
func NewAdapter(st *params.State, m Mapping, songLen int, stop func(), logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if stop == nil {
		stop = func() {}
	}
	return &Adapter{
		params:  st,
		table:   Resolve(m),
		songLen: songLen,
		stop:    stop,
		logger:  logger,
	}
}

// Handle applies ev.
func (a *Adapter) Handle(ev Event) {
	switch ev.Kind {
	case ControlChange:
		a.controlChange(ev.Control, ev.Value)
	case NoteOn:
		if ev.Velocity > 0 {
			a.params.SetFrequency(melody.NoteFrequency(ev.Note))
		}
	case KeyPress:
		a.key(ev.Key)
	}
}

func (a *Adapter) controlChange(cc, v int) {
	act := a.table.Lookup(cc)
	switch act.Kind {
	case ActionNone:
	case ActionScale:
		a.params.SetScale(ScaleValue(v))
	case ActionRotation:
		a.params.SetRotation(RotationValue(v))
	case ActionDistortion:
		a.params.SetDistortion(DistortionValue(v))
	case ActionFPS:
		a.params.SetFPS(FPSValue(v))
	case ActionPause:
		a.setPaused(On(v))
	case ActionSong:
		a.setSong(On(v))
	case ActionSelect:
		if On(v) {
			a.selectAnimation(act.Animation)
		}
	default:
		a.params.SetFrequency(FrequencyValue(v))
	}
}

func (a *Adapter) setPaused(on bool) {
	if a.params.Paused() == on {
		return
	}
	a.params.SetPaused(on)
	a.logger.Info("pause", "on", on)
}

func (a *Adapter) setSong(on bool) {
	if on && a.songLen == 0 {
		a.logger.Debug("song mode unavailable, melody is empty")
		return
	}
	if a.params.Song() == on {
		return
	}
	if on {
		a.params.SetSongIndex(0)
	}
	a.params.SetSong(on)
	a.logger.Info("song mode", "on", on)
}

func (a *Adapter) selectAnimation(i int) {
	if i == a.params.Animation() {
		return
	}
	if a.params.SelectAnimation(i) {
		a.logger.Info("animation selected", "index", i)
	}
}

func (a *Adapter) key(k Key) {
	st := a.params
	switch {
	case k == KeyEsc || k == KeyCtrlC:
		a.logger.Info("stop requested")
		a.stop()
	case k == ' ':
		a.setPaused(!st.Paused())
	case k == 's':
		a.setSong(!st.Song())
	case k >= '1' && k <= '9':
		a.selectAnimation(int(k - '1'))
	case k == '+' || k == '=':
		st.SetFrequency(st.Frequency() * semitone)
	case k == '-':
		st.SetFrequency(st.Frequency() / semitone)
	case k == '[':
		st.SetRotation(st.Rotation() - rotationStep)
	case k == ']':
		st.SetRotation(st.Rotation() + rotationStep)
	case k == ',':
		st.SetScale(round1(st.Scale() - scaleStep))
	case k == '.':
		st.SetScale(round1(st.Scale() + scaleStep))
	case k == 'd':
		st.SetDistortion(round1(st.Distortion() - distortionStep))
	case k == 'D':
		st.SetDistortion(round1(st.Distortion() + distortionStep))
	}
}

// round1 keeps repeated key steps on the 0.1 grid.
func round1(v float64) float64 { return math.Round(v*10) / 10 }
