package melody

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	MinDuration = 0.05
	MaxDuration = 5.0
	// MaxRest is the longest gap between notes that is kept, folded into the
	// preceding note. Longer rests are dropped.
	MaxRest = 0.3
	// DefaultCeiling caps note frequencies, in Hz.
	DefaultCeiling = 2000.0

	defaultTempoMicros = 500000
)

var ErrTimeFormat = errors.New("melody: unsupported SMF time format")

// Event is one note of the melody.
type Event struct {
	Frequency float64 // Hz
	Duration  float64 // seconds, within [MinDuration, MaxDuration]
}

// Options tune extraction.
type Options struct {
	// Ceiling caps frequencies; <= 0 means DefaultCeiling.
	Ceiling float64
}

func (o Options) ceiling() float64 {
	if o.Ceiling > 0 {
		return o.Ceiling
	}
	return DefaultCeiling
}

// NoteFrequency converts a MIDI note number to Hz (A4 = 69 = 440 Hz).
func NoteFrequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// Note is a timed note boundary on the chosen track.
type Note struct {
	Time float64 // seconds from track start
	Key  int
	On   bool
}

// Track is a monophonic reading of one MIDI track.
type Track struct {
	Notes []Note
	End   float64 // time of the last message, seconds
}

func clampDuration(d float64) float64 {
	return math.Max(MinDuration, math.Min(d, MaxDuration))
}

// Extract turns note boundaries into melody events. A note-on that repeats the
// sounding frequency within MinDuration is merged into it; any other note-on
// or a note-off closes the sounding note.
func Extract(tr Track, opt Options) []Event {
	ceil := opt.ceiling()
	var (
		out      []Event
		cur      float64
		last     float64
		restFrom = -1.0
	)
	closeNote := func(at float64) {
		out = append(out, Event{Frequency: cur, Duration: clampDuration(at - last)})
	}
	for _, n := range tr.Notes {
		if n.On {
			f := math.Min(NoteFrequency(n.Key), ceil)
			if f == cur && n.Time-last <= MinDuration {
				continue
			}
			if cur != 0 {
				closeNote(n.Time)
			} else if restFrom >= 0 && len(out) > 0 {
				if gap := n.Time - restFrom; gap <= MaxRest {
					prev := &out[len(out)-1]
					prev.Duration = clampDuration(prev.Duration + gap)
				}
			}
			cur, last, restFrom = f, n.Time, -1
			continue
		}
		if cur != 0 {
			closeNote(n.Time)
			cur, last, restFrom = 0, n.Time, n.Time
		}
	}
	if cur != 0 {
		closeNote(math.Max(tr.End, last))
	}
	return out
}

// MainTrack returns the index of the track with the most note-on messages.
func MainTrack(s *smf.SMF) int {
	best, bestCount := 0, -1
	for i, tr := range s.Tracks {
		count := 0
		for _, ev := range tr {
			var ch, key, vel uint8
			if midi.Message(ev.Message).GetNoteOn(&ch, &key, &vel) {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	return best
}

type tempoChange struct {
	tick       int64
	secPerTick float64
}

// tempoMap gathers the tempo events of every track in tick order, so a
// format 1 conductor track times the notes of the others.
func tempoMap(s *smf.SMF, tpq float64) []tempoChange {
	var m []tempoChange
	for _, tr := range s.Tracks {
		var tick int64
		for _, ev := range tr {
			tick += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				m = append(m, tempoChange{tick: tick, secPerTick: 60 / bpm / tpq})
			}
		}
	}
	sort.SliceStable(m, func(a, b int) bool { return m[a].tick < m[b].tick })
	return m
}

// ReadTrack converts track i of s into note boundaries, timed by the tempo
// changes of all tracks. A tempo change takes effect after the ticks that
// precede it.
func ReadTrack(s *smf.SMF, i int) (Track, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || mt == 0 {
		return Track{}, ErrTimeFormat
	}
	var tr Track
	if i < 0 || i >= len(s.Tracks) {
		return tr, nil
	}
	tpq := float64(mt)
	tempos := tempoMap(s, tpq)
	secPerTick := defaultTempoMicros / 1e6 / tpq
	var (
		now        float64
		tick, last int64
		next       int
	)
	for _, ev := range s.Tracks[i] {
		tick += int64(ev.Delta)
		for next < len(tempos) && tempos[next].tick <= tick {
			now += float64(tempos[next].tick-last) * secPerTick
			last, secPerTick = tempos[next].tick, tempos[next].secPerTick
			next++
		}
		now += float64(tick-last) * secPerTick
		last = tick

		msg := midi.Message(ev.Message)
		var ch, key, vel uint8
		switch {
		case msg.GetNoteOn(&ch, &key, &vel):
			tr.Notes = append(tr.Notes, Note{Time: now, Key: int(key), On: vel > 0})
		case msg.GetNoteOff(&ch, &key, &vel):
			tr.Notes = append(tr.Notes, Note{Time: now, Key: int(key)})
		}
	}
	tr.End = now
	return tr, nil
}

// FromSMF extracts the melody of the busiest track.
func FromSMF(s *smf.SMF, opt Options) ([]Event, error) {
	tr, err := ReadTrack(s, MainTrack(s))
	if err != nil {
		return nil, err
	}
	return Extract(tr, opt), nil
}

// ReadFrom parses an SMF stream and extracts its melody.
func ReadFrom(r io.Reader, opt Options) ([]Event, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("melody: parse: %w", err)
	}
	return FromSMF(s, opt)
}

// Load reads the melody of the MIDI file at path.
func Load(path string, opt Options) ([]Event, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("melody: read %s: %w", path, err)
	}
	return FromSMF(s, opt)
}
