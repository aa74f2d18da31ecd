package melody

import (
	"bytes"
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const tol = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < tol }

func TestNoteFrequency(t *testing.T) {
	if got := NoteFrequency(69); got != 440 {
		t.Fatalf("A4 = %v, want 440", got)
	}
	if got := NoteFrequency(81); !near(got, 880) {
		t.Fatalf("A5 = %v, want 880", got)
	}
	if got := NoteFrequency(60); !near(got, 261.6255653005986) {
		t.Fatalf("C4 = %v", got)
	}
}

func TestSamePitchNoteOnsMerge(t *testing.T) {
	tr := Track{Notes: []Note{
		{Time: 0, Key: 69, On: true},
		{Time: 0.02, Key: 69, On: true},
	}, End: 0.02}
	got := Extract(tr, Options{})
	if len(got) != 1 {
		t.Fatalf("events = %+v, want one merged event", got)
	}
	if got[0].Frequency != 440 {
		t.Fatalf("frequency = %v, want 440", got[0].Frequency)
	}
	if got[0].Duration < MinDuration {
		t.Fatalf("duration = %v, want >= %v", got[0].Duration, MinDuration)
	}
}

func TestDistinctNotesAndClamping(t *testing.T) {
	tr := Track{Notes: []Note{
		{Time: 0, Key: 60, On: true},
		{Time: 0.5, Key: 64, On: true},
		{Time: 7, Key: 64},
		{Time: 7.01, Key: 67, On: true},
		{Time: 7.02, Key: 67},
	}, End: 7.5}
	got := Extract(tr, Options{})
	want := []Event{
		{Frequency: NoteFrequency(60), Duration: 0.5},
		{Frequency: NoteFrequency(64), Duration: MaxDuration},
		{Frequency: NoteFrequency(67), Duration: MinDuration},
	}
	if len(got) != len(want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}
	for i := range want {
		if !near(got[i].Frequency, want[i].Frequency) || !near(got[i].Duration, want[i].Duration) {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFrequencyCeiling(t *testing.T) {
	tr := Track{Notes: []Note{{Time: 0, Key: 120, On: true}, {Time: 1, Key: 120}}}
	got := Extract(tr, Options{})
	if len(got) != 1 || got[0].Frequency != DefaultCeiling {
		t.Fatalf("events = %+v, want one at %v Hz", got, DefaultCeiling)
	}
	got = Extract(tr, Options{Ceiling: 500})
	if got[0].Frequency != 500 {
		t.Fatalf("frequency = %v, want 500", got[0].Frequency)
	}
}

func TestShortRestsExtendPreviousNoteLongRestsDrop(t *testing.T) {
	tr := Track{Notes: []Note{
		{Time: 0, Key: 60, On: true},
		{Time: 1, Key: 60},
		{Time: 1.2, Key: 62, On: true}, // 0.2 s rest, kept
		{Time: 2, Key: 62},
		{Time: 3, Key: 64, On: true}, // 1 s rest, dropped
		{Time: 3.5, Key: 64},
	}}
	got := Extract(tr, Options{})
	wantDur := []float64{1.2, 0.8, 0.5}
	if len(got) != len(wantDur) {
		t.Fatalf("events = %+v", got)
	}
	for i, d := range wantDur {
		if !near(got[i].Duration, d) {
			t.Fatalf("event %d duration = %v, want %v", i, got[i].Duration, d)
		}
		if got[i].Frequency <= 0 {
			t.Fatalf("event %d has no frequency", i)
		}
	}
}

func writeSMF(t *testing.T, tracks ...smf.Track) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(500)
	for _, tr := range tracks {
		if err := s.Add(tr); err != nil {
			t.Fatalf("add track: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("write smf: %v", err)
	}
	return buf.Bytes()
}

func TestReadFromPicksBusiestTrackAndFollowsTempo(t *testing.T) {
	var sparse smf.Track
	sparse.Add(0, midi.NoteOn(1, 40, 100))
	sparse.Add(500, midi.NoteOff(1, 40))
	sparse.Close(0)

	// 500 ticks per quarter at 120 BPM is 1 ms per tick.
	var lead smf.Track
	lead.Add(0, smf.MetaTempo(120))
	lead.Add(0, midi.NoteOn(0, 69, 100))
	lead.Add(20, midi.NoteOn(0, 69, 100))
	lead.Add(180, midi.NoteOff(0, 69))
	lead.Add(0, smf.MetaTempo(60))
	lead.Add(100, midi.NoteOn(0, 81, 90))
	lead.Add(250, midi.NoteOn(0, 81, 0))
	lead.Close(0)

	got, err := ReadFrom(bytes.NewReader(writeSMF(t, sparse, lead)), Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %+v, want 2", got)
	}
	if got[0].Frequency != 440 || !near(got[0].Duration, 0.2+0.2) {
		// 0.2 s note followed by a 0.2 s rest (100 ticks at 60 BPM).
		t.Fatalf("event 0 = %+v", got[0])
	}
	if !near(got[1].Frequency, 880) || !near(got[1].Duration, 0.5) {
		t.Fatalf("event 1 = %+v", got[1])
	}
}

func TestConductorTrackTempoTimesOtherTracks(t *testing.T) {
	var conductor smf.Track
	conductor.Add(0, smf.MetaTempo(240))
	conductor.Close(0)

	var lead smf.Track
	lead.Add(0, midi.NoteOn(0, 69, 100))
	lead.Add(500, midi.NoteOn(0, 71, 100))
	lead.Add(500, midi.NoteOff(0, 71))
	lead.Close(0)

	got, err := ReadFrom(bytes.NewReader(writeSMF(t, conductor, lead)), Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %+v, want 2", got)
	}
	for i, want := range []float64{440, NoteFrequency(71)} {
		if !near(got[i].Frequency, want) || !near(got[i].Duration, 0.25) {
			t.Fatalf("event %d = %+v, want %v Hz for 0.25 s", i, got[i], want)
		}
	}
}

func TestTempoChangeOnLaterTrackAppliesFromItsTick(t *testing.T) {
	var conductor smf.Track
	conductor.Add(1000, smf.MetaTempo(60))
	conductor.Close(0)

	var lead smf.Track
	lead.Add(0, midi.NoteOn(0, 69, 100))
	lead.Add(1000, midi.NoteOn(0, 81, 100))
	lead.Add(500, midi.NoteOff(0, 81))
	lead.Close(0)

	got, err := ReadFrom(bytes.NewReader(writeSMF(t, conductor, lead)), Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || !near(got[0].Duration, 1) || !near(got[1].Duration, 1) {
		t.Fatalf("events = %+v, want 1 s at 120 BPM then 1 s at 60 BPM", got)
	}
}

func TestReadFromRejectsGarbage(t *testing.T) {
	if _, err := ReadFrom(bytes.NewReader([]byte("not midi")), Options{}); err == nil {
		t.Fatalf("expected parse error")
	}
}
