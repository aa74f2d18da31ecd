package control

// DecodeMIDI converts a channel voice message to an Event. Only note on, note
// off and control change are reported; a note on with velocity 0 is a note
// off.
func DecodeMIDI(status, data1, data2 int) (Event, bool) {
	switch status & 0xf0 {
	case 0x90:
		if data2 == 0 {
			return Event{Kind: NoteOff, Note: data1}, true
		}
		return Event{Kind: NoteOn, Note: data1, Velocity: data2}, true
	case 0x80:
		return Event{Kind: NoteOff, Note: data1, Velocity: data2}, true
	case 0xb0:
		return Event{Kind: ControlChange, Control: data1, Value: data2}, true
	}
	return Event{}, false
}
