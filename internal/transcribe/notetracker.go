package transcribe

import (
	"slices"
)

type held struct {
	onset    int64
	velocity uint8
}

// NoteTracker pairs note starts with note ends into raw events.
// A key struck again while held is stacked; ends close the oldest start.
type NoteTracker struct {
	track  int
	active map[key][]held
	events []RawNoteEvent
}

func NewNoteTracker(track int) *NoteTracker {
	return &NoteTracker{
		track:  track,
		active: map[key][]held{},
	}
}

// Playing reports whether any note is held.
func (t *NoteTracker) Playing() bool {
	return len(t.active) > 0
}

// Start records a note start. A zero velocity is a note end.
func (t *NoteTracker) Start(tick int64, ch, pitch, velocity uint8) {
	if velocity == 0 {
		t.End(tick, ch, pitch)
		return
	}
	k := key{ch, pitch}
	t.active[k] = append(t.active[k], held{onset: tick, velocity: velocity})
}

// End closes the oldest held start of the key; stray ends are ignored.
func (t *NoteTracker) End(tick int64, ch, pitch uint8) {
	k := key{ch, pitch}
	starts := t.active[k]
	if len(starts) == 0 {
		return
	}
	t.emit(k, starts[0], tick)
	if len(starts) == 1 {
		delete(t.active, k)
	} else {
		t.active[k] = starts[1:]
	}
}

// Flush ends every held note at tick.
func (t *NoteTracker) Flush(tick int64) {
	keys := make([]key, 0, len(t.active))
	for k := range t.active {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b key) int {
		if a.ch != b.ch {
			return int(a.ch) - int(b.ch)
		}
		return int(a.note) - int(b.note)
	})
	for _, k := range keys {
		for _, h := range t.active[k] {
			t.emit(k, h, tick)
		}
		delete(t.active, k)
	}
}

func (t *NoteTracker) emit(k key, h held, end int64) {
	t.events = append(t.events, RawNoteEvent{
		TrackID:  t.track,
		Channel:  k.ch,
		Pitch:    k.note,
		Onset:    h.onset,
		Duration: max(end-h.onset, 0),
		Velocity: h.velocity,
	})
}

// Events returns the paired events ordered by onset, numbered from zero.
func (t *NoteTracker) Events() []RawNoteEvent {
	out := slices.Clone(t.events)
	slices.SortStableFunc(out, func(a, b RawNoteEvent) int {
		if a.Onset != b.Onset {
			if a.Onset < b.Onset {
				return -1
			}
			return +1
		}
		return int(b.Pitch) - int(a.Pitch)
	})
	for i := range out {
		out[i].ID = i
	}
	return out
}
