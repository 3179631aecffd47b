package transcribe

import (
	"slices"
)

// note is the working copy of a raw event, in internal ticks.
type note struct {
	id       int
	channel  uint8
	pitch    uint8
	velocity uint8
	onset    int64
	end      int64
	staff    int
}

type key struct {
	ch, note uint8
}

// sortNotes orders by onset, then pitch descending, then ID.
func sortNotes(notes []note) {
	slices.SortStableFunc(notes, func(a, b note) int {
		if a.onset != b.onset {
			if a.onset < b.onset {
				return -1
			}
			return +1
		}
		if a.pitch != b.pitch {
			return int(b.pitch) - int(a.pitch)
		}
		return a.id - b.id
	})
}

// normalize converts the events of tr to internal ticks in canonical order.
// A note that starts again while still sounding cuts the earlier note short.
func normalize(in *Input, tr *Track) []note {
	notes := make([]note, 0, len(tr.Events))
	for _, ev := range tr.Events {
		notes = append(notes, note{
			id:       ev.ID,
			channel:  ev.Channel,
			pitch:    ev.Pitch,
			velocity: ev.Velocity,
			onset:    in.ToInternal(ev.Onset),
			end:      in.ToInternal(ev.End()),
		})
	}
	sortNotes(notes)
	sounding := map[key]int{}
	for i := range notes {
		k := key{notes[i].channel, notes[i].pitch}
		if prev, found := sounding[k]; found && notes[prev].end > notes[i].onset {
			// Restart the note.
			notes[prev].end = notes[i].onset
		}
		sounding[k] = i
	}
	return notes
}
