package file

import (
	"gitlab.com/gomidi/midi/v2/smf"
)

// walk calls yield for every event of mid in absolute time, merging all tracks.
// At equal times note ends come first so that a restruck key is never cut short.
func walk(mid *smf.SMF, yield func(tick int64, track int, msg smf.Message) error) error {
	// next is the index of the next event of each track, at is the time of its previous event.
	next := make([]int, len(mid.Tracks))
	at := make([]int64, len(mid.Tracks))
	for {
		track := -1
		var tick int64
		var ending bool
		for i, t := range mid.Tracks {
			if next[i] >= len(t) {
				continue
			}
			ev := t[next[i]]
			evTick := at[i] + int64(ev.Delta)
			evEnding := ev.Message.GetNoteEnd(nil, nil)
			if track < 0 || evTick < tick || (evTick == tick && evEnding && !ending) {
				track, tick, ending = i, evTick, evEnding
			}
		}
		if track < 0 {
			return nil
		}
		msg := mid.Tracks[track][next[track]].Message
		next[track]++
		at[track] = tick
		if msg.Is(smf.MetaEndOfTrackMsg) {
			continue
		}
		if err := yield(tick, track, msg); err != nil {
			return err
		}
	}
}
