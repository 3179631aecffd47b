package file

import (
	"cmp"
	"fmt"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midinotate/internal/transcribe"
)

// Resolution is the ticks per quarter of written files.
// The header holds only 15 bits, so the internal division is halved.
const Resolution = transcribe.Division / 2

func toFile(tick int64) int64 {
	return (tick + 1) / 2
}

// timed is one message of an output track at an absolute tick.
type timed struct {
	tick int64
	end  bool
	msg  []byte
}

// trackBuilder collects messages in any order and writes them with deltas.
type trackBuilder struct {
	events []timed
}

func (b *trackBuilder) add(tick int64, msg []byte) {
	b.events = append(b.events, timed{tick: tick, msg: msg})
}

func (b *trackBuilder) addEnd(tick int64, msg []byte) {
	b.events = append(b.events, timed{tick: tick, end: true, msg: msg})
}

// track sorts by time, note ends first, and closes the track at end.
func (b *trackBuilder) track(end int64) smf.Track {
	slices.SortStableFunc(b.events, func(x, y timed) int {
		if c := cmp.Compare(x.tick, y.tick); c != 0 {
			return c
		}
		if x.end != y.end {
			if x.end {
				return -1
			}
			return +1
		}
		return 0
	})
	var t smf.Track
	var at int64
	for _, ev := range b.events {
		tick := toFile(ev.tick)
		t.Add(uint32(tick-at), ev.msg)
		at = tick
	}
	t.Close(uint32(max(toFile(end)-at, 0)))
	return t
}

// sounding is a written note after joining ties.
type sounding struct {
	start, end int64
	pitch      uint8
	velocity   uint8
}

// partNotes joins the tied elements of every voice of a part into sounding notes.
func partNotes(p *transcribe.Part) ([]sounding, []transcribe.Lyric) {
	var out []sounding
	var lyrics []transcribe.Lyric
	type line struct{ staff, voice int }
	open := map[line]*sounding{}
	for _, st := range p.Staves {
		for _, m := range st.Measures {
			for _, v := range m.Voices {
				l := line{st.Index, v.Voice}
				for _, e := range v.Elements {
					if e.Kind != transcribe.NoteElement {
						continue
					}
					if e.Lyric != "" {
						lyrics = append(lyrics, transcribe.Lyric{Tick: e.Start, Text: e.Lyric})
					}
					n := open[l]
					if n == nil {
						n = &sounding{start: e.Start, pitch: e.Pitch, velocity: max(e.Velocity, 1)}
					}
					n.end = e.End()
					if e.TieNext {
						open[l] = n
						continue
					}
					out = append(out, *n)
					delete(open, l)
				}
			}
		}
	}
	// A tie out of the last measure still ends there.
	keys := make([]line, 0, len(open))
	for l := range open {
		keys = append(keys, l)
	}
	slices.SortFunc(keys, func(a, b line) int {
		if a.staff != b.staff {
			return a.staff - b.staff
		}
		return a.voice - b.voice
	})
	for _, l := range keys {
		out = append(out, *open[l])
	}
	return out, lyrics
}

// channels assigns output channels: percussion on the drum channel, others in order around it.
func channels(parts []transcribe.Part) []uint8 {
	out := make([]uint8, len(parts))
	next := uint8(0)
	for i, p := range parts {
		if p.Instrument.Percussion {
			out[i] = PercussionChannel
			continue
		}
		if next == PercussionChannel {
			next++
		}
		out[i] = next % 16
		next = (next + 1) % 16
	}
	return out
}

// Encode writes the notated score as a standard MIDI file at Resolution.
// Tempo changes come from in; meters follow the bars of the score.
func Encode(s *transcribe.Score, in *transcribe.Input) (*smf.SMF, error) {
	var end int64
	if len(s.Bars) > 0 {
		end = s.Bars.End()
	}

	var conductor trackBuilder
	conductor.add(0, smf.MetaTrackSequenceName("conductor"))
	for _, t := range in.Tempos {
		conductor.add(in.ToInternal(t.Tick), smf.MetaTempo(t.BPM))
	}
	prevNum, prevDenom := 0, 0
	for _, b := range s.Bars {
		if b.Num == prevNum && b.Denom == prevDenom {
			continue
		}
		conductor.add(b.Begin, smf.MetaMeter(uint8(b.Num), uint8(b.Denom)))
		prevNum, prevDenom = b.Num, b.Denom
	}

	mid := smf.NewSMF1()
	mid.TimeFormat = smf.MetricTicks(Resolution)
	if err := mid.Add(conductor.track(end)); err != nil {
		return nil, fmt.Errorf("could not add conductor track: %w", err)
	}
	chans := channels(s.Parts)
	for i := range s.Parts {
		p := &s.Parts[i]
		ch := chans[i]
		var b trackBuilder
		if p.Name != "" {
			b.add(0, smf.MetaTrackSequenceName(p.Name))
		}
		if !p.Instrument.Percussion {
			b.add(0, midi.ProgramChange(ch, p.Instrument.Program))
		}
		notes, lyrics := partNotes(p)
		for _, l := range lyrics {
			b.add(l.Tick, smf.MetaLyric(l.Text))
		}
		for _, n := range notes {
			b.add(n.start, midi.NoteOn(ch, n.pitch, n.velocity))
			b.addEnd(n.end, midi.NoteOff(ch, n.pitch))
		}
		if err := mid.Add(b.track(end)); err != nil {
			return nil, fmt.Errorf("could not add track %d: %w", p.TrackID, err)
		}
	}
	return mid, nil
}
