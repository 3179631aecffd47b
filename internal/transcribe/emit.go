package transcribe

import (
	"slices"
	"strings"
)

// emit runs the SIMPLIFIED to EMITTED transition.
func (p *Pipeline) emit() {
	part := &Part{
		TrackID:    p.track.ID,
		Name:       p.track.Name,
		Instrument: p.track.Instrument,
		Swing:      p.swing,
		Tuplets:    slices.Clone(p.tuplets),
	}
	for staff, measures := range p.measures {
		var staffNotes []note
		for _, n := range p.notes {
			if n.staff == staff {
				staffNotes = append(staffNotes, n)
			}
		}
		st := Staff{
			Index:    staff,
			Clef:     initialClef(staffNotes, staff, p.staves, p.track.Instrument.Percussion),
			Measures: measures,
		}
		if p.config.ClefChanges {
			cur := st.Clef
			for i := range st.Measures {
				next := nextClef(cur, measurePitches(st.Measures[i]))
				if next != cur {
					c := next
					st.Measures[i].Clef = &c
					cur = next
				}
			}
		}
		part.Staves = append(part.Staves, st)
	}
	if p.config.Lyrics && len(part.Staves) > 0 {
		p.attachLyrics(&part.Staves[0])
	}
	part.Diagnostics = slices.Clone(p.diags)
	sortDiagnostics(part.Diagnostics)
	p.part = part
}

// measurePitches lists the pitches of notes starting in the measure.
func measurePitches(m Measure) []int {
	var out []int
	for _, v := range m.Voices {
		for _, e := range v.Elements {
			if e.Kind == NoteElement {
				out = append(out, int(e.Pitch))
			}
		}
	}
	return out
}

// attachLyrics puts every lyric on the first note written at its quantized tick,
// or on the nearest note within one grid unit.
func (p *Pipeline) attachLyrics(st *Staff) {
	g := grid{bars: p.bars, unit: p.config.Quantize.Ticks()}
	for _, l := range p.track.Lyrics {
		tick := g.snap(p.input.ToInternal(l.Tick))
		var best *Element
		bestDist := g.unit + 1
		for mi := range st.Measures {
			m := &st.Measures[mi]
			if m.End() <= tick-g.unit || m.Start > tick+g.unit {
				continue
			}
			for vi := range m.Voices {
				for ei := range m.Voices[vi].Elements {
					e := &m.Voices[vi].Elements[ei]
					if e.Kind != NoteElement || !p.startsEvent(e) {
						continue
					}
					d := e.Start - tick
					if d < 0 {
						d = -d
					}
					if d < bestDist {
						best, bestDist = e, d
					}
				}
			}
		}
		if best == nil {
			p.logger.Debug("no note for lyric", "tick", tick, "text", l.Text)
			continue
		}
		best.Lyric = strings.TrimSpace(strings.Join([]string{best.Lyric, l.Text}, " "))
	}
}

// startsEvent reports whether e is the first written piece of its event.
func (p *Pipeline) startsEvent(e *Element) bool {
	for _, ev := range p.events {
		if ev.ID == e.Event {
			return ev.Onset == e.Start
		}
	}
	return false
}
