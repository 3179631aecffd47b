package transcribe

// span is a stretch of one voice inside one measure: a note fragment or a rest.
type span struct {
	start, end int64
	event      int // index into the pipeline events, -1 for a rest
	tieNext    bool
	tuplet     int
}

// meter decides which glyphs may be written where inside one bar.
type meter struct {
	bar      Bar
	simplify bool
	dotted   bool
}

// allowed reports whether a plain glyph of length may start at start.
func (m meter) allowed(g Glyph, start, length int64) bool {
	b := m.bar
	beat := b.BeatLength()
	o := start - b.Begin
	end := o + length
	if length > beat {
		if !m.simplify || o%beat != 0 || length%beat != 0 {
			return false
		}
		if b.evenSimple() && o != 0 {
			half := b.Length / 2
			if o < half && end > half {
				return false
			}
		}
		return true
	}
	// Within one beat.
	if floorDiv(o, beat) != floorDiv(end-1, beat) {
		return false
	}
	in := o - floorDiv(o, beat)*beat
	if g.Dots == 0 {
		return in%length == 0
	}
	undotted := Glyph{Log: g.Log}.Ticks()
	return in%undotted == 0 || end%beat == 0
}

// decompose writes a plain span with as few glyphs as the meter allows.
func (m meter) decompose(start, length int64) []Glyph {
	all := glyphs(m.dotted)
	var out []Glyph
	for length > 0 {
		found := false
		for _, g := range all {
			t := g.Ticks()
			if t <= length && m.allowed(g, start, t) {
				out = append(out, g)
				start += t
				length -= t
				found = true
				break
			}
		}
		if found {
			continue
		}
		// Nothing fits the beat rules; take the longest glyph that fits at all.
		g := largestGlyph(all, length)
		out = append(out, g)
		t := g.Ticks()
		start += t
		length -= t
	}
	return out
}

// largestGlyph returns the longest glyph no longer than length, or the shortest glyph.
func largestGlyph(all []Glyph, length int64) Glyph {
	for _, g := range all {
		if g.Ticks() <= length {
			return g
		}
	}
	return all[len(all)-1]
}

// decomposeWritten splits a written length inside a tuplet bracket, longest glyph first.
func decomposeWritten(length int64, dotted bool) []Glyph {
	all := glyphs(dotted)
	var out []Glyph
	for length > 0 {
		g := largestGlyph(all, length)
		out = append(out, g)
		length -= g.Ticks()
	}
	return out
}

// voiceSpans cuts one voice of one bar into note fragments and rests,
// split at tuplet brackets. ok is false when the voice has nothing in the bar.
func (p *Pipeline) voiceSpans(staff, voice int, bar Bar) ([]span, bool) {
	var notes []span
	for i, ev := range p.events {
		if ev.Dropped || ev.Staff != staff || ev.Voice != voice {
			continue
		}
		if ev.End() <= bar.Begin || ev.Onset >= bar.End() {
			continue
		}
		s := max(ev.Onset, bar.Begin)
		e := min(ev.End(), bar.End())
		notes = append(notes, span{start: s, end: e, event: i, tieNext: ev.End() > e, tuplet: -1})
	}
	if len(notes) == 0 {
		return nil, false
	}
	var filled []span
	at := bar.Begin
	for _, n := range notes {
		if n.start > at {
			filled = append(filled, span{start: at, end: n.start, event: -1, tuplet: -1})
		}
		filled = append(filled, n)
		at = n.end
	}
	if at < bar.End() {
		filled = append(filled, span{start: at, end: bar.End(), event: -1, tuplet: -1})
	}

	// Split at the brackets of this voice.
	for _, t := range p.tuplets {
		if t.Staff != staff || t.Voice != voice || t.Start >= bar.End() || t.End() <= bar.Begin {
			continue
		}
		filled = splitAt(filled, t.Start)
		filled = splitAt(filled, t.End())
		for i := range filled {
			if filled[i].start >= t.Start && filled[i].end <= t.End() {
				filled[i].tuplet = t.ID
			}
		}
	}
	return filled, true
}

// splitAt cuts the span containing tick in two; a note fragment is tied across.
func splitAt(spans []span, tick int64) []span {
	for i, s := range spans {
		if s.start < tick && tick < s.end {
			left, right := s, s
			left.end, right.start = tick, tick
			if s.event >= 0 {
				left.tieNext = true
			}
			out := append([]span(nil), spans[:i]...)
			out = append(out, left, right)
			return append(out, spans[i+1:]...)
		}
	}
	return spans
}

// simplify runs the TUPLET_RESOLVED to SIMPLIFIED transition.
func (p *Pipeline) simplify() {
	p.measures = make([][]Measure, p.staves)
	for staff := range p.measures {
		ms := make([]Measure, len(p.bars))
		for bi, bar := range p.bars {
			m := Measure{
				Number:     bi + 1,
				Start:      bar.Begin,
				Length:     bar.Length,
				TimeSig:    TimeSignature{Num: bar.Num, Denom: bar.Denom},
				Pickup:     bar.Pickup,
				Incomplete: bar.Incomplete(),
			}
			if bar.Pickup {
				m.TimeSig = TimeSignature{Num: bar.OrigNum, Denom: bar.OrigDenom}
			}
			for v := 0; v < p.config.MaxVoices; v++ {
				spans, ok := p.voiceSpans(staff, v, bar)
				switch {
				case ok:
					m.Voices = append(m.Voices, p.writeVoice(v, bar, spans))
				case v == 0:
					m.Voices = append(m.Voices, VoiceMeasure{
						Voice: 0,
						Elements: []Element{{
							Kind:   MeasureRestElement,
							Start:  bar.Begin,
							Length: bar.Length,
							Glyph:  Glyph{Log: 0},
							Event:  -1,
							Tuplet: -1,
						}},
					})
				}
			}
			ms[bi] = m
		}
		p.measures[staff] = ms
	}
}

// writeVoice turns spans into glyph elements and tuplet groups.
func (p *Pipeline) writeVoice(voice int, bar Bar, spans []span) VoiceMeasure {
	m := meter{bar: bar, simplify: p.config.SimplifyDurations, dotted: p.config.DottedNotes}
	vm := VoiceMeasure{Voice: voice}
	groups := map[int]int{}
	for _, s := range spans {
		kind := RestElement
		var pitch, velocity uint8
		id := -1
		if s.event >= 0 {
			ev := p.events[s.event]
			kind, pitch, velocity, id = NoteElement, ev.Pitch, ev.Velocity, ev.ID
		}
		var written []Glyph
		var t Tuplet
		if s.tuplet >= 0 {
			t = p.tuplets[s.tuplet]
			written = decomposeWritten((s.end-s.start)*int64(t.Ratio.Actual)/int64(t.Ratio.Normal), p.config.DottedNotes)
		} else {
			written = m.decompose(s.start, s.end-s.start)
		}
		at := s.start
		for i, g := range written {
			length := g.Ticks()
			if s.tuplet >= 0 {
				length = length * int64(t.Ratio.Normal) / int64(t.Ratio.Actual)
			}
			if i == len(written)-1 {
				length = s.end - at
			}
			e := Element{
				Kind:     kind,
				Start:    at,
				Length:   length,
				Glyph:    g,
				Pitch:    pitch,
				Velocity: velocity,
				TieNext:  kind == NoteElement && (i < len(written)-1 || s.tieNext),
				Event:    id,
				Tuplet:   s.tuplet,
			}
			at += length
			if s.tuplet >= 0 {
				gi, found := groups[s.tuplet]
				if !found {
					base, _ := glyphFor(t.Base)
					gi = len(vm.Tuplets)
					groups[s.tuplet] = gi
					vm.Tuplets = append(vm.Tuplets, TupletGroup{
						ID:     t.ID,
						Ratio:  t.Ratio,
						Base:   base,
						Start:  t.Start,
						Length: t.Length(),
					})
				}
				vm.Tuplets[gi].Elements = append(vm.Tuplets[gi].Elements, len(vm.Elements))
			}
			vm.Elements = append(vm.Elements, e)
		}
	}
	return vm
}
