package transcribe

import (
	"slices"
)

// grid snaps positions to grid points counted from the start of the containing bar.
type grid struct {
	bars Bars
	unit int64
}

// snap returns the nearest grid point. Exact midpoints go to the earlier point.
// A bar end is always a grid point, so partial bars snap cleanly.
func (g grid) snap(x int64) int64 {
	if x <= g.bars.Begin() {
		return g.bars.Begin()
	}
	b := g.bars[g.bars.Index(x)]
	lo := b.Begin + floorDiv(x-b.Begin, g.unit)*g.unit
	hi := lo + g.unit
	if x < b.End() && hi > b.End() {
		hi = b.End()
	}
	if x-lo <= hi-x {
		return lo
	}
	return hi
}

// perceived is where a note is heard once phase and swing are taken out.
type perceived struct {
	onset, end int64
}

// perceive removes swing and, in human mode, the local phase drift from every note.
func perceive(bars Bars, notes []note, g grid, sw Swing, human bool) []perceived {
	out := make([]perceived, len(notes))
	drift := newDriftEstimator(g.unit)
	for i := 0; i < len(notes); {
		// Notes starting together share one phase.
		j := i
		for j < len(notes) && notes[j].onset == notes[i].onset {
			j++
		}
		var phase int64
		if human {
			phase = drift.Phase()
		}
		for k := i; k < j; k++ {
			out[k] = perceived{
				onset: unswing(bars, notes[k].onset-phase, sw),
				end:   unswing(bars, notes[k].end-phase, sw),
			}
		}
		if human {
			on := out[i].onset
			residual := on - g.snap(on)
			drift.Observe(residual+phase, residual)
		}
		i = j
	}
	return out
}

// quantize runs the RAW to QUANTIZED transition.
func (p *Pipeline) quantize() {
	notes := normalize(p.input, p.track)
	p.staves = routeStaves(notes, p.config, p.track.Instrument.Percussion)
	p.notes = notes
	g := grid{bars: p.bars, unit: p.config.Quantize.Ticks()}

	p.swing = p.config.Swing
	if p.swing == SwingDetect {
		p.swing = detectSwing(p.bars, notes)
		p.logger.Debug("detected swing", "swing", p.swing)
	}
	perc := perceive(p.bars, notes, g, p.swing, p.config.HumanPerformance)

	// Staff readings only guide the first snap; brackets are read per voice later.
	det := newTupletDetector(p.bars, g, p.config.tuplets())
	p.windows = nil
	for staff := 0; staff < p.staves; staff++ {
		var onsets []int64
		for i, n := range notes {
			if n.staff == staff {
				onsets = append(onsets, perc[i].onset)
			}
		}
		windows, _ := det.detect(staff, onsets)
		p.windows = append(p.windows, windows...)
	}

	p.events = make([]QuantizedEvent, len(notes))
	for i, n := range notes {
		on, end, wi := p.snapNote(g, p.windows, n.staff, perc[i])
		p.events[i] = QuantizedEvent{
			ID:       n.id,
			Pitch:    n.pitch,
			Velocity: n.velocity,
			Onset:    on,
			Duration: end - on,
			Staff:    n.staff,
			Voice:    -1,
			Tuplet:   -1,
			window:   wi,
			heard:    perc[i],
		}
	}
	slices.SortStableFunc(p.events, compareEvents)
}

// snapNote returns the quantized onset and end of a note and the index of the window it belongs to.
func (p *Pipeline) snapNote(g grid, windows []window, staff int, pn perceived) (on, end int64, wi int) {
	plainOn := g.snap(pn.onset)
	wi = findWindow(windows, staff, plainOn)
	if wi < 0 {
		on, end = plainOn, g.snap(pn.end)
		if end <= on {
			p.logger.Debug("promoting zero duration", "onset", on, "unit", g.unit)
			end = on + g.unit
		}
		return on, end, -1
	}
	w := windows[wi]
	on = w.snapOnset(pn.onset)
	if pn.end <= w.end()+w.unit()/2 {
		end = w.snapEnd(pn.end)
	} else {
		end = max(g.snap(pn.end), w.end())
	}
	if end <= on {
		p.logger.Debug("promoting zero duration", "onset", on, "unit", w.unit())
		end = on + w.unit()
	}
	return on, end, wi
}

// compareEvents orders by onset, then pitch descending, then ID.
func compareEvents(a, b QuantizedEvent) int {
	if a.Onset != b.Onset {
		if a.Onset < b.Onset {
			return -1
		}
		return +1
	}
	if a.Pitch != b.Pitch {
		return int(b.Pitch) - int(a.Pitch)
	}
	return a.ID - b.ID
}
