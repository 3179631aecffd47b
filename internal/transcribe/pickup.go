package transcribe

import (
	"fmt"
	"slices"
)

// full returns the complete bar of the signature b was cut from, starting where b starts.
func (b Bar) full() Bar {
	return Bar{
		Begin:       b.Begin,
		Length:      b.NominalLength(),
		BeatNum:     b.OrigBeatNum,
		Num:         b.OrigNum,
		Denom:       b.OrigDenom,
		OrigNum:     b.OrigNum,
		OrigBeatNum: b.OrigBeatNum,
		OrigDenom:   b.OrigDenom,
	}
}

// findPickup turns a short leading span into an anacrusis.
// first is the earliest onset of the piece.
func findPickup(b Bars, first int64) Bars {
	if len(b) == 0 {
		return b
	}
	b = slices.Clone(b)
	lead := b[0]

	// A first bar shorter than the meter that follows it.
	if len(b) >= 2 {
		next := b[1].full()
		beat := next.BeatLength()
		if lead.Length < next.Length && lead.Length%beat == 0 {
			p := next
			p.Begin = lead.Begin
			p.SetToLength(lead.Length)
			p.Pickup = true
			b[0] = p
			return b
		}
	}

	// A full first bar that starts with whole beats of rest.
	if lead.Length != lead.NominalLength() {
		return b
	}
	beat := lead.BeatLength()
	off := first - lead.Begin
	if off <= 0 || off >= lead.Length {
		return b
	}
	k := (off + beat/2) / beat
	if d := off - k*beat; d > beat/8 || d < -beat/8 {
		// Not on a beat; no reading is better than another.
		return b
	}
	span := k * beat
	if k < 1 || span >= lead.Length {
		return b
	}
	p := lead
	p.SetToLength(lead.Length - span)
	p.Begin = lead.Begin + span
	p.Pickup = true
	b[0] = p
	return b
}

// Layout computes the bars shared by every track of in, with a diagnostic per incomplete bar.
func Layout(in *Input, cfg Config) (Bars, []Diagnostic) {
	first, last, ok := in.Extent()
	// Leave room for snapping and for promoted durations at the end.
	end := last + 2*Division
	if !ok {
		end = 0
	}
	b := findBars(in, end)
	if cfg.PickupMeasure && ok {
		b = findPickup(b, first)
	}
	var diags []Diagnostic
	for i, bar := range b {
		if !bar.Incomplete() || i == len(b)-1 {
			continue
		}
		diags = append(diags, Diagnostic{
			Track:   -1,
			Kind:    IncompleteMeasure,
			Measure: i + 1,
			Tick:    bar.Begin,
			Event:   -1,
			Message: fmt.Sprintf("measure %d lasts %d/%d of a %d/%d bar", i+1, bar.Num, bar.Denom, bar.OrigNum, bar.OrigDenom),
		})
	}
	return b, diags
}
