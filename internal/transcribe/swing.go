package transcribe

// Swing is read inside quarter-note beats.
const swingBeat = Division

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// swingBeatStart returns the start of the quarter-note beat containing x,
// or false in compound meters where swing does not apply.
func swingBeatStart(bars Bars, x int64) (int64, bool) {
	b := bars[bars.Index(x)]
	if b.Compound() {
		return 0, false
	}
	return b.Begin + floorDiv(x-b.Begin, swingBeat)*swingBeat, true
}

// unswing maps a swung position back to straight time.
// The off-beat at num/denom of the beat maps to the half beat; both halves stretch linearly.
func unswing(bars Bars, x int64, s Swing) int64 {
	num, denom, ok := s.offbeat()
	if !ok {
		return x
	}
	start, ok := swingBeatStart(bars, x)
	if !ok {
		return x
	}
	o := x - start
	split := swingBeat * num / denom
	half := swingBeat / 2
	if o < split {
		return start + o*half/split
	}
	return start + half + (o-split)*(swingBeat-half)/(swingBeat-split)
}

// detectSwing votes on where the off-beats of a track fall.
func detectSwing(bars Bars, notes []note) Swing {
	const tolerance = 0.06
	candidates := []struct {
		pos   float64
		swing Swing
	}{
		{0.5, SwingNone},
		{2.0 / 3.0, Swing2to1},
		{0.75, Shuffle3to1},
	}
	votes := map[Swing]int{}
	total := 0
	for _, n := range notes {
		start, ok := swingBeatStart(bars, n.onset)
		if !ok {
			continue
		}
		f := float64(n.onset-start) / float64(swingBeat)
		if f < 0.35 || f > 0.9 {
			continue
		}
		for _, c := range candidates {
			if f >= c.pos-tolerance && f <= c.pos+tolerance {
				votes[c.swing]++
				total++
				break
			}
		}
	}
	if total < 4 {
		return SwingNone
	}
	// A strict majority wins; anything less reads straight.
	s2, s3 := votes[Swing2to1], votes[Shuffle3to1]
	switch {
	case s2 > s3 && 2*s2 > total:
		return Swing2to1
	case s3 > s2 && 2*s3 > total:
		return Shuffle3to1
	}
	return SwingNone
}
