package transcribe

import (
	"fmt"
	"slices"
	"sort"
)

// tupletRatio returns the ratio n notes are read in, in simple or dotted beats.
// 6 and 8 are never searched; they read as nested duplets and triplets.
func tupletRatio(n int, compound bool) (Ratio, bool) {
	var m int
	if compound {
		switch n {
		case 2, 4:
			m = 3
		case 5, 7:
			m = 6
		}
	} else {
		switch n {
		case 3:
			m = 2
		case 5, 7:
			m = 4
		case 9:
			m = 8
		}
	}
	if m == 0 {
		return Ratio{}, false
	}
	return Ratio{Actual: n, Normal: m}, true
}

// window is an accepted tuplet reading of a span of one staff.
type window struct {
	staff  int
	start  int64
	length int64
	ratio  Ratio
}

func (w window) end() int64 {
	return w.start + w.length
}

// unit is the real length of one tuplet note.
func (w window) unit() int64 {
	return w.length / int64(w.ratio.Actual)
}

// base is the written length of one tuplet note.
func (w window) base() int64 {
	return w.length / int64(w.ratio.Normal)
}

func (w window) lattice(x int64) int64 {
	u := w.unit()
	k := floorDiv(x-w.start, u)
	if r := x - w.start - k*u; 2*r > u {
		k++
	}
	return k
}

// snapOnset snaps into one of the n lattice points of the window.
func (w window) snapOnset(x int64) int64 {
	k := min(max(w.lattice(x), 0), int64(w.ratio.Actual-1))
	return w.start + k*w.unit()
}

// snapEnd snaps to a lattice point, the window end included.
func (w window) snapEnd(x int64) int64 {
	k := min(max(w.lattice(x), 0), int64(w.ratio.Actual))
	return w.start + k*w.unit()
}

// findWindow returns the index of the window of staff holding tick, or -1.
func findWindow(windows []window, staff int, tick int64) int {
	for i, w := range windows {
		if w.staff == staff && w.start <= tick && tick < w.end() {
			return i
		}
	}
	return -1
}

type tupletDetector struct {
	bars    Bars
	grid    grid
	tuplets []int
}

func newTupletDetector(bars Bars, g grid, tuplets []int) *tupletDetector {
	return &tupletDetector{bars: bars, grid: g, tuplets: tuplets}
}

// slot is one beat of the layout.
type slot struct {
	bar      int
	start    int64
	length   int64
	compound bool
	onsets   []int64

	explained bool
}

// regionEnd is where the onsets of the slot stop; a partial last beat ends at the barline.
func (s slot) regionEnd(b Bar) int64 {
	return min(s.start+s.length, b.End())
}

func (d *tupletDetector) slots() []slot {
	var out []slot
	for i, b := range d.bars {
		beat := b.BeatLength()
		if beat <= 0 {
			continue
		}
		for s := b.Begin; s < b.End(); s += beat {
			out = append(out, slot{bar: i, start: s, length: beat, compound: b.Compound()})
		}
	}
	return out
}

// clusters merges onsets that are heard as one attack.
func (d *tupletDetector) clusters(onsets []int64) []int64 {
	tol := d.grid.unit / 4
	var out []int64
	for i := 0; i < len(onsets); {
		j := i
		var sum int64
		for j < len(onsets) && onsets[j]-onsets[i] <= tol {
			sum += onsets[j]
			j++
		}
		out = append(out, sum/int64(j-i))
		i = j
	}
	return out
}

// plainFits reports whether clusters land near distinct plain grid points.
func (d *tupletDetector) plainFits(clusters []int64) bool {
	prev := int64(-1)
	for i, c := range clusters {
		p := d.grid.snap(c)
		if dist := c - p; dist > d.grid.unit/4 || dist < -d.grid.unit/4 {
			return false
		}
		if i > 0 && p <= prev {
			return false
		}
		prev = p
	}
	return true
}

// latticeFits reports whether clusters land near distinct points of an n-point lattice.
func latticeFits(clusters []int64, w window) bool {
	prev := int64(-1)
	u := w.unit()
	for i, c := range clusters {
		k := min(max(w.lattice(c), 0), int64(w.ratio.Actual-1))
		if dist := c - (w.start + k*u); dist > u/4 || dist < -u/4 {
			return false
		}
		if i > 0 && k <= prev {
			return false
		}
		prev = k
	}
	return true
}

// explain decides how a span reads: plain, as exactly one tuplet ratio, or neither.
func (d *tupletDetector) explain(start, length int64, compound bool, clusters []int64) (plain bool, r Ratio, ok bool) {
	if d.plainFits(clusters) {
		return true, Ratio{}, false
	}
	if len(clusters) < 2 {
		return false, Ratio{}, false
	}
	var fits []Ratio
	for _, n := range d.tuplets {
		r, found := tupletRatio(n, compound)
		if !found || length%int64(r.Actual) != 0 || length%int64(r.Normal) != 0 {
			continue
		}
		// Notes finer than the grid are not searched.
		base := length / int64(r.Normal)
		if base < d.grid.unit || base < whole/128 {
			continue
		}
		if _, written := glyphFor(base); !written {
			continue
		}
		if latticeFits(clusters, window{start: start, length: length, ratio: r}) {
			fits = append(fits, r)
		}
	}
	// A multiple of a fitting ratio says nothing new.
	var kept []Ratio
	for _, r := range fits {
		redundant := false
		for _, q := range fits {
			if q.Actual < r.Actual && r.Actual%q.Actual == 0 {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, r)
		}
	}
	if len(kept) != 1 {
		return false, Ratio{}, false
	}
	return false, kept[0], true
}

// detect finds the tuplet windows of one staff from its sorted perceived onsets.
func (d *tupletDetector) detect(staff int, onsets []int64) ([]window, []Diagnostic) {
	if len(d.tuplets) == 0 || len(onsets) == 0 {
		return nil, nil
	}
	slots := d.slots()
	for _, x := range onsets {
		p := d.grid.snap(x)
		i := sort.Search(len(slots), func(i int) bool {
			return slots[i].regionEnd(d.bars[slots[i].bar]) > p
		})
		if i < len(slots) && slots[i].start <= p {
			slots[i].onsets = append(slots[i].onsets, x)
		}
	}

	var windows []window
	var diags []Diagnostic
	reject := func(w window, bar int) {
		diags = append(diags, Diagnostic{
			Kind:    TupletAcrossBarline,
			Measure: bar + 1,
			Tick:    w.start,
			Event:   -1,
			Message: fmt.Sprintf("%v tuplet would cross the barline after measure %d; kept plain", w.ratio, bar+1),
		})
	}

	for i := range slots {
		s := &slots[i]
		if len(s.onsets) == 0 {
			s.explained = true
			continue
		}
		plain, r, ok := d.explain(s.start, s.length, s.compound, d.clusters(s.onsets))
		switch {
		case plain:
			s.explained = true
		case ok:
			s.explained = true
			w := window{staff: staff, start: s.start, length: s.length, ratio: r}
			if w.end() > d.bars[s.bar].End() {
				reject(w, s.bar)
				continue
			}
			windows = append(windows, w)
		}
	}

	// Try two beats together where neither beat reads on its own.
	for i := 0; i+1 < len(slots); i++ {
		a, b := &slots[i], &slots[i+1]
		if a.explained || b.explained || a.compound || b.compound || a.length != b.length || a.start+a.length != b.start {
			continue
		}
		onsets := append(append([]int64(nil), a.onsets...), b.onsets...)
		_, r, ok := d.explain(a.start, 2*a.length, false, d.clusters(onsets))
		if !ok {
			continue
		}
		a.explained, b.explained = true, true
		w := window{staff: staff, start: a.start, length: 2 * a.length, ratio: r}
		if a.bar != b.bar || w.end() > d.bars[a.bar].End() {
			reject(w, a.bar)
		} else {
			windows = append(windows, w)
		}
		i++
	}
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].start < windows[j].start
	})
	return windows, diags
}

// resolveTuplets runs the VOICE_ASSIGNED to TUPLET_RESOLVED transition.
// Every voice reads its brackets from its own onsets and is snapped again.
func (p *Pipeline) resolveTuplets() {
	p.tuplets = nil
	g := grid{bars: p.bars, unit: p.config.Quantize.Ticks()}
	det := newTupletDetector(p.bars, g, p.config.tuplets())
	seen := map[Diagnostic]bool{}
	for staff := 0; staff < p.staves; staff++ {
		for v := 0; v < p.config.MaxVoices; v++ {
			var idx []int
			for i, ev := range p.events {
				if !ev.Dropped && ev.Staff == staff && ev.Voice == v {
					idx = append(idx, i)
				}
			}
			if len(idx) == 0 {
				continue
			}
			windows, diags := p.voiceWindows(det, staff, idx)
			for _, d := range diags {
				d.Track = p.track.ID
				if !seen[d] {
					seen[d] = true
					p.diags = append(p.diags, d)
				}
			}
			windows = p.resnapVoice(g, staff, idx, windows)
			p.bracketVoice(staff, v, idx, windows)
		}
	}
	slices.SortStableFunc(p.events, compareEvents)
}

// voiceWindows detects the windows of one voice. A beat the voice cannot read
// on its own takes the staff reading when its onsets sit on that lattice.
func (p *Pipeline) voiceWindows(det *tupletDetector, staff int, idx []int) ([]window, []Diagnostic) {
	onsets := make([]int64, len(idx))
	for k, i := range idx {
		onsets[k] = p.events[i].heard.onset
	}
	slices.Sort(onsets)
	windows, diags := det.detect(staff, onsets)
	for _, w := range p.windows {
		if w.staff != staff || overlapsAny(windows, w) {
			continue
		}
		var inside []int64
		for _, x := range onsets {
			if on := det.grid.snap(x); w.start <= on && on < w.end() {
				inside = append(inside, x)
			}
		}
		if len(inside) == 0 {
			continue
		}
		if c := det.clusters(inside); !det.plainFits(c) && latticeFits(c, w) {
			windows = append(windows, w)
		}
	}
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].start < windows[j].start
	})
	return windows, diags
}

func overlapsAny(windows []window, w window) bool {
	for _, o := range windows {
		if o.staff == w.staff && o.start < w.end() && w.start < o.end() {
			return true
		}
	}
	return false
}

// resnapVoice snaps the events of one voice into its own windows and returns
// the windows the events now refer to. When the new onsets would collide the
// voice keeps the staff snap and the staff windows.
func (p *Pipeline) resnapVoice(g grid, staff int, idx []int, windows []window) []window {
	type snapped struct {
		on, end int64
		wi      int
	}
	out := make([]snapped, len(idx))
	for k, i := range idx {
		out[k].on, out[k].end, out[k].wi = p.snapNote(g, windows, staff, p.events[i].heard)
		if k > 0 && out[k].on <= out[k-1].on {
			p.logger.Debug("voice onsets collide; keeping staff tuplets", "staff", staff, "onset", out[k].on)
			return p.windows
		}
	}
	for k, i := range idx {
		end := out[k].end
		if k+1 < len(out) {
			end = min(end, out[k+1].on)
		}
		ev := &p.events[i]
		ev.Onset, ev.Duration, ev.window = out[k].on, end-out[k].on, out[k].wi
	}
	return windows
}

// bracketVoice makes one tuplet per window holding notes of the voice.
func (p *Pipeline) bracketVoice(staff, voice int, idx []int, windows []window) {
	for wi, w := range windows {
		var members []int
		entering := -1
		for _, i := range idx {
			ev := p.events[i]
			if ev.window == wi {
				members = append(members, i)
			} else if ev.Onset < w.start && ev.End() > w.start {
				entering = i
			}
		}
		if len(members) == 0 {
			continue
		}
		if entering >= 0 {
			// A note tied into the bracket must end on its lattice.
			e := &p.events[entering]
			end := min(w.snapEnd(e.End()), p.events[members[0]].Onset)
			e.Duration = end - e.Onset
		}
		t := Tuplet{
			ID:    len(p.tuplets),
			Ratio: w.ratio,
			Base:  w.base(),
			Start: w.start,
			Staff: staff,
			Voice: voice,
		}
		for _, i := range members {
			p.events[i].Tuplet = t.ID
			t.Members = append(t.Members, p.events[i].ID)
		}
		p.tuplets = append(p.tuplets, t)
	}
}
