package transcribe

// Performance summarizes how mechanical the timing of a track is.
type Performance struct {
	Notes int `yaml:"notes" json:"notes"`
	// OnGrid is the share of onsets on a 32nd or 16th-triplet lattice.
	OnGrid float64 `yaml:"on_grid" json:"on_grid"`
	Human  bool    `yaml:"human" json:"human"`
	// LowPitch and HighPitch bound the notes of the track.
	LowPitch  uint8 `yaml:"low_pitch" json:"low_pitch"`
	HighPitch uint8 `yaml:"high_pitch" json:"high_pitch"`
}

const (
	minPerformanceNotes = 8
	mechanicalShare     = 0.9
	// splitRange is the pitch span above which a piano track is split by default.
	splitRange = 24
)

// onLattice reports whether tick lies within one source tick of a multiple of ppq/div.
func onLattice(tick, ppq, div int64) bool {
	// k = round(tick*div/ppq); the lattice point is k*ppq/div.
	k := (tick*div + ppq/2) / ppq
	d := tick*div - k*ppq
	if d < 0 {
		d = -d
	}
	return d <= div
}

// AnalyzePerformance runs the human-performance heuristic on one track.
func AnalyzePerformance(in *Input, tr *Track) Performance {
	p := Performance{Notes: len(tr.Events)}
	if p.Notes == 0 {
		return p
	}
	p.LowPitch, p.HighPitch = 127, 0
	on := 0
	for _, ev := range tr.Events {
		if onLattice(ev.Onset, in.TicksPerQuarter, 8) || onLattice(ev.Onset, in.TicksPerQuarter, 6) {
			on++
		}
		p.LowPitch = min(p.LowPitch, ev.Pitch)
		p.HighPitch = max(p.HighPitch, ev.Pitch)
	}
	p.OnGrid = float64(on) / float64(p.Notes)
	p.Human = p.Notes >= minPerformanceNotes && p.OnGrid < mechanicalShare
	return p
}

// Suggest derives a per-track config from base for every track of in.
func Suggest(in *Input, base Config) map[int]Config {
	out := make(map[int]Config, len(in.Tracks))
	for i := range in.Tracks {
		tr := &in.Tracks[i]
		c := base
		c.Tuplets = append([]int(nil), base.Tuplets...)
		p := AnalyzePerformance(in, tr)
		c.HumanPerformance = p.Human
		if p.Human && c.Swing == SwingNone {
			c.Swing = SwingDetect
		}
		piano := !tr.Instrument.Percussion && tr.Instrument.Program <= 7
		if piano && p.Notes > 0 && int(p.HighPitch)-int(p.LowPitch) > splitRange &&
			p.LowPitch < c.SplitPitch && p.HighPitch >= c.SplitPitch {
			c.SplitStaff = true
		}
		out[tr.ID] = c
	}
	return out
}

const driftWindow = 8

// driftEstimator tracks the local phase of a performance against the grid.
type driftEstimator struct {
	offsets []int64
	limit   int64
}

func newDriftEstimator(grid int64) *driftEstimator {
	return &driftEstimator{limit: grid / 4}
}

// Observe records the offset of a raw onset from the grid point it snapped to.
// residual is what remained after the current phase was applied; beyond a
// quarter grid the onset is ambiguous and ignored.
func (d *driftEstimator) Observe(offset, residual int64) {
	if residual > d.limit || residual < -d.limit {
		return
	}
	d.offsets = append(d.offsets, offset)
	if len(d.offsets) > driftWindow {
		d.offsets = d.offsets[1:]
	}
}

// Phase is the mean recent offset.
func (d *driftEstimator) Phase() int64 {
	if len(d.offsets) == 0 {
		return 0
	}
	var sum int64
	for _, r := range d.offsets {
		sum += r
	}
	return sum / int64(len(d.offsets))
}
