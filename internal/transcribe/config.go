package transcribe

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Grid is a quantization resolution, expressed as notes per whole note.
type Grid int

const (
	GridQuarter Grid = 4
	GridEighth  Grid = 8
	Grid16th    Grid = 16
	Grid32nd    Grid = 32
	Grid64th    Grid = 64
	Grid128th   Grid = 128
)

var gridNames = []struct {
	grid Grid
	name string
}{
	{GridQuarter, "quarter"},
	{GridEighth, "eighth"},
	{Grid16th, "16th"},
	{Grid32nd, "32nd"},
	{Grid64th, "64th"},
	{Grid128th, "128th"},
}

// Ticks returns the grid unit in internal ticks.
func (g Grid) Ticks() int64 {
	return whole / int64(g)
}

func (g Grid) valid() bool {
	for _, n := range gridNames {
		if n.grid == g {
			return true
		}
	}
	return false
}

func (g Grid) String() string {
	for _, n := range gridNames {
		if n.grid == g {
			return n.name
		}
	}
	return fmt.Sprintf("Grid(%d)", int(g))
}

func (g Grid) MarshalText() ([]byte, error) {
	if !g.valid() {
		return nil, fmt.Errorf("invalid quantization grid %d", int(g))
	}
	return []byte(g.String()), nil
}

func (g *Grid) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for _, n := range gridNames {
		if n.name == s {
			*g = n.grid
			return nil
		}
	}
	return fmt.Errorf("unknown quantization grid %q", text)
}

// Swing selects how off-beats are read before quantization.
type Swing int

const (
	SwingNone Swing = iota
	// Swing2to1 reads an off-beat at 2/3 of the beat as straight.
	Swing2to1
	// Shuffle3to1 reads an off-beat at 3/4 of the beat as straight.
	Shuffle3to1
	// SwingDetect picks one of the above per track.
	SwingDetect
)

var swingNames = []string{"none", "2:1", "3:1", "detect"}

func (s Swing) String() string {
	if s < 0 || int(s) >= len(swingNames) {
		return fmt.Sprintf("Swing(%d)", int(s))
	}
	return swingNames[s]
}

func (s Swing) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(swingNames) {
		return nil, fmt.Errorf("invalid swing mode %d", int(s))
	}
	return []byte(swingNames[s]), nil
}

func (s *Swing) UnmarshalText(text []byte) error {
	i := slices.Index(swingNames, strings.ToLower(string(text)))
	if i < 0 {
		return fmt.Errorf("unknown swing mode %q", text)
	}
	*s = Swing(i)
	return nil
}

// offbeat returns where a swung off-beat falls, as a fraction of the beat.
func (s Swing) offbeat() (num, denom int64, ok bool) {
	switch s {
	case Swing2to1:
		return 2, 3, true
	case Shuffle3to1:
		return 3, 4, true
	}
	return 0, 0, false
}

// TupletOptions lists the tuplet sizes that can be searched.
var TupletOptions = []int{2, 3, 4, 5, 7, 9}

const (
	MinVoices = 1
	MaxVoices = 4
)

// Config holds the import operations of one track.
type Config struct {
	Quantize          Grid  `yaml:"quantize" json:"quantize"`
	MaxVoices         int   `yaml:"max_voices" json:"max_voices"`
	Tuplets           []int `yaml:"tuplets" json:"tuplets"`
	SplitStaff        bool  `yaml:"split_staff" json:"split_staff"`
	SplitPitch        uint8 `yaml:"split_pitch" json:"split_pitch"`
	ClefChanges       bool  `yaml:"clef_changes" json:"clef_changes"`
	HumanPerformance  bool  `yaml:"human_performance" json:"human_performance"`
	Swing             Swing `yaml:"swing" json:"swing"`
	SimplifyDurations bool  `yaml:"simplify_durations" json:"simplify_durations"`
	PickupMeasure     bool  `yaml:"pickup_measure" json:"pickup_measure"`
	DottedNotes       bool  `yaml:"dotted_notes" json:"dotted_notes"`
	Lyrics            bool  `yaml:"lyrics" json:"lyrics"`
}

// DefaultConfig returns the options an import starts from.
func DefaultConfig() Config {
	return Config{
		Quantize:          Grid16th,
		MaxVoices:         MaxVoices,
		Tuplets:           slices.Clone(TupletOptions),
		SplitPitch:        60,
		ClefChanges:       true,
		SimplifyDurations: true,
		PickupMeasure:     true,
		DottedNotes:       true,
		Lyrics:            true,
	}
}

// Validate reports every invalid option at once.
func (c Config) Validate() error {
	var errs []error
	if !c.Quantize.valid() {
		errs = append(errs, fmt.Errorf("invalid quantization grid %d", int(c.Quantize)))
	}
	if c.MaxVoices < MinVoices || c.MaxVoices > MaxVoices {
		errs = append(errs, fmt.Errorf("max voices %d not in %d..%d", c.MaxVoices, MinVoices, MaxVoices))
	}
	seen := map[int]bool{}
	for _, n := range c.Tuplets {
		if !slices.Contains(TupletOptions, n) {
			errs = append(errs, fmt.Errorf("unsupported tuplet %d, want one of %v", n, TupletOptions))
		}
		if seen[n] {
			errs = append(errs, fmt.Errorf("duplicate tuplet %d", n))
		}
		seen[n] = true
	}
	if c.SplitPitch > 127 {
		errs = append(errs, fmt.Errorf("split pitch %d out of MIDI range", c.SplitPitch))
	}
	if c.Swing < SwingNone || c.Swing > SwingDetect {
		errs = append(errs, fmt.Errorf("invalid swing mode %d", int(c.Swing)))
	}
	return errors.Join(errs...)
}

// Equal reports whether both configs give the same output.
func (c Config) Equal(o Config) bool {
	return Diff(c, o) == Overlay{}
}

func (c Config) tuplets() []int {
	t := slices.Clone(c.Tuplets)
	slices.Sort(t)
	return slices.Compact(t)
}

// Overlay is a partial Config; nil fields keep the underlying value.
type Overlay struct {
	Quantize          *Grid  `yaml:"quantize,omitempty" json:"quantize,omitempty"`
	MaxVoices         *int   `yaml:"max_voices,omitempty" json:"max_voices,omitempty"`
	Tuplets           *[]int `yaml:"tuplets,omitempty" json:"tuplets,omitempty"`
	SplitStaff        *bool  `yaml:"split_staff,omitempty" json:"split_staff,omitempty"`
	SplitPitch        *uint8 `yaml:"split_pitch,omitempty" json:"split_pitch,omitempty"`
	ClefChanges       *bool  `yaml:"clef_changes,omitempty" json:"clef_changes,omitempty"`
	HumanPerformance  *bool  `yaml:"human_performance,omitempty" json:"human_performance,omitempty"`
	Swing             *Swing `yaml:"swing,omitempty" json:"swing,omitempty"`
	SimplifyDurations *bool  `yaml:"simplify_durations,omitempty" json:"simplify_durations,omitempty"`
	PickupMeasure     *bool  `yaml:"pickup_measure,omitempty" json:"pickup_measure,omitempty"`
	DottedNotes       *bool  `yaml:"dotted_notes,omitempty" json:"dotted_notes,omitempty"`
	Lyrics            *bool  `yaml:"lyrics,omitempty" json:"lyrics,omitempty"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Apply returns c with every field set in o replaced.
func (o Overlay) Apply(c Config) Config {
	set(&c.Quantize, o.Quantize)
	set(&c.MaxVoices, o.MaxVoices)
	if o.Tuplets != nil {
		c.Tuplets = slices.Clone(*o.Tuplets)
	} else {
		c.Tuplets = slices.Clone(c.Tuplets)
	}
	set(&c.SplitStaff, o.SplitStaff)
	set(&c.SplitPitch, o.SplitPitch)
	set(&c.ClefChanges, o.ClefChanges)
	set(&c.HumanPerformance, o.HumanPerformance)
	set(&c.Swing, o.Swing)
	set(&c.SimplifyDurations, o.SimplifyDurations)
	set(&c.PickupMeasure, o.PickupMeasure)
	set(&c.DottedNotes, o.DottedNotes)
	set(&c.Lyrics, o.Lyrics)
	return c
}

func pick[T any](a, b *T) *T {
	if b != nil {
		return b
	}
	return a
}

// Merge returns an overlay with the fields of b taking precedence over o.
func (o Overlay) Merge(b Overlay) Overlay {
	return Overlay{
		Quantize:          pick(o.Quantize, b.Quantize),
		MaxVoices:         pick(o.MaxVoices, b.MaxVoices),
		Tuplets:           pick(o.Tuplets, b.Tuplets),
		SplitStaff:        pick(o.SplitStaff, b.SplitStaff),
		SplitPitch:        pick(o.SplitPitch, b.SplitPitch),
		ClefChanges:       pick(o.ClefChanges, b.ClefChanges),
		HumanPerformance:  pick(o.HumanPerformance, b.HumanPerformance),
		Swing:             pick(o.Swing, b.Swing),
		SimplifyDurations: pick(o.SimplifyDurations, b.SimplifyDurations),
		PickupMeasure:     pick(o.PickupMeasure, b.PickupMeasure),
		DottedNotes:       pick(o.DottedNotes, b.DottedNotes),
		Lyrics:            pick(o.Lyrics, b.Lyrics),
	}
}

// Diff returns the overlay that turns base into c.
func Diff(base, c Config) Overlay {
	var o Overlay
	if c.Quantize != base.Quantize {
		o.Quantize = &c.Quantize
	}
	if c.MaxVoices != base.MaxVoices {
		o.MaxVoices = &c.MaxVoices
	}
	if !slices.Equal(c.tuplets(), base.tuplets()) {
		t := c.tuplets()
		o.Tuplets = &t
	}
	if c.SplitStaff != base.SplitStaff {
		o.SplitStaff = &c.SplitStaff
	}
	if c.SplitPitch != base.SplitPitch {
		o.SplitPitch = &c.SplitPitch
	}
	if c.ClefChanges != base.ClefChanges {
		o.ClefChanges = &c.ClefChanges
	}
	if c.HumanPerformance != base.HumanPerformance {
		o.HumanPerformance = &c.HumanPerformance
	}
	if c.Swing != base.Swing {
		o.Swing = &c.Swing
	}
	if c.SimplifyDurations != base.SimplifyDurations {
		o.SimplifyDurations = &c.SimplifyDurations
	}
	if c.PickupMeasure != base.PickupMeasure {
		o.PickupMeasure = &c.PickupMeasure
	}
	if c.DottedNotes != base.DottedNotes {
		o.DottedNotes = &c.DottedNotes
	}
	if c.Lyrics != base.Lyrics {
		o.Lyrics = &c.Lyrics
	}
	return o
}
