package transcribe

import (
	"fmt"
	"slices"
)

// Division is the internal resolution in ticks per quarter note.
// 40320 is 8!, so every grid and every tuplet unit we search is integral.
const Division int64 = 40320

const whole = 4 * Division

// RawNoteEvent is one performed note in source ticks.
type RawNoteEvent struct {
	ID       int   `yaml:"id" json:"id"`
	TrackID  int   `yaml:"track" json:"track"`
	Channel  uint8 `yaml:"channel" json:"channel"`
	Pitch    uint8 `yaml:"pitch" json:"pitch"`
	Onset    int64 `yaml:"onset" json:"onset"`
	Duration int64 `yaml:"duration" json:"duration"`
	Velocity uint8 `yaml:"velocity" json:"velocity"`
}

func (e RawNoteEvent) End() int64 {
	return e.Onset + e.Duration
}

type Lyric struct {
	Tick int64  `yaml:"tick" json:"tick"`
	Text string `yaml:"text" json:"text"`
}

// Instrument is the sound hint of a track.
type Instrument struct {
	Name       string `yaml:"name,omitempty" json:"name,omitempty"`
	Program    uint8  `yaml:"program" json:"program"`
	Percussion bool   `yaml:"percussion,omitempty" json:"percussion,omitempty"`
}

// Track exclusively owns its events.
type Track struct {
	ID         int            `yaml:"id" json:"id"`
	Name       string         `yaml:"name,omitempty" json:"name,omitempty"`
	Instrument Instrument     `yaml:"instrument" json:"instrument"`
	Events     []RawNoteEvent `yaml:"events" json:"events"`
	Lyrics     []Lyric        `yaml:"lyrics,omitempty" json:"lyrics,omitempty"`
}

// Clone returns a deep copy of the track.
func (t Track) Clone() Track {
	t.Events = slices.Clone(t.Events)
	t.Lyrics = slices.Clone(t.Lyrics)
	return t
}

// TimeSig is a time signature change in source ticks.
// BeatNum is the beat length in denominator units; zero derives it from the meter.
type TimeSig struct {
	Tick    int64 `yaml:"tick" json:"tick"`
	Num     int   `yaml:"num" json:"num"`
	Denom   int   `yaml:"denom" json:"denom"`
	BeatNum int   `yaml:"beat_num,omitempty" json:"beat_num,omitempty"`
}

type Tempo struct {
	Tick int64   `yaml:"tick" json:"tick"`
	BPM  float64 `yaml:"bpm" json:"bpm"`
}

// Input is the decoded event stream of one file.
type Input struct {
	TicksPerQuarter int64     `yaml:"ticks_per_quarter" json:"ticks_per_quarter"`
	TimeSigs        []TimeSig `yaml:"time_sigs,omitempty" json:"time_sigs,omitempty"`
	Tempos          []Tempo   `yaml:"tempos,omitempty" json:"tempos,omitempty"`
	Tracks          []Track   `yaml:"tracks" json:"tracks"`
}

// Clone returns a deep copy of the input.
func (in *Input) Clone() *Input {
	out := *in
	out.TimeSigs = slices.Clone(in.TimeSigs)
	out.Tempos = slices.Clone(in.Tempos)
	out.Tracks = make([]Track, len(in.Tracks))
	for i, t := range in.Tracks {
		out.Tracks[i] = t.Clone()
	}
	return &out
}

// Track returns the track with the given ID.
func (in *Input) Track(id int) (*Track, bool) {
	for i := range in.Tracks {
		if in.Tracks[i].ID == id {
			return &in.Tracks[i], true
		}
	}
	return nil, false
}

// Validate checks the input for values no stage can make sense of.
func (in *Input) Validate() error {
	if in.TicksPerQuarter <= 0 {
		return fmt.Errorf("invalid resolution: %d ticks per quarter", in.TicksPerQuarter)
	}
	for _, sig := range in.TimeSigs {
		if sig.Num <= 0 || sig.Denom <= 0 || sig.Denom&(sig.Denom-1) != 0 || sig.Denom > 128 {
			return fmt.Errorf("invalid time signature %d/%d at tick %d", sig.Num, sig.Denom, sig.Tick)
		}
		if sig.BeatNum < 0 || (sig.BeatNum > 0 && sig.Num%sig.BeatNum != 0) {
			return fmt.Errorf("invalid beat of %d/%d in a %d/%d time signature at tick %d", sig.BeatNum, sig.Denom, sig.Num, sig.Denom, sig.Tick)
		}
	}
	seen := map[int]bool{}
	for _, t := range in.Tracks {
		if seen[t.ID] {
			return fmt.Errorf("duplicate track id %d", t.ID)
		}
		seen[t.ID] = true
		for _, ev := range t.Events {
			if ev.Onset < 0 || ev.Duration < 0 {
				return fmt.Errorf("track %d: event %d has negative time (onset %d, duration %d)", t.ID, ev.ID, ev.Onset, ev.Duration)
			}
			if ev.Pitch > 127 || ev.Velocity > 127 || ev.Channel > 15 {
				return fmt.Errorf("track %d: event %d out of MIDI range", t.ID, ev.ID)
			}
		}
	}
	return nil
}

// ToInternal converts a source tick to internal ticks, rounding to nearest.
func (in *Input) ToInternal(tick int64) int64 {
	return (tick*Division + in.TicksPerQuarter/2) / in.TicksPerQuarter
}

// Extent returns the first onset and the last end over all tracks, in internal ticks.
// ok is false when there are no events.
func (in *Input) Extent() (first, last int64, ok bool) {
	for _, t := range in.Tracks {
		for _, ev := range t.Events {
			on, end := in.ToInternal(ev.Onset), in.ToInternal(ev.End())
			if !ok || on < first {
				first = on
			}
			if !ok || end > last {
				last = end
			}
			ok = true
		}
	}
	return first, last, ok
}

// QuantizedEvent is a note after quantization, in internal ticks.
type QuantizedEvent struct {
	ID       int   `yaml:"id" json:"id"`
	Pitch    uint8 `yaml:"pitch" json:"pitch"`
	Velocity uint8 `yaml:"velocity" json:"velocity"`
	Onset    int64 `yaml:"onset" json:"onset"`
	Duration int64 `yaml:"duration" json:"duration"`
	Staff    int   `yaml:"staff" json:"staff"`
	Voice    int   `yaml:"voice" json:"voice"`
	Tuplet   int   `yaml:"tuplet" json:"tuplet"`
	// Dropped events did not fit into the voices and are not notated.
	Dropped bool `yaml:"dropped,omitempty" json:"dropped,omitempty"`

	window int
	heard  perceived
}

func (e QuantizedEvent) End() int64 {
	return e.Onset + e.Duration
}

// Ratio is n notes in the time of m.
type Ratio struct {
	Actual int `yaml:"actual" json:"actual"`
	Normal int `yaml:"normal" json:"normal"`
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d:%d", r.Actual, r.Normal)
}

// Tuplet refers back to its member events by ID.
type Tuplet struct {
	ID      int   `yaml:"id" json:"id"`
	Ratio   Ratio `yaml:"ratio" json:"ratio"`
	Base    int64 `yaml:"base" json:"base"`
	Start   int64 `yaml:"start" json:"start"`
	Staff   int   `yaml:"staff" json:"staff"`
	Voice   int   `yaml:"voice" json:"voice"`
	Members []int `yaml:"members" json:"members"`
}

// Length is the real duration of the bracket.
func (t Tuplet) Length() int64 {
	return t.Base * int64(t.Ratio.Normal)
}

// NominalLength is the written duration of the bracket.
func (t Tuplet) NominalLength() int64 {
	return t.Base * int64(t.Ratio.Actual)
}

func (t Tuplet) End() int64 {
	return t.Start + t.Length()
}
