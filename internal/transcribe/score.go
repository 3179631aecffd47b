package transcribe

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type ElementKind int

const (
	NoteElement ElementKind = iota
	RestElement
	MeasureRestElement
)

var elementNames = []string{"note", "rest", "measure-rest"}

func (k ElementKind) String() string {
	if k < 0 || int(k) >= len(elementNames) {
		return fmt.Sprintf("ElementKind(%d)", int(k))
	}
	return elementNames[k]
}

func (k ElementKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(elementNames) {
		return nil, fmt.Errorf("invalid element kind %d", int(k))
	}
	return []byte(elementNames[k]), nil
}

func (k *ElementKind) UnmarshalText(text []byte) error {
	i := slices.Index(elementNames, strings.ToLower(string(text)))
	if i < 0 {
		return fmt.Errorf("unknown element kind %q", text)
	}
	*k = ElementKind(i)
	return nil
}

// Element is one written note or rest. Start and Length are real time;
// inside a tuplet the glyph is the written value.
type Element struct {
	Kind     ElementKind `yaml:"kind" json:"kind"`
	Start    int64       `yaml:"start" json:"start"`
	Length   int64       `yaml:"length" json:"length"`
	Glyph    Glyph       `yaml:"glyph" json:"glyph"`
	Pitch    uint8       `yaml:"pitch,omitempty" json:"pitch,omitempty"`
	Velocity uint8       `yaml:"velocity,omitempty" json:"velocity,omitempty"`
	TieNext  bool        `yaml:"tie_next,omitempty" json:"tie_next,omitempty"`
	Event    int         `yaml:"event" json:"event"`
	Tuplet   int         `yaml:"tuplet" json:"tuplet"`
	Lyric    string      `yaml:"lyric,omitempty" json:"lyric,omitempty"`
}

func (e Element) End() int64 {
	return e.Start + e.Length
}

// TupletGroup is the bracket of a tuplet inside one voice of one measure.
type TupletGroup struct {
	ID       int   `yaml:"id" json:"id"`
	Ratio    Ratio `yaml:"ratio" json:"ratio"`
	Base     Glyph `yaml:"base" json:"base"`
	Start    int64 `yaml:"start" json:"start"`
	Length   int64 `yaml:"length" json:"length"`
	Elements []int `yaml:"elements" json:"elements"`
}

type VoiceMeasure struct {
	Voice    int           `yaml:"voice" json:"voice"`
	Elements []Element     `yaml:"elements" json:"elements"`
	Tuplets  []TupletGroup `yaml:"tuplets,omitempty" json:"tuplets,omitempty"`
}

type TimeSignature struct {
	Num   int `yaml:"num" json:"num"`
	Denom int `yaml:"denom" json:"denom"`
}

type Measure struct {
	Number     int            `yaml:"number" json:"number"`
	Start      int64          `yaml:"start" json:"start"`
	Length     int64          `yaml:"length" json:"length"`
	TimeSig    TimeSignature  `yaml:"time_sig" json:"time_sig"`
	Pickup     bool           `yaml:"pickup,omitempty" json:"pickup,omitempty"`
	Incomplete bool           `yaml:"incomplete,omitempty" json:"incomplete,omitempty"`
	Clef       *Clef          `yaml:"clef,omitempty" json:"clef,omitempty"`
	Voices     []VoiceMeasure `yaml:"voices" json:"voices"`
}

func (m Measure) End() int64 {
	return m.Start + m.Length
}

type Staff struct {
	Index    int       `yaml:"index" json:"index"`
	Clef     Clef      `yaml:"clef" json:"clef"`
	Measures []Measure `yaml:"measures" json:"measures"`
}

// Part is the notation of one track.
type Part struct {
	TrackID     int          `yaml:"track" json:"track"`
	Name        string       `yaml:"name,omitempty" json:"name,omitempty"`
	Instrument  Instrument   `yaml:"instrument" json:"instrument"`
	Swing       Swing        `yaml:"swing" json:"swing"`
	Staves      []Staff      `yaml:"staves" json:"staves"`
	Tuplets     []Tuplet     `yaml:"tuplets,omitempty" json:"tuplets,omitempty"`
	Diagnostics []Diagnostic `yaml:"diagnostics,omitempty" json:"diagnostics,omitempty"`
}

// Score is the emitted tree of a whole import.
type Score struct {
	Division    int64        `yaml:"division" json:"division"`
	Bars        Bars         `yaml:"bars" json:"bars"`
	Parts       []Part       `yaml:"parts" json:"parts"`
	Diagnostics []Diagnostic `yaml:"diagnostics,omitempty" json:"diagnostics,omitempty"`
}

// AllDiagnostics returns the layout diagnostics followed by those of every part.
func (s *Score) AllDiagnostics() []Diagnostic {
	out := slices.Clone(s.Diagnostics)
	for _, p := range s.Parts {
		out = append(out, p.Diagnostics...)
	}
	return out
}

// Part returns the part of a track.
func (s *Score) Part(track int) (*Part, bool) {
	for i := range s.Parts {
		if s.Parts[i].TrackID == track {
			return &s.Parts[i], true
		}
	}
	return nil, false
}

// Check verifies the structural laws of the tree: voices tile their
// measures without overlap and tuplet brackets add up.
func (s *Score) Check() error {
	var errs []error
	for _, p := range s.Parts {
		for _, st := range p.Staves {
			for _, m := range st.Measures {
				for _, v := range m.Voices {
					if err := checkVoice(m, v); err != nil {
						errs = append(errs, fmt.Errorf("track %d staff %d measure %d voice %d: %w", p.TrackID, st.Index, m.Number, v.Voice, err))
					}
				}
			}
		}
	}
	return errors.Join(errs...)
}

func checkVoice(m Measure, v VoiceMeasure) error {
	at := m.Start
	for i, e := range v.Elements {
		if e.Start != at {
			return fmt.Errorf("element %d starts at %d, want %d", i, e.Start, at)
		}
		if e.Length <= 0 {
			return fmt.Errorf("element %d has length %d", i, e.Length)
		}
		at = e.End()
	}
	if at != m.End() {
		return fmt.Errorf("voice ends at %d, want %d", at, m.End())
	}
	for _, t := range v.Tuplets {
		var real, written int64
		for _, i := range t.Elements {
			real += v.Elements[i].Length
			written += v.Elements[i].Glyph.Ticks()
		}
		if real != t.Length {
			return fmt.Errorf("tuplet %d holds %d ticks, want %d", t.ID, real, t.Length)
		}
		if want := t.Base.Ticks() * int64(t.Ratio.Actual); written != want {
			return fmt.Errorf("%v tuplet %d writes %d ticks, want %d", t.Ratio, t.ID, written, want)
		}
	}
	return nil
}
