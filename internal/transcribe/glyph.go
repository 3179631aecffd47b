package transcribe

import (
	"fmt"
)

// Glyph is a written note value: Log 0 is a whole note, 7 a 128th.
type Glyph struct {
	Log  int `yaml:"log" json:"log"`
	Dots int `yaml:"dots,omitempty" json:"dots,omitempty"`
}

const maxLog = 7

var glyphNames = []string{"whole", "half", "quarter", "eighth", "16th", "32nd", "64th", "128th"}

// Ticks is the written length of the glyph.
func (g Glyph) Ticks() int64 {
	t := whole >> g.Log
	if g.Dots == 1 {
		t += t / 2
	}
	return t
}

func (g Glyph) String() string {
	if g.Log < 0 || g.Log > maxLog {
		return fmt.Sprintf("Glyph(%d,%d)", g.Log, g.Dots)
	}
	if g.Dots == 1 {
		return "dotted " + glyphNames[g.Log]
	}
	return glyphNames[g.Log]
}

// glyphs lists the usable glyphs from longest to shortest.
func glyphs(dotted bool) []Glyph {
	var out []Glyph
	for l := 0; l <= maxLog; l++ {
		if dotted && l < maxLog {
			out = append(out, Glyph{Log: l, Dots: 1})
		}
		out = append(out, Glyph{Log: l})
	}
	return out
}

// glyphFor returns the glyph of exactly ticks, if there is one.
func glyphFor(ticks int64) (Glyph, bool) {
	for _, g := range glyphs(true) {
		if g.Ticks() == ticks {
			return g, true
		}
	}
	return Glyph{}, false
}
