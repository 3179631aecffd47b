package transcribe

import (
	"fmt"
	"slices"
	"strings"
)

type Clef int

const (
	ClefTreble Clef = iota
	ClefBass
	ClefPercussion
)

var clefNames = []string{"treble", "bass", "percussion"}

func (c Clef) String() string {
	if c < 0 || int(c) >= len(clefNames) {
		return fmt.Sprintf("Clef(%d)", int(c))
	}
	return clefNames[c]
}

func (c Clef) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(clefNames) {
		return nil, fmt.Errorf("invalid clef %d", int(c))
	}
	return []byte(clefNames[c]), nil
}

func (c *Clef) UnmarshalText(text []byte) error {
	i := slices.Index(clefNames, strings.ToLower(string(text)))
	if i < 0 {
		return fmt.Errorf("unknown clef %q", text)
	}
	*c = Clef(i)
	return nil
}

// splitZone is how far around the split pitch a run keeps the staff it is on.
const splitZone = 7

// Clef switching thresholds on a measure's median pitch.
const (
	trebleToBass = 52 // E3
	bassToTreble = 69 // A4
)

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// routeStaves sets the staff of every note and returns the number of staves.
func routeStaves(notes []note, cfg Config, percussion bool) int {
	if !cfg.SplitStaff || percussion {
		for i := range notes {
			notes[i].staff = 0
		}
		return 1
	}
	type line struct {
		pitch uint8
		end   int64
		ok    bool
	}
	var last [2]line
	for i := range notes {
		n := &notes[i]
		staff := 1
		if n.pitch >= cfg.SplitPitch {
			staff = 0
		}
		if cfg.ClefChanges && absInt(int(n.pitch)-int(cfg.SplitPitch)) <= splitZone {
			// Stay with the nearest recent line instead of flipping on every note.
			best, bestDist := -1, 128
			for _, s := range []int{staff, 1 - staff} {
				l := last[s]
				if !l.ok || n.onset-l.end > Division {
					continue
				}
				if d := absInt(int(n.pitch) - int(l.pitch)); d < bestDist {
					best, bestDist = s, d
				}
			}
			if best >= 0 {
				staff = best
			}
		}
		n.staff = staff
		last[staff] = line{pitch: n.pitch, end: n.end, ok: true}
	}
	return 2
}

// initialClef picks the clef a staff starts with.
func initialClef(notes []note, staff, staves int, percussion bool) Clef {
	switch {
	case percussion:
		return ClefPercussion
	case staves == 2 && staff == 0:
		return ClefTreble
	case staves == 2:
		return ClefBass
	}
	var pitches []int
	for _, n := range notes {
		pitches = append(pitches, int(n.pitch))
	}
	if len(pitches) > 0 && median(pitches) < 55 {
		return ClefBass
	}
	return ClefTreble
}

func median(v []int) int {
	v = slices.Clone(v)
	slices.Sort(v)
	return v[len(v)/2]
}

// nextClef applies hysteresis to a measure's median pitch.
func nextClef(cur Clef, pitches []int) Clef {
	if cur == ClefPercussion || len(pitches) == 0 {
		return cur
	}
	m := median(pitches)
	switch {
	case cur == ClefTreble && m < trebleToBass:
		return ClefBass
	case cur == ClefBass && m > bassToTreble:
		return ClefTreble
	}
	return cur
}
