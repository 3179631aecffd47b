package transcribe

import (
	"fmt"
	"slices"
	"strings"
)

type DiagnosticKind int

const (
	// VoiceOverflow means more notes sounded at once than there are voices.
	VoiceOverflow DiagnosticKind = iota + 1
	// TupletAcrossBarline means a tuplet reading was rejected because it crossed a barline.
	TupletAcrossBarline
	// IncompleteMeasure means a bar is shorter than its signature and no pickup.
	IncompleteMeasure
)

var diagnosticNames = map[DiagnosticKind]string{
	VoiceOverflow:       "voice-overflow",
	TupletAcrossBarline: "tuplet-across-barline",
	IncompleteMeasure:   "incomplete-measure",
}

func (k DiagnosticKind) String() string {
	if s, ok := diagnosticNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DiagnosticKind(%d)", int(k))
}

func (k DiagnosticKind) MarshalText() ([]byte, error) {
	s, ok := diagnosticNames[k]
	if !ok {
		return nil, fmt.Errorf("invalid diagnostic kind %d", int(k))
	}
	return []byte(s), nil
}

func (k *DiagnosticKind) UnmarshalText(text []byte) error {
	for kind, s := range diagnosticNames {
		if s == strings.ToLower(string(text)) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown diagnostic kind %q", text)
}

// Diagnostic is a recorded problem the pipeline worked around.
// Track is -1 for problems of the shared bar layout; Event is -1 when no event is involved.
type Diagnostic struct {
	Track   int            `yaml:"track" json:"track"`
	Kind    DiagnosticKind `yaml:"kind" json:"kind"`
	Measure int            `yaml:"measure" json:"measure"`
	Tick    int64          `yaml:"tick" json:"tick"`
	Event   int            `yaml:"event" json:"event"`
	Message string         `yaml:"message" json:"message"`
}

func (d Diagnostic) String() string {
	if d.Track < 0 {
		return fmt.Sprintf("measure %d: %v: %s", d.Measure, d.Kind, d.Message)
	}
	return fmt.Sprintf("track %d measure %d: %v: %s", d.Track, d.Measure, d.Kind, d.Message)
}

// sortDiagnostics orders by track, then time, then kind.
func sortDiagnostics(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		if a.Track != b.Track {
			return a.Track - b.Track
		}
		if a.Tick != b.Tick {
			if a.Tick < b.Tick {
				return -1
			}
			return +1
		}
		return int(a.Kind) - int(b.Kind)
	})
}
