package transcribe

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
)

// Stage is the position of a track in the transcription pipeline.
type Stage int

const (
	StageRaw Stage = iota
	StageQuantized
	StageVoiceAssigned
	StageTupletResolved
	StageSimplified
	StageEmitted
)

var stageNames = []string{"RAW", "QUANTIZED", "VOICE_ASSIGNED", "TUPLET_RESOLVED", "SIMPLIFIED", "EMITTED"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Pipeline transcribes one track. It only reads its input and bars,
// so pipelines of different tracks may run in parallel.
type Pipeline struct {
	input  *Input
	track  *Track
	bars   Bars
	config Config
	logger *log.Logger

	stage    Stage
	notes    []note
	staves   int
	swing    Swing
	windows  []window
	events   []QuantizedEvent
	tuplets  []Tuplet
	measures [][]Measure
	part     *Part
	diags    []Diagnostic
}

// NewPipeline prepares the pipeline of one track of in over the shared bars.
func NewPipeline(in *Input, tr *Track, bars Bars, cfg Config, logger *log.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config for track %d: %w", tr.ID, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for track %d", tr.ID)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		input:  in,
		track:  tr,
		bars:   bars,
		config: cfg,
		logger: logger.With("track", tr.ID),
	}, nil
}

func (p *Pipeline) Stage() Stage {
	return p.stage
}

func (p *Pipeline) Config() Config {
	return p.config
}

// Step advances by one stage and returns the new stage. EMITTED is terminal.
func (p *Pipeline) Step() Stage {
	switch p.stage {
	case StageRaw:
		p.quantize()
	case StageQuantized:
		p.assignVoices()
	case StageVoiceAssigned:
		p.resolveTuplets()
	case StageTupletResolved:
		p.simplify()
	case StageSimplified:
		p.emit()
	case StageEmitted:
		return p.stage
	}
	p.stage++
	p.logger.Debug("stage done", "stage", p.stage)
	return p.stage
}

// Run advances to EMITTED and returns the part.
func (p *Pipeline) Run() *Part {
	for p.stage != StageEmitted {
		p.Step()
	}
	return p.part
}

// Reset discards every derived stage; the raw track stays.
func (p *Pipeline) Reset() {
	*p = Pipeline{
		input:  p.input,
		track:  p.track,
		bars:   p.bars,
		config: p.config,
		logger: p.logger,
	}
}

// Events returns a copy of the quantized events, valid from QUANTIZED on.
func (p *Pipeline) Events() []QuantizedEvent {
	return slices.Clone(p.events)
}

// Tuplets returns a copy of the resolved tuplets, valid from TUPLET_RESOLVED on.
func (p *Pipeline) Tuplets() []Tuplet {
	return slices.Clone(p.tuplets)
}

func (p *Pipeline) Diagnostics() []Diagnostic {
	return slices.Clone(p.diags)
}

// Part returns the emitted part, or nil before EMITTED.
func (p *Pipeline) Part() *Part {
	return p.part
}

// Assemble builds the score from emitted parts, dropping trailing measures no part uses.
func Assemble(bars Bars, parts []*Part, layout []Diagnostic) *Score {
	var last int64
	for _, part := range parts {
		for _, st := range part.Staves {
			for _, m := range st.Measures {
				for _, v := range m.Voices {
					for _, e := range v.Elements {
						if e.Kind == NoteElement {
							last = max(last, e.End())
						}
					}
				}
			}
		}
	}
	n := 1
	for n < len(bars) && bars[n].Begin < last {
		n++
	}
	s := &Score{
		Division: Division,
		Bars:     slices.Clone(bars[:n]),
	}
	for _, d := range layout {
		if d.Measure <= n {
			s.Diagnostics = append(s.Diagnostics, d)
		}
	}
	for _, part := range parts {
		out := *part
		out.Staves = make([]Staff, len(part.Staves))
		for i, st := range part.Staves {
			st.Measures = slices.Clone(st.Measures[:min(n, len(st.Measures))])
			out.Staves[i] = st
		}
		s.Parts = append(s.Parts, out)
	}
	slices.SortStableFunc(s.Parts, func(a, b Part) int {
		return a.TrackID - b.TrackID
	})
	return s
}

// Transcribe runs every track of in sequentially with one config per track.
// configs may lack tracks; those use base.
func Transcribe(in *Input, base Config, configs map[int]Config, logger *log.Logger) (*Score, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	bars, diags := Layout(in, base)
	var parts []*Part
	for i := range in.Tracks {
		tr := &in.Tracks[i]
		cfg, ok := configs[tr.ID]
		if !ok {
			cfg = base
		}
		p, err := NewPipeline(in, tr, bars, cfg, logger)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p.Run())
	}
	return Assemble(bars, parts, diags), nil
}
