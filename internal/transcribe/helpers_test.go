package transcribe

import (
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

const ppq = 480

// q converts quarter notes to source ticks.
func q(quarters float64) int64 {
	return int64(math.Round(quarters * ppq))
}

// iq converts quarter notes to internal ticks.
func iq(quarters float64) int64 {
	return int64(math.Round(quarters * float64(Division)))
}

type trackBuilder struct {
	tr Track
}

func newTrack(id int) *trackBuilder {
	return &trackBuilder{tr: Track{ID: id, Name: "test"}}
}

func (b *trackBuilder) note(pitch uint8, onset, duration int64) *trackBuilder {
	return b.noteVel(pitch, onset, duration, 100)
}

func (b *trackBuilder) noteVel(pitch uint8, onset, duration int64, velocity uint8) *trackBuilder {
	b.tr.Events = append(b.tr.Events, RawNoteEvent{
		ID:       len(b.tr.Events),
		TrackID:  b.tr.ID,
		Pitch:    pitch,
		Onset:    onset,
		Duration: duration,
		Velocity: velocity,
	})
	return b
}

func (b *trackBuilder) lyric(tick int64, text string) *trackBuilder {
	b.tr.Lyrics = append(b.tr.Lyrics, Lyric{Tick: tick, Text: text})
	return b
}

func (b *trackBuilder) build() Track {
	return b.tr
}

func input(tracks ...Track) *Input {
	return &Input{TicksPerQuarter: ppq, Tracks: tracks}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// run transcribes in and checks the structural laws of the result.
func run(t *testing.T, in *Input, cfg Config) *Score {
	t.Helper()
	s, err := Transcribe(in, cfg, nil, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.Check())
	return s
}

// pipeline runs one track of in to EMITTED and returns the pipeline.
func pipeline(t *testing.T, in *Input, cfg Config) *Pipeline {
	t.Helper()
	bars, _ := Layout(in, cfg)
	p, err := NewPipeline(in, &in.Tracks[0], bars, cfg, quietLogger())
	require.NoError(t, err)
	p.Run()
	return p
}

func diagnosticsOf(s *Score, kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.AllDiagnostics() {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// notes returns the note elements of one voice of a staff across all measures.
func notes(st Staff, voice int) []Element {
	var out []Element
	for _, m := range st.Measures {
		for _, v := range m.Voices {
			if v.Voice != voice {
				continue
			}
			for _, e := range v.Elements {
				if e.Kind == NoteElement {
					out = append(out, e)
				}
			}
		}
	}
	return out
}
