package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	wholeGlyph    = Glyph{Log: 0}
	half          = Glyph{Log: 1}
	dottedHalf    = Glyph{Log: 1, Dots: 1}
	quarter       = Glyph{Log: 2}
	dottedQuarter = Glyph{Log: 2, Dots: 1}
	eighth        = Glyph{Log: 3}
	dottedEighth  = Glyph{Log: 3, Dots: 1}
)

func TestMeterDecompose(t *testing.T) {
	simple := meter{bar: fourFour(0), simplify: true, dotted: true}
	for _, tc := range []struct {
		name          string
		m             meter
		start, length int64
		want          []Glyph
	}{
		{"dotted half from the downbeat", simple, 0, iq(3), []Glyph{dottedHalf}},
		{"no half across the middle", simple, iq(1), iq(3), []Glyph{quarter, half}},
		{"whole bar", simple, 0, iq(4), []Glyph{wholeGlyph}},
		{"without dots", meter{bar: fourFour(0), simplify: true}, 0, iq(3), []Glyph{half, quarter}},
		{"without simplification", meter{bar: fourFour(0), dotted: true}, 0, iq(4), []Glyph{quarter, quarter, quarter, quarter}},
		{"dotted eighth ending on the beat", simple, iq(0.25), iq(0.75), []Glyph{dottedEighth}},
		{"dotted eighth from the beat", simple, 0, iq(0.75), []Glyph{dottedEighth}},
		{"syncopated eighth", simple, iq(0.5), iq(1), []Glyph{eighth, eighth}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.m.decompose(tc.start, tc.length))
		})
	}
}

func TestMeterDecomposeCompound(t *testing.T) {
	bar := Bar{Begin: 0, Length: iq(3), BeatNum: 3, Num: 6, Denom: 8, OrigNum: 6, OrigBeatNum: 3, OrigDenom: 8}
	m := meter{bar: bar, simplify: true, dotted: true}
	assert.Equal(t, []Glyph{dottedQuarter}, m.decompose(0, iq(1.5)))
	assert.Equal(t, []Glyph{dottedHalf}, m.decompose(0, iq(3)))
}

func TestDecomposeWritten(t *testing.T) {
	assert.Equal(t, []Glyph{dottedQuarter}, decomposeWritten(iq(1.5), true))
	assert.Equal(t, []Glyph{quarter, eighth}, decomposeWritten(iq(1.5), false))
}

func TestNoteTiedAcrossBarline(t *testing.T) {
	in := input(newTrack(0).note(60, q(3), q(2)).build())
	s := run(t, in, DefaultConfig())
	written := notes(s.Parts[0].Staves[0], 0)
	require.Len(t, written, 2)
	assert := assert.New(t)
	assert.Equal(iq(3), written[0].Start)
	assert.True(written[0].TieNext)
	assert.Equal(iq(4), written[1].Start)
	assert.False(written[1].TieNext)
	assert.Equal(written[0].Event, written[1].Event)
}

func TestEmptyMeasureGetsMeasureRest(t *testing.T) {
	in := input(newTrack(0).note(60, 0, q(4)).note(62, q(8), q(4)).build())
	s := run(t, in, DefaultConfig())
	ms := s.Parts[0].Staves[0].Measures
	require.Len(t, ms, 3)
	require.Len(t, ms[1].Voices, 1)
	rest := ms[1].Voices[0].Elements
	require.Len(t, rest, 1)
	assert.Equal(t, MeasureRestElement, rest[0].Kind)
	assert.Equal(t, whole, rest[0].Length)
}

func TestSecondVoiceOnlyWhereUsed(t *testing.T) {
	b := newTrack(0)
	b.note(72, 0, q(4)).note(60, 0, q(2))
	b.note(72, q(4), q(4))
	s := run(t, input(b.build()), DefaultConfig())
	ms := s.Parts[0].Staves[0].Measures
	require.Len(t, ms, 2)
	assert.Len(t, ms[0].Voices, 2)
	assert.Len(t, ms[1].Voices, 1)
	second := ms[0].Voices[1].Elements
	require.Len(t, second, 2)
	assert.Equal(t, NoteElement, second[0].Kind)
	assert.Equal(t, RestElement, second[1].Kind)
	assert.Equal(t, half, second[1].Glyph)
}

func TestPickupShowsFullSignature(t *testing.T) {
	in := input(newTrack(0).note(60, q(2), q(1)).note(62, q(3), q(1)).note(64, q(4), q(4)).build())
	s := run(t, in, DefaultConfig())
	ms := s.Parts[0].Staves[0].Measures
	require.NotEmpty(t, ms)
	assert.True(t, ms[0].Pickup)
	assert.Equal(t, TimeSignature{Num: 4, Denom: 4}, ms[0].TimeSig)
	assert.Equal(t, iq(2), ms[0].Length)
}
