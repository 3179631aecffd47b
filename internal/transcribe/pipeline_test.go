package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quarterNotes(id, bars int) Track {
	b := newTrack(id)
	for k := 0; k < 4*bars; k++ {
		b.note(60+uint8(k%12), q(float64(k)), q(1))
	}
	return b.build()
}

func TestQuarterNotesFillMeasures(t *testing.T) {
	s := run(t, input(quarterNotes(0, 2)), DefaultConfig())
	assert := assert.New(t)
	require.Len(t, s.Parts, 1)
	part := s.Parts[0]
	assert.Empty(part.Tuplets)
	assert.Empty(s.AllDiagnostics())
	require.Len(t, part.Staves, 1)
	require.Len(t, part.Staves[0].Measures, 2)
	for _, m := range part.Staves[0].Measures {
		require.Len(t, m.Voices, 1)
		assert.Equal(0, m.Voices[0].Voice)
		require.Len(t, m.Voices[0].Elements, 4)
		for _, e := range m.Voices[0].Elements {
			assert.Equal(NoteElement, e.Kind)
			assert.Equal(quarter, e.Glyph)
			assert.False(e.TieNext)
		}
	}
}

func TestTwoBeatPickup(t *testing.T) {
	b := newTrack(0)
	b.note(67, q(2), q(1)).note(69, q(3), q(1))
	for k := 4; k < 12; k++ {
		b.note(72, q(float64(k)), q(1))
	}
	s := run(t, input(b.build()), DefaultConfig())
	assert := assert.New(t)
	assert.True(s.Bars[0].Pickup)
	assert.Equal(iq(2), s.Bars[0].Length)
	assert.Equal(iq(4), s.Bars[1].Begin)
	assert.Empty(diagnosticsOf(s, IncompleteMeasure))
	m := s.Parts[0].Staves[0].Measures[0]
	assert.True(m.Pickup)
	assert.False(m.Incomplete)
	assert.Len(m.Voices[0].Elements, 2)
}

func TestPipelineStages(t *testing.T) {
	in := input(quarterNotes(0, 1))
	bars, _ := Layout(in, DefaultConfig())
	p, err := NewPipeline(in, &in.Tracks[0], bars, DefaultConfig(), quietLogger())
	require.NoError(t, err)
	assert := assert.New(t)
	assert.Equal(StageRaw, p.Stage())
	for _, want := range []Stage{StageQuantized, StageVoiceAssigned, StageTupletResolved, StageSimplified, StageEmitted} {
		assert.Equal(want, p.Step())
	}
	assert.Equal(StageEmitted, p.Step())
	require.NotNil(t, p.Part())

	p.Reset()
	assert.Equal(StageRaw, p.Stage())
	assert.Nil(p.Part())
	assert.Empty(p.Events())
	assert.Len(in.Tracks[0].Events, 4)
}

func TestStageNames(t *testing.T) {
	text, err := StageTupletResolved.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "TUPLET_RESOLVED", string(text))
	assert.Equal(t, "EMITTED", StageEmitted.String())
}

func TestNewPipelineRejectsBadConfig(t *testing.T) {
	in := input(quarterNotes(0, 1))
	bars, _ := Layout(in, DefaultConfig())
	cfg := DefaultConfig()
	cfg.MaxVoices = 9
	_, err := NewPipeline(in, &in.Tracks[0], bars, cfg, quietLogger())
	assert.ErrorContains(t, err, "track 0")
}

func TestTranscribeRejectsBadInput(t *testing.T) {
	in := input(quarterNotes(0, 1))
	in.TimeSigs = []TimeSig{{Num: 3, Denom: 5}}
	_, err := Transcribe(in, DefaultConfig(), nil, quietLogger())
	assert.ErrorContains(t, err, "3/5")
}

func TestRerunIsDeterministic(t *testing.T) {
	b := evenRun(newTrack(0), 7, 0, q(1))
	b.note(48, 0, q(3)).note(50, q(1.5), q(2)).noteVel(45, q(1.5), q(1), 20)
	in := input(b.build(), quarterNotes(1, 2))
	cfg := DefaultConfig()
	cfg.MaxVoices = 2
	first := run(t, in, cfg)
	second := run(t, in, cfg)
	assert.Equal(t, first, second)

	p := pipeline(t, in, cfg)
	part := *p.Part()
	p.Reset()
	p.Run()
	assert.Equal(t, part, *p.Part())
}

func TestPerTrackConfigs(t *testing.T) {
	in := input(quarterNotes(0, 1), evenRun(newTrack(1), 3, 0, q(1)).build())
	noTuplets := DefaultConfig()
	noTuplets.Tuplets = nil
	s, err := Transcribe(in, DefaultConfig(), map[int]Config{0: noTuplets}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.Check())
	require.Len(t, s.Parts, 2)
	p1, ok := s.Part(1)
	require.True(t, ok)
	assert.Len(t, p1.Tuplets, 1)
	_, ok = s.Part(7)
	assert.False(t, ok)
}

func TestEmptyTrack(t *testing.T) {
	s := run(t, input(newTrack(0).build()), DefaultConfig())
	require.Len(t, s.Bars, 1)
	ms := s.Parts[0].Staves[0].Measures
	require.Len(t, ms, 1)
	assert.Equal(t, MeasureRestElement, ms[0].Voices[0].Elements[0].Kind)
}

func TestLyricsAttachToNotes(t *testing.T) {
	tr := quarterNotes(0, 1)
	tr.Lyrics = []Lyric{{Tick: q(1), Text: "la"}, {Tick: q(2) + 10, Text: "di"}, {Tick: q(2), Text: "da"}}
	s := run(t, input(tr), DefaultConfig())
	written := notes(s.Parts[0].Staves[0], 0)
	require.Len(t, written, 4)
	assert := assert.New(t)
	assert.Equal("", written[0].Lyric)
	assert.Equal("la", written[1].Lyric)
	assert.Equal("di da", written[2].Lyric)

	cfg := DefaultConfig()
	cfg.Lyrics = false
	s = run(t, input(tr), cfg)
	for _, e := range notes(s.Parts[0].Staves[0], 0) {
		assert.Empty(e.Lyric)
	}
}

func TestTrailingMeasuresAreTrimmed(t *testing.T) {
	in := input(newTrack(0).note(60, 0, q(4)).build())
	bars, _ := Layout(in, DefaultConfig())
	require.Len(t, bars, 2)
	s := run(t, in, DefaultConfig())
	assert.Len(t, s.Bars, 1)
	assert.Len(t, s.Parts[0].Staves[0].Measures, 1)
}

func TestDroppedNotesStayInDiagnosticsOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxVoices = 2
	b := newTrack(3)
	for _, p := range []uint8{60, 64, 67, 72} {
		b.note(p, 0, q(1))
	}
	s := run(t, input(b.build()), cfg)
	dropped := diagnosticsOf(s, VoiceOverflow)
	require.Len(t, dropped, 2)
	assert.Equal(t, 3, dropped[0].Track)
	ids := []int{dropped[0].Event, dropped[1].Event}
	assert.ElementsMatch(t, []int{0, 1}, ids)
}

func TestSuggest(t *testing.T) {
	piano := newTrack(0).note(36, 0, q(1)).note(84, q(1), q(1)).build()
	drums := newTrack(1).note(36, 0, q(1)).note(84, q(1), q(1)).build()
	drums.Instrument.Percussion = true
	in := input(piano, drums, driftingEighths(32, 4))
	in.Tracks[2].ID = 2
	got := Suggest(in, DefaultConfig())
	assert := assert.New(t)
	assert.True(got[0].SplitStaff)
	assert.False(got[0].HumanPerformance)
	assert.False(got[1].SplitStaff)
	assert.True(got[2].HumanPerformance)
	assert.Equal(SwingDetect, got[2].Swing)
}

func TestAnalyzePerformance(t *testing.T) {
	in := input(quarterNotes(0, 2))
	perf := AnalyzePerformance(in, &in.Tracks[0])
	assert.Equal(t, 8, perf.Notes)
	assert.InDelta(t, 1.0, perf.OnGrid, 1e-9)
	assert.False(t, perf.Human)
	assert.Equal(t, uint8(60), perf.LowPitch)
	assert.Equal(t, uint8(67), perf.HighPitch)
}
