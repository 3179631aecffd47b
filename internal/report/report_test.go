package report

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/divVerent/midinotate/internal/transcribe"
)

func chordScore(t *testing.T, voices int) *transcribe.Score {
	t.Helper()
	in := &transcribe.Input{
		TicksPerQuarter: 480,
		Tracks: []transcribe.Track{{ID: 0, Events: []transcribe.RawNoteEvent{
			{ID: 0, Pitch: 64, Onset: 0, Duration: 480, Velocity: 80},
			{ID: 1, Pitch: 60, Onset: 0, Duration: 480, Velocity: 80},
			{ID: 2, Pitch: 62, Onset: 3 * 480, Duration: 960, Velocity: 80},
		}}},
	}
	cfg := transcribe.DefaultConfig()
	cfg.MaxVoices = voices
	s, err := transcribe.Transcribe(in, cfg, nil, log.New(io.Discard))
	require.NoError(t, err)
	return s
}

func TestSummarize(t *testing.T) {
	sum := Summarize(chordScore(t, 1))
	assert.Equal(t, Summary{Parts: 1, Measures: 2, Notes: 2, Tuplets: 0, Dropped: 1}, sum)
	sum = Summarize(chordScore(t, 2))
	assert.Equal(t, 3, sum.Notes)
	assert.Zero(t, sum.Dropped)
}

func TestWriteEnglish(t *testing.T) {
	var b strings.Builder
	require.NoError(t, New(language.English).Write(&b, chordScore(t, 1)))
	assert.Equal(t, "Imported 1 parts in 2 measures: 2 notes, 0 tuplets.\n"+
		"One note was dropped.\n"+
		"Measure 1, track 0: a note did not fit into the voices and was left out.\n", b.String())
}

func TestWriteGerman(t *testing.T) {
	r := New(language.MustParse("de-AT"))
	assert.Equal(t, language.German, r.Language)
	var b strings.Builder
	require.NoError(t, r.Write(&b, chordScore(t, 1)))
	assert.Contains(t, b.String(), "Eine Note wurde weggelassen.")
	assert.Contains(t, b.String(), "Takt 1, Spur 0:")
}

func TestUnsupportedLanguageFallsBack(t *testing.T) {
	assert.Equal(t, language.English, New(language.Japanese).Language)
	assert.Equal(t, language.English, New().Language)
}

func TestLanguagesIncludeEnglish(t *testing.T) {
	assert.Contains(t, Languages(log.New(io.Discard)), language.English)
}
