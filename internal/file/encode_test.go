package file

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midinotate/internal/transcribe"
)

func scale() *transcribe.Input {
	tr := transcribe.Track{ID: 0, Name: "melody", Instrument: transcribe.Instrument{Program: 40}}
	for k, pitch := range []uint8{60, 62, 64, 65} {
		tr.Events = append(tr.Events, transcribe.RawNoteEvent{
			ID: k, Pitch: pitch, Onset: int64(k) * ppq, Duration: ppq, Velocity: 70,
		})
	}
	tr.Lyrics = []transcribe.Lyric{{Tick: ppq, Text: "la"}}
	return &transcribe.Input{
		TicksPerQuarter: ppq,
		Tempos:          []transcribe.Tempo{{Tick: 0, BPM: 120}},
		Tracks:          []transcribe.Track{tr},
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	in := scale()
	s, err := transcribe.Transcribe(in, transcribe.DefaultConfig(), nil, quietLogger())
	require.NoError(t, err)

	mid, err := Encode(s, in)
	require.NoError(t, err)
	back, err := ReadInput("out.mid", bytesOf(t, mid), "", false, quietLogger())
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(int64(Resolution), back.TicksPerQuarter)
	require.Len(t, back.Tempos, 1)
	assert.InDelta(120, back.Tempos[0].BPM, 0.01)
	require.NotEmpty(t, back.TimeSigs)
	assert.Equal(4, back.TimeSigs[0].Num)
	assert.Equal(4, back.TimeSigs[0].Denom)

	require.Len(t, back.Tracks, 1)
	tr := back.Tracks[0]
	assert.Equal("melody", tr.Name)
	assert.Equal(uint8(40), tr.Instrument.Program)
	assert.Equal([]transcribe.Lyric{{Tick: Resolution, Text: "la"}}, tr.Lyrics)
	require.Len(t, tr.Events, 4)
	for k, ev := range tr.Events {
		assert.Equal(in.Tracks[0].Events[k].Pitch, ev.Pitch)
		assert.Equal(int64(k)*Resolution, ev.Onset)
		assert.Equal(int64(Resolution), ev.Duration)
		assert.Equal(uint8(70), ev.Velocity)
	}
}

func TestEncodeJoinsTies(t *testing.T) {
	in := &transcribe.Input{
		TicksPerQuarter: ppq,
		Tracks: []transcribe.Track{{
			ID:     0,
			Events: []transcribe.RawNoteEvent{{Pitch: 67, Onset: 3 * ppq, Duration: 2 * ppq, Velocity: 90}},
		}},
	}
	s, err := transcribe.Transcribe(in, transcribe.DefaultConfig(), nil, quietLogger())
	require.NoError(t, err)
	notes, _ := partNotes(&s.Parts[0])
	require.Len(t, notes, 1)
	assert.Equal(t, sounding{start: 3 * transcribe.Division, end: 5 * transcribe.Division, pitch: 67, velocity: 90}, notes[0])
}

func TestChannelsSkipDrums(t *testing.T) {
	parts := make([]transcribe.Part, 12)
	parts[3].Instrument.Percussion = true
	got := channels(parts)
	assert.Equal(t, []uint8{0, 1, 2, 9, 3, 4, 5, 6, 7, 8, 10, 11}, got)
}

func TestWriteScoreFormats(t *testing.T) {
	in := scale()
	s, err := transcribe.Transcribe(in, transcribe.DefaultConfig(), nil, quietLogger())
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(YAML, FormatOf("score.yaml"))
	assert.Equal(JSON, FormatOf("score.JSON"))
	assert.Equal(MIDI, FormatOf("score.mid"))

	var y bytes.Buffer
	require.NoError(t, WriteScore(&y, YAML, s, in))
	assert.Contains(y.String(), "division: 40320")
	assert.Contains(y.String(), "kind: note")

	var j bytes.Buffer
	require.NoError(t, WriteScore(&j, JSON, s, in))
	assert.Contains(j.String(), `"division": 40320`)

	var m bytes.Buffer
	require.NoError(t, WriteScore(&m, MIDI, s, in))
	_, err = smf.ReadFrom(&m)
	assert.NoError(err)

	assert.Error(WriteScore(&y, Format("pdf"), s, in))
}
