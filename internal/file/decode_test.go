package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midinotate/internal/transcribe"
)

func TestBeatNum(t *testing.T) {
	for _, c := range []struct {
		num, denom, cpt uint8
		want            int
	}{
		{4, 4, 24, 1},
		{3, 4, 24, 1},
		{6, 8, 36, 3},
		{12, 8, 36, 3},
		{6, 8, 12, 1},
		{4, 4, 48, 0},
		{5, 8, 36, 0},
		{4, 4, 0, 0},
	} {
		assert.Equal(t, c.want, beatNum(ppq, c.num, c.denom, c.cpt), "%d/%d with %d clocks", c.num, c.denom, c.cpt)
	}
}

func TestDecodeSplitsChannels(t *testing.T) {
	var b build
	b.put(0, smf.MetaTrackSequenceName("piano"))
	b.put(0, smf.MetaTimeSig(3, 4, 24, 8))
	b.put(0, smf.MetaTempo(90))
	b.put(0, smf.MetaLyric("la"))
	b.put(0, midi.ProgramChange(0, 5))
	b.put(0, midi.NoteOn(0, 60, 100))
	b.put(0, midi.NoteOn(1, 64, 80))
	b.put(480, midi.NoteOff(0, 60))
	// A note on with velocity zero ends the note.
	b.put(960, midi.NoteOn(1, 64, 0))
	in, err := Decode(midOf(t, b.done()), quietLogger())
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(int64(ppq), in.TicksPerQuarter)
	assert.Equal([]transcribe.TimeSig{{Tick: 0, Num: 3, Denom: 4, BeatNum: 1}}, in.TimeSigs)
	require.Len(t, in.Tempos, 1)
	assert.InDelta(90, in.Tempos[0].BPM, 0.01)

	require.Len(t, in.Tracks, 2)
	upper, lower := in.Tracks[0], in.Tracks[1]
	assert.Equal(0, upper.ID)
	assert.Equal("piano (ch 1)", upper.Name)
	assert.Equal(uint8(5), upper.Instrument.Program)
	assert.Equal("piano (ch 2)", lower.Name)
	assert.Equal([]transcribe.Lyric{{Tick: 0, Text: "la"}}, upper.Lyrics)
	assert.Empty(lower.Lyrics)

	require.Len(t, upper.Events, 1)
	assert.Equal(transcribe.RawNoteEvent{ID: 0, TrackID: 0, Channel: 0, Pitch: 60, Onset: 0, Duration: 480, Velocity: 100}, upper.Events[0])
	require.Len(t, lower.Events, 1)
	assert.Equal(transcribe.RawNoteEvent{ID: 0, TrackID: 1, Channel: 1, Pitch: 64, Onset: 0, Duration: 960, Velocity: 80}, lower.Events[0])
	require.NoError(t, in.Validate())
}

func TestDecodeOrdersTracks(t *testing.T) {
	var conductor build
	conductor.put(0, smf.MetaTrackSequenceName("words"))
	conductor.put(960, smf.MetaLyric("two"))
	conductor.put(960, smf.MetaLyric("three"))
	var drums build
	drums.put(0, smf.MetaTrackSequenceName("drums"))
	drums.put(0, smf.MetaLyric("one"))
	drums.put(0, midi.NoteOn(PercussionChannel, 36, 90))
	drums.put(240, midi.NoteOff(PercussionChannel, 36))
	in, err := Decode(midOf(t, conductor.done(), drums.done()), quietLogger())
	require.NoError(t, err)

	require.Len(t, in.Tracks, 1)
	tr := in.Tracks[0]
	assert.Equal(t, "drums", tr.Name)
	assert.True(t, tr.Instrument.Percussion)
	assert.Equal(t, []transcribe.Lyric{{Tick: 0, Text: "one"}, {Tick: 960, Text: "two"}, {Tick: 960, Text: "three"}}, tr.Lyrics)
}

func TestDecodeFlushesHeldNotes(t *testing.T) {
	var b build
	b.put(0, midi.NoteOn(0, 60, 100))
	b.put(0, midi.NoteOn(0, 62, 100))
	b.put(480, midi.NoteOff(0, 62))
	b.put(720, smf.MetaLyric("end"))
	in, err := Decode(midOf(t, b.done()), quietLogger())
	require.NoError(t, err)
	require.Len(t, in.Tracks, 1)
	events := in.Tracks[0].Events
	require.Len(t, events, 2)
	assert.Equal(t, uint8(62), events[0].Pitch)
	assert.Equal(t, int64(480), events[0].Duration)
	assert.Equal(t, uint8(60), events[1].Pitch)
	assert.Equal(t, int64(720), events[1].Duration)
}

func TestDecodeRejectsTimecode(t *testing.T) {
	mid := smf.NewSMF1()
	mid.TimeFormat = smf.SMPTE25(40)
	_, err := Decode(mid, nil)
	assert.Error(t, err)
}
