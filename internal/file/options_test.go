package file

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divVerent/midinotate/internal/transcribe"
)

const optionsYAML = `
input_file: song.mid
defaults:
  quantize: 32nd
  tuplets: [3]
tracks:
  1:
    max_voices: 2
    split_staff: true
  7:
    lyrics: false
`

func TestReadOptions(t *testing.T) {
	fsys := fstest.MapFS{"song.yml": {Data: []byte(optionsYAML)}}
	o, err := ReadOptions(fsys, "song.yml")
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal("song.mid", o.InputFile)
	base := o.Base()
	assert.Equal(transcribe.Grid32nd, base.Quantize)
	assert.Equal([]int{3}, base.Tuplets)
	assert.NoError(base.Validate())

	in := &transcribe.Input{TicksPerQuarter: 480, Tracks: []transcribe.Track{{ID: 0}, {ID: 1}}}
	configs := o.Configs(in)
	require.Len(t, configs, 2)
	assert.True(configs[0].Equal(base))
	assert.Equal(2, configs[1].MaxVoices)
	assert.True(configs[1].SplitStaff)
	assert.Equal(transcribe.Grid32nd, configs[1].Quantize)
	// Overlays of tracks the input lacks are ignored.
	_, found := configs[7]
	assert.False(found)
}

func TestReadOptionsErrors(t *testing.T) {
	fsys := fstest.MapFS{"bad.yml": {Data: []byte("defaults:\n  quantize: 33rd\n")}}
	_, err := ReadOptions(fsys, "bad.yml")
	assert.Error(t, err)
	_, err = ReadOptions(fsys, "missing.yml")
	assert.Error(t, err)
}

func TestConfigsDoNotShareTuplets(t *testing.T) {
	o := &Options{}
	in := &transcribe.Input{TicksPerQuarter: 480, Tracks: []transcribe.Track{{ID: 0}, {ID: 1}}}
	configs := o.Configs(in)
	configs[0].Tuplets[0] = 99
	assert.NotEqual(t, 99, configs[1].Tuplets[0])
}

func TestSuggested(t *testing.T) {
	in := &transcribe.Input{TicksPerQuarter: 480, Tracks: []transcribe.Track{
		{ID: 0, Events: []transcribe.RawNoteEvent{
			{ID: 0, Pitch: 36, Duration: 480, Velocity: 64},
			{ID: 1, Pitch: 84, Duration: 480, Velocity: 64},
		}},
		{ID: 1, Events: []transcribe.RawNoteEvent{
			{ID: 0, TrackID: 1, Pitch: 62, Duration: 480, Velocity: 64},
		}},
	}}
	o := Suggested("song.mid", []byte("data"), in)
	assert := assert.New(t)
	assert.Equal("song.mid", o.InputFile)
	assert.Len(o.InputFileSHA256, 64)
	require.Len(t, o.Tracks, 1)
	split := o.Tracks[0].SplitStaff
	require.NotNil(t, split)
	assert.True(*split)

	// Reading the suggestion back gives the suggested configs.
	configs := o.Configs(in)
	assert.True(configs[0].SplitStaff)
	assert.False(configs[1].SplitStaff)
}
