package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteTrackerPairsStartsAndEnds(t *testing.T) {
	tr := NewNoteTracker(2)
	tr.Start(0, 0, 60, 90)
	tr.Start(0, 0, 64, 80)
	assert.True(t, tr.Playing())
	tr.End(480, 0, 60)
	tr.Start(480, 0, 64, 0) // velocity 0 ends the note
	tr.End(500, 0, 67)      // stray
	assert.False(t, tr.Playing())

	events := tr.Events()
	require.Len(t, events, 2)
	assert := assert.New(t)
	assert.Equal(uint8(64), events[0].Pitch)
	assert.Equal(0, events[0].ID)
	assert.Equal(2, events[0].TrackID)
	assert.Equal(int64(480), events[0].Duration)
	assert.Equal(uint8(60), events[1].Pitch)
	assert.Equal(uint8(90), events[1].Velocity)
}

func TestNoteTrackerRestrikeClosesOldest(t *testing.T) {
	tr := NewNoteTracker(0)
	tr.Start(0, 1, 60, 100)
	tr.Start(100, 1, 60, 50)
	tr.End(200, 1, 60)
	tr.Flush(300)
	events := tr.Events()
	require.Len(t, events, 2)
	assert.Equal(t, int64(200), events[0].Duration)
	assert.Equal(t, int64(100), events[1].Onset)
	assert.Equal(t, int64(200), events[1].Duration)
	assert.Equal(t, uint8(1), events[1].Channel)
}
