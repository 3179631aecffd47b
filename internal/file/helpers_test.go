package file

import (
	"bytes"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"
)

const ppq = 480

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// build collects track messages at absolute ticks, in order.
type build struct {
	t  smf.Track
	at uint32
}

func (b *build) put(tick uint32, msg []byte) *build {
	b.t.Add(tick-b.at, msg)
	b.at = tick
	return b
}

func (b *build) done() smf.Track {
	b.t.Close(0)
	return b.t
}

func midOf(t *testing.T, tracks ...smf.Track) *smf.SMF {
	t.Helper()
	mid := smf.NewSMF1()
	mid.TimeFormat = smf.MetricTicks(ppq)
	for _, tr := range tracks {
		require.NoError(t, mid.Add(tr))
	}
	return mid
}

func bytesOf(t *testing.T, mid *smf.SMF) []byte {
	t.Helper()
	var b bytes.Buffer
	_, err := mid.WriteTo(&b)
	require.NoError(t, err)
	return b.Bytes()
}
