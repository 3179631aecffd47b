package file

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func song(t *testing.T) []byte {
	t.Helper()
	var b build
	b.put(0, smf.MetaTrackSequenceName("song"))
	b.put(0, midi.NoteOn(0, 60, 100))
	b.put(ppq, midi.NoteOff(0, 60))
	b.put(ppq, midi.NoteOn(0, 67, 100))
	b.put(2*ppq, midi.NoteOff(0, 67))
	return bytesOf(t, midOf(t, b.done()))
}

func encrypt(t *testing.T, data []byte, passphrase string) []byte {
	t.Helper()
	r, err := age.NewScryptRecipient(passphrase)
	require.NoError(t, err)
	r.SetWorkFactor(10)
	var out bytes.Buffer
	w, err := age.Encrypt(&out, r)
	require.NoError(t, err)
	_, err = io.Copy(w, bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return out.Bytes()
}

func TestReadInputDecrypts(t *testing.T) {
	data := encrypt(t, song(t), "secret")

	in, err := ReadInput("song.mid.age", data, "secret", false, quietLogger())
	require.NoError(t, err)
	require.Len(t, in.Tracks, 1)
	assert.Len(t, in.Tracks[0].Events, 2)

	_, err = ReadInput("song.mid.age", data, "wrong", false, quietLogger())
	assert.Error(t, err)
	_, err = ReadInput("song.mid.age", data, "", false, quietLogger())
	assert.Error(t, err)
}

func TestReadInputRejectsGarbage(t *testing.T) {
	_, err := ReadInput("song.mid", []byte("not a midi file"), "", false, quietLogger())
	assert.Error(t, err)
}

func TestReadInputPreQuantizes(t *testing.T) {
	in, err := ReadInput("song.mid", song(t), "", true, quietLogger())
	require.NoError(t, err)
	var notes int
	for _, tr := range in.Tracks {
		notes += len(tr.Events)
	}
	assert.NotZero(t, notes)
	assert.NoError(t, in.Validate())
}

func TestOpenAddsChecksum(t *testing.T) {
	dir := t.TempDir()
	data := song(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "song.mid"), data, 0o644))
	optionsFile := filepath.Join(dir, "song.yml")
	require.NoError(t, os.WriteFile(optionsFile, []byte("input_file: song.mid\ntracks:\n  0:\n    max_voices: 1\n"), 0o644))

	p, err := Open(optionsFile, nil, true, quietLogger())
	require.NoError(t, err)
	sum := fmt.Sprintf("%x", sha256.Sum256(data))
	assert.Equal(t, sum, p.Options.InputFileSHA256)
	assert.Equal(t, 1, p.Configs[0].MaxVoices)

	written, err := ReadOptions(os.DirFS(dir), "song.yml")
	require.NoError(t, err)
	assert.Equal(t, sum, written.InputFileSHA256)

	// The checksum now pins the input.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "song.mid"), append(data, 0), 0o644))
	_, err = Open(optionsFile, nil, false, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatching checksum")
}

func TestOpenMissingInput(t *testing.T) {
	dir := t.TempDir()
	optionsFile := filepath.Join(dir, "song.yml")
	require.NoError(t, os.WriteFile(optionsFile, []byte("input_file: gone.mid\n"), 0o644))
	_, err := Open(optionsFile, nil, false, quietLogger())
	assert.Error(t, err)
}
