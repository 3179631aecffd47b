package file

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/divVerent/midinotate/internal/transcribe"
)

// Format is an output format of the score tree.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
	MIDI Format = "midi"
)

// FormatOf picks the format from a file name; unknown extensions are YAML.
func FormatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return JSON
	case ".mid", ".midi", ".smf":
		return MIDI
	default:
		return YAML
	}
}

// WriteScore encodes the score in the given format.
// MIDI needs the input for its tempo map.
func WriteScore(w io.Writer, format Format, s *transcribe.Score, in *transcribe.Input) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2) // Match yq.
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("could not encode score: %w", err)
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("could not encode score: %w", err)
		}
		return nil
	case MIDI:
		mid, err := Encode(s, in)
		if err != nil {
			return err
		}
		if _, err := mid.WriteTo(w); err != nil {
			return fmt.Errorf("could not write MIDI: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// SaveScore writes the score to a file, choosing the format from its name.
func SaveScore(name string, s *transcribe.Score, in *transcribe.Input) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create %v: %w", name, err)
	}
	if err := WriteScore(f, FormatOf(name), s, in); err != nil {
		f.Close()
		return fmt.Errorf("could not write %v: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close %v: %w", name, err)
	}
	return nil
}
