package file

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2/smf"
	"gitlab.com/gomidi/quantizer/lib/quantizer"

	"github.com/divVerent/midinotate/internal/transcribe"
)

// decrypt opens an age file encrypted with a passphrase.
func decrypt(data []byte, passphrase string) ([]byte, error) {
	id, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("could not build scrypt identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(data), id)
	if err != nil {
		return nil, fmt.Errorf("could not start decrypting: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not finish decrypting: %w", err)
	}
	return plain, nil
}

// ReadInput decodes the bytes of a MIDI file named name.
// Names ending in .age are decrypted first; preQuantize runs the gomidi quantizer on the file.
func ReadInput(name string, data []byte, passphrase string, preQuantize bool, logger *log.Logger) (*transcribe.Input, error) {
	if logger == nil {
		logger = log.Default()
	}
	if strings.HasSuffix(name, ".age") {
		if passphrase == "" {
			return nil, fmt.Errorf("%v is encrypted and no passphrase was given", name)
		}
		var err error
		data, err = decrypt(data, passphrase)
		if err != nil {
			return nil, fmt.Errorf("could not decrypt %v: %w", name, err)
		}
	}
	if preQuantize {
		var out bytes.Buffer
		if err := quantizer.Quantize(bytes.NewReader(data), &out); err != nil {
			return nil, fmt.Errorf("could not pre-quantize %v: %w", name, err)
		}
		logger.Debug("pre-quantized", "file", name, "before", len(data), "after", out.Len())
		data = out.Bytes()
	}
	mid, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not parse %v: %w", name, err)
	}
	in, err := Decode(mid, logger)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", name, err)
	}
	return in, nil
}

// Project is a loaded import: its options, the decoded input and the config of every track.
type Project struct {
	Options *Options
	Input   *transcribe.Input
	Configs map[int]transcribe.Config
}

// Open loads the options file and its input. The input path is relative to the options file.
// passphrase is asked for encrypted inputs only and may be nil.
// With addChecksum, a missing checksum is written back into the options file.
func Open(optionsFile string, passphrase func(inputFile string) (string, error), addChecksum bool, logger *log.Logger) (*Project, error) {
	dir, base := filepath.Split(optionsFile)
	if dir == "" {
		dir = "."
	}
	options, err := ReadOptions(os.DirFS(dir), base)
	if err != nil {
		return nil, err
	}
	inputFile := options.InputFile
	if !filepath.IsAbs(inputFile) {
		inputFile = filepath.Join(dir, inputFile)
	}
	inBytes, err := os.ReadFile(inputFile)
	if err != nil {
		return nil, fmt.Errorf("could not read %v: %w", inputFile, err)
	}

	sum := fmt.Sprintf("%x", sha256.Sum256(inBytes))
	if options.InputFileSHA256 != "" && options.InputFileSHA256 != sum {
		return nil, fmt.Errorf("mismatching checksum of %v: got %v, want %v", options.InputFile, sum, options.InputFileSHA256)
	}

	var pass string
	if strings.HasSuffix(inputFile, ".age") && passphrase != nil {
		pass, err = passphrase(inputFile)
		if err != nil {
			return nil, err
		}
	}
	in, err := ReadInput(inputFile, inBytes, pass, options.PreQuantize, logger)
	if err != nil {
		return nil, err
	}

	if options.InputFileSHA256 == "" && addChecksum {
		options.InputFileSHA256 = sum
		if err := WriteOptions(optionsFile, options); err != nil {
			return nil, fmt.Errorf("could not encode %v: %w", optionsFile, err)
		}
	}
	return &Project{
		Options: options,
		Input:   in,
		Configs: options.Configs(in),
	}, nil
}
