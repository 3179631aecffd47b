package file

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/divVerent/midinotate/internal/transcribe"
)

// Options describe one import: where the music comes from and how each track is read.
type Options struct {
	InputFile       string `yaml:"input_file"`
	InputFileSHA256 string `yaml:"input_file_sha256,omitempty"`
	// PreQuantize runs the input through the gomidi quantizer before decoding.
	PreQuantize bool `yaml:"pre_quantize,omitempty"`
	// Suggest derives per-track defaults from the performance before the overlays apply.
	Suggest  bool                       `yaml:"suggest,omitempty"`
	Defaults transcribe.Overlay         `yaml:"defaults,omitempty"`
	Tracks   map[int]transcribe.Overlay `yaml:"tracks,omitempty"`
}

// Base returns the config every track starts from.
func (o *Options) Base() transcribe.Config {
	return o.Defaults.Apply(transcribe.DefaultConfig())
}

// Configs returns the config of every track of in.
func (o *Options) Configs(in *transcribe.Input) map[int]transcribe.Config {
	base := o.Base()
	var configs map[int]transcribe.Config
	if o.Suggest {
		configs = transcribe.Suggest(in, base)
	} else {
		configs = make(map[int]transcribe.Config, len(in.Tracks))
		for _, t := range in.Tracks {
			configs[t.ID] = o.Defaults.Apply(transcribe.DefaultConfig())
		}
	}
	for id, overlay := range o.Tracks {
		if c, found := configs[id]; found {
			configs[id] = overlay.Apply(c)
		}
	}
	return configs
}

// Suggested returns options for a new input file, with the suggestions of
// every track written as overlays over the defaults.
func Suggested(inputFile string, data []byte, in *transcribe.Input) *Options {
	o := &Options{
		InputFile:       inputFile,
		InputFileSHA256: fmt.Sprintf("%x", sha256.Sum256(data)),
	}
	base := transcribe.DefaultConfig()
	for id, c := range transcribe.Suggest(in, base) {
		d := transcribe.Diff(base, c)
		if d == (transcribe.Overlay{}) {
			continue
		}
		if o.Tracks == nil {
			o.Tracks = map[int]transcribe.Overlay{}
		}
		o.Tracks[id] = d
	}
	return o
}

func ReadOptions(fsys fs.FS, optionsFile string) (*Options, error) {
	f, err := fsys.Open(optionsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", optionsFile, err)
	}
	defer f.Close()
	var options Options
	err = yaml.NewDecoder(f).Decode(&options)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", optionsFile, err)
	}
	return &options, nil
}

func WriteOptions(optionsFile string, options *Options) (err error) {
	f, err := os.Create(optionsFile)
	if err != nil {
		return fmt.Errorf("could not recreate %v: %w", optionsFile, err)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2) // Match yq.
	return enc.Encode(options)
}
