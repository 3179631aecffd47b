// Package live records performed notes from a MIDI input into a raw track.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midinotate/internal/transcribe"
)

// Source delivers MIDI messages stamped with milliseconds since listening began.
type Source interface {
	Listen(recv func(msg midi.Message, ms int32)) (stop func(), err error)
}

// Port is a Source reading a driver input port.
type Port struct {
	In drivers.In
}

func (p Port) Listen(recv func(msg midi.Message, ms int32)) (func(), error) {
	return midi.ListenTo(p.In, recv)
}

// Recorder turns a live performance into a track at a fixed tempo.
type Recorder struct {
	clock  smf.MetricTicks
	bpm    float64
	logger *log.Logger

	mu         sync.Mutex
	tracker    *transcribe.NoteTracker
	last       int64
	program    uint8
	hasProgram bool
	percussion bool
}

// NewRecorder records at ticksPerQuarter resolution, assuming bpm for the clock.
func NewRecorder(ticksPerQuarter int64, bpm float64, logger *log.Logger) (*Recorder, error) {
	if ticksPerQuarter <= 0 || ticksPerQuarter > 0x7FFF {
		return nil, fmt.Errorf("invalid resolution %d", ticksPerQuarter)
	}
	if bpm <= 0 {
		return nil, fmt.Errorf("invalid tempo %v", bpm)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{
		clock:   smf.MetricTicks(ticksPerQuarter),
		bpm:     bpm,
		logger:  logger,
		tracker: transcribe.NewNoteTracker(0),
	}, nil
}

func (r *Recorder) tick(ms int32) int64 {
	return int64(r.clock.Ticks(r.bpm, time.Duration(ms)*time.Millisecond))
}

func (r *Recorder) handle(msg midi.Message, ms int32) {
	var ch, key, vel uint8
	r.mu.Lock()
	defer r.mu.Unlock()
	tick := r.tick(ms)
	r.last = max(r.last, tick)
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		r.tracker.Start(tick, ch, key, vel)
		if ch == 9 {
			r.percussion = true
		}
	case msg.GetNoteEnd(&ch, &key):
		r.tracker.End(tick, ch, key)
	case msg.GetProgramChange(&ch, &vel):
		if !r.hasProgram {
			r.program, r.hasProgram = vel, true
		}
	}
}

// Record listens on src until ctx is done and returns what was played.
// Notes still held at the end are cut there.
func (r *Recorder) Record(ctx context.Context, src Source, name string) (transcribe.Track, error) {
	stop, err := src.Listen(r.handle)
	if err != nil {
		return transcribe.Track{}, fmt.Errorf("could not listen: %w", err)
	}
	r.logger.Info("recording", "name", name, "bpm", r.bpm)
	<-ctx.Done()
	stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tracker.Playing() {
		r.logger.Warn("notes still held at end of recording")
		r.tracker.Flush(r.last)
	}
	tr := transcribe.Track{
		Name: name,
		Instrument: transcribe.Instrument{
			Program:    r.program,
			Percussion: r.percussion,
		},
		Events: r.tracker.Events(),
	}
	r.logger.Info("recorded", "name", name, "notes", len(tr.Events))
	return tr, nil
}

// Tempo returns the tempo map matching the recording clock.
func (r *Recorder) Tempo() transcribe.Tempo {
	return transcribe.Tempo{Tick: 0, BPM: r.bpm}
}
