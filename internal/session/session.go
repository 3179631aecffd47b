// Package session is one import dialog: a cached raw input, the options the
// user edits, previews and the one-way Apply or Cancel at the end.
package session

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/divVerent/midinotate/internal/transcribe"
)

type State int

const (
	Editing State = iota
	Applied
	Cancelled
)

var stateNames = []string{"editing", "applied", "cancelled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("invalid session state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(text []byte) error {
	i := slices.Index(stateNames, string(text))
	if i < 0 {
		return fmt.Errorf("unknown session state %q", text)
	}
	*s = State(i)
	return nil
}

// Sink receives the finished score tree. Install is all or nothing.
type Sink interface {
	Install(ctx context.Context, s *transcribe.Score) (uuid.UUID, error)
}

// Result is what an Apply committed.
type Result struct {
	Revision    uuid.UUID               `json:"revision"`
	Score       *transcribe.Score       `json:"-"`
	Diagnostics []transcribe.Diagnostic `json:"diagnostics"`
}

var (
	// ErrUnknownTrack is returned for track IDs the input does not have.
	ErrUnknownTrack = errors.New("unknown track")
	// ErrInterrupted is returned by an Apply that an edit or Cancel overtook.
	ErrInterrupted = errors.New("interrupted by an edit or cancel")
)

type Session struct {
	ID     uuid.UUID
	logger *log.Logger

	// applyMu serializes Apply; mu guards everything else.
	applyMu sync.Mutex

	mu       sync.Mutex
	raw      *transcribe.Input
	base     transcribe.Config
	start    map[int]transcribe.Config
	own      map[int]bool // start came from the options, not from base
	overlays map[int]transcribe.Overlay
	state    State

	// Derived state; dropped on every edit and on Cancel.
	preview       *transcribe.Score
	previewFor    map[int]transcribe.Config
	applied       *Result
	appliedFor    map[int]transcribe.Config
	appliedLayout transcribe.Config
	previewLayout transcribe.Config

	// gen counts edits and cancels; abort stops the Apply in flight.
	gen   uint64
	abort context.CancelFunc
}

// New starts a session on a decoded input. configs holds the starting
// config of tracks that do not use base, as derived from an options file.
func New(in *transcribe.Input, base transcribe.Config, configs map[int]transcribe.Config, logger *log.Logger) (*Session, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	id := uuid.New()
	s := &Session{
		ID:       id,
		logger:   logger.With("session", id.String()[:8]),
		raw:      in.Clone(),
		base:     base,
		start:    map[int]transcribe.Config{},
		own:      map[int]bool{},
		overlays: map[int]transcribe.Overlay{},
	}
	for _, t := range in.Tracks {
		c, found := configs[t.ID]
		if !found {
			c = base
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config for track %d: %w", t.ID, err)
		}
		s.start[t.ID] = transcribe.Overlay{}.Apply(c)
		s.own[t.ID] = found
	}
	return s, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Input returns the cached raw input. It must not be modified.
func (s *Session) Input() *transcribe.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Base returns the config the bar layout uses and new tracks start from.
func (s *Session) Base() transcribe.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transcribe.Overlay{}.Apply(s.base)
}

// interrupt makes an Apply in flight fail before it installs.
func (s *Session) interrupt() {
	s.gen++
	if s.abort != nil {
		s.abort()
		s.abort = nil
	}
}

// edited drops derived state after any change of options or input.
func (s *Session) edited() {
	s.interrupt()
	s.preview, s.previewFor = nil, nil
	if s.state != Editing {
		s.logger.Debug("back to editing", "from", s.state)
	}
	s.state = Editing
}

// SetConfig makes cfg the base: the bar layout and every track without a
// config of its own from the options use it. Those configs and all per-track
// overlays stay.
func (s *Session) SetConfig(cfg transcribe.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.start {
		if !s.own[id] {
			if err := s.overlays[id].Apply(cfg).Validate(); err != nil {
				return fmt.Errorf("invalid config for track %d: %w", id, err)
			}
		}
	}
	s.base = cfg
	for id := range s.start {
		if !s.own[id] {
			s.start[id] = transcribe.Overlay{}.Apply(cfg)
		}
	}
	s.edited()
	return nil
}

// SetTrackOverlay replaces the per-track changes of one track.
func (s *Session) SetTrackOverlay(track int, o transcribe.Overlay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.start[track]
	if !found {
		return fmt.Errorf("track %d: %w", track, ErrUnknownTrack)
	}
	if err := o.Apply(c).Validate(); err != nil {
		return fmt.Errorf("invalid config for track %d: %w", track, err)
	}
	s.overlays[track] = o
	s.edited()
	return nil
}

// Configs returns the effective config of every track.
func (s *Session) Configs() map[int]transcribe.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configs()
}

func (s *Session) configs() map[int]transcribe.Config {
	out := make(map[int]transcribe.Config, len(s.start))
	for id, c := range s.start {
		out[id] = s.overlays[id].Apply(c)
	}
	return out
}

func sameConfigs(a, b map[int]transcribe.Config) bool {
	if a == nil || len(a) != len(b) {
		return false
	}
	for id, c := range a {
		d, found := b[id]
		if !found || !c.Equal(d) {
			return false
		}
	}
	return true
}

// AddTrack appends a recorded track to the raw input and returns its ID.
// Ticks must be in the resolution of the input.
func (s *Session) AddTrack(tr transcribe.Track) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := 0
	for _, t := range s.raw.Tracks {
		id = max(id, t.ID+1)
	}
	tr = tr.Clone()
	tr.ID = id
	for i := range tr.Events {
		tr.Events[i].TrackID = id
		tr.Events[i].ID = i
	}
	// Running builds keep the previous input.
	raw := *s.raw
	raw.Tracks = append(slices.Clip(raw.Tracks), tr)
	if err := raw.Validate(); err != nil {
		return 0, fmt.Errorf("invalid track: %w", err)
	}
	s.raw = &raw
	s.start[id] = transcribe.Overlay{}.Apply(s.base)
	s.edited()
	s.logger.Info("added track", "track", id, "notes", len(tr.Events))
	return id, nil
}

// build runs every track through its pipeline in parallel and assembles the score.
func (s *Session) build(ctx context.Context, in *transcribe.Input, base transcribe.Config, configs map[int]transcribe.Config) (*transcribe.Score, error) {
	bars, layout := transcribe.Layout(in, base)
	transcribe.DumpBars(s.logger, in, bars)
	parts := make([]*transcribe.Part, len(in.Tracks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range in.Tracks {
		tr := &in.Tracks[i]
		g.Go(func() error {
			p, err := transcribe.NewPipeline(in, tr, bars, configs[tr.ID], s.logger)
			if err != nil {
				return err
			}
			for p.Stage() != transcribe.StageEmitted {
				if err := ctx.Err(); err != nil {
					return err
				}
				p.Step()
			}
			parts[i] = p.Part()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return transcribe.Assemble(bars, parts, layout), nil
}

// Preview builds the score for the current options without committing it.
// An unchanged preview is reused.
func (s *Session) Preview(ctx context.Context) (*transcribe.Score, error) {
	s.mu.Lock()
	in, base, configs := s.raw, s.base, s.configs()
	if s.preview != nil && sameConfigs(s.previewFor, configs) && s.previewLayout.Equal(base) {
		sc := s.preview
		s.mu.Unlock()
		return sc, nil
	}
	s.mu.Unlock()

	sc, err := s.build(ctx, in, base, configs)
	if err != nil {
		return nil, fmt.Errorf("preview failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Only keep it if nothing was edited meanwhile.
	if s.raw == in && sameConfigs(s.configs(), configs) && s.base.Equal(base) {
		s.preview, s.previewFor, s.previewLayout = sc, configs, base
	}
	return sc, nil
}

// Apply builds the score and installs it into sink in one call.
// Applying again without edits returns the earlier result. An edit or Cancel
// while Apply runs makes it fail with ErrInterrupted before anything is installed.
func (s *Session) Apply(ctx context.Context, sink Sink) (*Result, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	in, base, configs := s.raw, s.base, s.configs()
	if s.state == Applied && s.applied != nil && sameConfigs(s.appliedFor, configs) && s.appliedLayout.Equal(base) {
		res := s.applied
		s.mu.Unlock()
		return res, nil
	}
	sc := s.preview
	if sc != nil && !(sameConfigs(s.previewFor, configs) && s.previewLayout.Equal(base)) {
		sc = nil
	}
	gen := s.gen
	ctx, abort := context.WithCancel(ctx)
	defer abort()
	s.abort = abort
	s.mu.Unlock()

	// current reports whether nothing overtook this Apply; it clears abort when done.
	current := func(done bool) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		ok := s.gen == gen
		if ok && done {
			s.abort = nil
		}
		return ok
	}

	if sc == nil {
		var err error
		sc, err = s.build(ctx, in, base, configs)
		if err != nil {
			if !current(true) {
				return nil, fmt.Errorf("apply failed: %w", ErrInterrupted)
			}
			return nil, fmt.Errorf("apply failed: %w", err)
		}
	}
	if !current(false) {
		return nil, fmt.Errorf("apply failed: %w", ErrInterrupted)
	}
	rev, err := sink.Install(ctx, sc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		if err == nil {
			// The sink committed before it saw the interruption.
			s.logger.Warn("score installed by an interrupted apply", "revision", rev)
			return nil, fmt.Errorf("revision %v installed: %w", rev, ErrInterrupted)
		}
		return nil, fmt.Errorf("could not install score: %w", errors.Join(ErrInterrupted, err))
	}
	s.abort = nil
	if err != nil {
		return nil, fmt.Errorf("could not install score: %w", err)
	}
	res := &Result{Revision: rev, Score: sc, Diagnostics: sc.AllDiagnostics()}
	for _, d := range res.Diagnostics {
		s.logger.Warn(d.Message, "kind", d.Kind, "track", d.Track, "measure", d.Measure)
	}
	s.logger.Info("applied", "revision", rev, "diagnostics", len(res.Diagnostics))
	s.applied, s.appliedFor, s.appliedLayout = res, configs, base
	s.preview, s.previewFor = nil, nil
	s.state = Applied
	return res, nil
}

// Cancel discards every derived stage and stops an Apply in flight. The raw
// input stays cached, so the session can be edited and applied again without
// reading the file.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupt()
	s.preview, s.previewFor = nil, nil
	s.applied, s.appliedFor = nil, nil
	s.state = Cancelled
	s.logger.Info("cancelled")
}

// LastResult returns the result of the last Apply, if it still stands.
func (s *Session) LastResult() (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied, s.applied != nil && s.state == Applied
}
