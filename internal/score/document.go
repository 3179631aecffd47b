// Package score holds the destination score of imports, with undo and redo.
package score

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/divVerent/midinotate/internal/transcribe"
)

// ErrNothing is returned when there is no revision to step to.
var ErrNothing = errors.New("nothing to undo or redo")

// Revision is one installed score tree.
type Revision struct {
	ID    uuid.UUID
	Score *transcribe.Score
}

// Document is the score of one editor. The zero revision is the empty score before any import.
type Document struct {
	mu      sync.Mutex
	history []Revision
	// at is the index of the current revision, -1 before the first install.
	at     int
	logger *log.Logger
}

func New(logger *log.Logger) *Document {
	if logger == nil {
		logger = log.Default()
	}
	return &Document{at: -1, logger: logger}
}

// Install makes s the current score in one step and drops the redo history.
// The tree must pass its structural check; on any error the document is unchanged.
func (d *Document) Install(ctx context.Context, s *transcribe.Score) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	if s == nil {
		return uuid.Nil, errors.New("cannot install a nil score")
	}
	if err := s.Check(); err != nil {
		return uuid.Nil, fmt.Errorf("refusing broken score: %w", err)
	}
	rev := Revision{ID: uuid.New(), Score: s}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = append(d.history[:d.at+1], rev)
	d.at++
	d.logger.Info("installed score", "revision", rev.ID, "parts", len(s.Parts), "measures", len(s.Bars))
	return rev.ID, nil
}

// Current returns the current revision; ok is false for the empty score.
func (d *Document) Current() (rev Revision, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.at < 0 {
		return Revision{}, false
	}
	return d.history[d.at], true
}

// Undo steps back one revision.
func (d *Document) Undo() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.at < 0 {
		return ErrNothing
	}
	d.at--
	d.logger.Debug("undo", "at", d.at)
	return nil
}

// Redo steps forward one revision.
func (d *Document) Redo() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.at+1 >= len(d.history) {
		return ErrNothing
	}
	d.at++
	d.logger.Debug("redo", "at", d.at)
	return nil
}

// Len is the number of installed revisions, including undone ones.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.history)
}
