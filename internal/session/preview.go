package session

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/divVerent/midinotate/internal/transcribe"
)

// Previewer rebuilds the preview of a session once edits stop coming in.
type Previewer struct {
	ctx       context.Context
	session   *Session
	debounced func(f func())
	notify    func(*transcribe.Score, error)

	mu      sync.Mutex
	score   *transcribe.Score
	err     error
	version int
}

// NewPreviewer coalesces calls to Touch within wait into one preview.
// notify, if not nil, is called from the preview goroutine with every result.
func NewPreviewer(ctx context.Context, s *Session, wait time.Duration, notify func(*transcribe.Score, error)) *Previewer {
	return &Previewer{
		ctx:       ctx,
		session:   s,
		debounced: debounce.New(wait),
		notify:    notify,
	}
}

// Touch schedules a preview after the current edit.
func (p *Previewer) Touch() {
	p.debounced(p.run)
}

func (p *Previewer) run() {
	if p.ctx.Err() != nil {
		return
	}
	sc, err := p.session.Preview(p.ctx)
	p.mu.Lock()
	p.score, p.err = sc, err
	p.version++
	p.mu.Unlock()
	if err != nil {
		p.session.logger.Warn("preview failed", "err", err)
	}
	if p.notify != nil {
		p.notify(sc, err)
	}
}

// Latest returns the newest preview and how many previews ran so far.
func (p *Previewer) Latest() (*transcribe.Score, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.score, p.version, p.err
}
