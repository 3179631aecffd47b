package transcribe

import (
	"fmt"
	"slices"
)

// lowerPriority orders events from the first to drop to the last:
// softest first, then lower pitch, then later ID.
func lowerPriority(a, b QuantizedEvent) int {
	if a.Velocity != b.Velocity {
		return int(a.Velocity) - int(b.Velocity)
	}
	if a.Pitch != b.Pitch {
		return int(a.Pitch) - int(b.Pitch)
	}
	return b.ID - a.ID
}

// assignVoices runs the QUANTIZED to VOICE_ASSIGNED transition.
func (p *Pipeline) assignVoices() {
	for staff := 0; staff < p.staves; staff++ {
		p.assignStaffVoices(staff)
	}
}

func (p *Pipeline) assignStaffVoices(staff int) {
	var idx []int
	for i := range p.events {
		if p.events[i].Staff == staff {
			idx = append(idx, i)
		}
	}
	voices := make([][]int, p.config.MaxVoices)
	last := func(v int) (int, bool) {
		if len(voices[v]) == 0 {
			return -1, false
		}
		return voices[v][len(voices[v])-1], true
	}
	for a := 0; a < len(idx); {
		t := p.events[idx[a]].Onset
		b := a
		for b < len(idx) && p.events[idx[b]].Onset == t {
			b++
		}
		// Events are in pitch-descending order within the group.
		group := idx[a:b]
		a = b

		var occupants []int
		for v := range voices {
			if i, ok := last(v); ok && p.events[i].End() > t {
				occupants = append(occupants, i)
			}
		}
		if excess := len(occupants) + len(group) - p.config.MaxVoices; excess > 0 {
			cands := append(slices.Clone(occupants), group...)
			slices.SortStableFunc(cands, func(x, y int) int {
				return lowerPriority(p.events[x], p.events[y])
			})
			for _, i := range cands[:excess] {
				if v := p.events[i].Voice; v >= 0 {
					voices[v] = voices[v][:len(voices[v])-1]
				}
				p.drop(i, t)
			}
		}
		for _, i := range group {
			if p.events[i].Dropped {
				continue
			}
			for v := range voices {
				if j, ok := last(v); !ok || p.events[j].End() <= t {
					voices[v] = append(voices[v], i)
					p.events[i].Voice = v
					break
				}
			}
		}
	}
}

// drop removes an event from the notation. The raw event is untouched.
func (p *Pipeline) drop(i int, at int64) {
	ev := &p.events[i]
	ev.Dropped = true
	ev.Voice = -1
	bar := p.bars.Index(at)
	p.diags = append(p.diags, Diagnostic{
		Track:   p.track.ID,
		Kind:    VoiceOverflow,
		Measure: bar + 1,
		Tick:    at,
		Event:   ev.ID,
		Message: fmt.Sprintf("more than %d notes at once; dropped pitch %d (velocity %d) from the notation", p.config.MaxVoices, ev.Pitch, ev.Velocity),
	})
	p.logger.Debug("dropped note", "event", ev.ID, "pitch", ev.Pitch, "tick", at)
}
