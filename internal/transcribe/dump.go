package transcribe

import (
	"github.com/charmbracelet/log"
)

// DumpBars logs the bar layout in concise form: one line per run of equal signatures.
func DumpBars(logger *log.Logger, in *Input, b Bars) {
	if len(b) == 0 {
		return
	}
	for _, t := range in.Tempos {
		tick := in.ToInternal(t.Tick)
		bar, beat := b.FromTick(tick)
		logger.Debug("tempo", "measure", bar+1, "beat", beat+1, "tick", tick, "bpm", t.BPM)
	}
	start := 0
	for i := 1; i <= len(b); i++ {
		if i < len(b) && b[i].Num == b[start].Num && b[i].Denom == b[start].Denom && !b[start].Pickup {
			continue
		}
		s := b[start]
		logger.Debug("bars",
			"measure", start+1,
			"tick", s.Begin,
			"count", i-start,
			"num", s.Num,
			"denom", s.Denom,
			"beat", s.BeatNum,
			"pickup", s.Pickup)
		start = i
	}
	logger.Debug("end", "measure", len(b)+1)
}
