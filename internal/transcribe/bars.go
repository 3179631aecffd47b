package transcribe

import (
	"slices"
	"sort"
)

// Bar is one measure of the layout, in internal ticks.
type Bar struct {
	// Bar position.
	Begin  int64 `yaml:"begin" json:"begin"`
	Length int64 `yaml:"length" json:"length"`
	// Time signature applying to the bar.
	BeatNum int `yaml:"beat_num" json:"beat_num"`
	Num     int `yaml:"num" json:"num"`
	Denom   int `yaml:"denom" json:"denom"`
	// Signature the bar was cut from.
	OrigNum     int `yaml:"orig_num" json:"orig_num"`
	OrigBeatNum int `yaml:"orig_beat_num" json:"orig_beat_num"`
	OrigDenom   int `yaml:"orig_denom" json:"orig_denom"`
	// Pickup marks an anacrusis.
	Pickup bool `yaml:"pickup,omitempty" json:"pickup,omitempty"`
}

func gcd(a, b int64) int64 {
	c := a % b
	if c == 0 {
		return b
	}
	return gcd(b, c)
}

func lcm(a, b int64) int64 {
	return a * b / gcd(a, b)
}

func reduce(wantDenom int64, num, denom *int64) {
	// First run the gcd algorithm.
	g := gcd(*num, *denom)
	*num /= g
	*denom /= g
	// Then increase the denominator back to wantDenom level.
	d := lcm(*denom, wantDenom)
	f := d / *denom
	*num *= f
	*denom *= f
}

// SetToLength shortens or lengthens the bar, keeping the beat unit of its signature.
func (b *Bar) SetToLength(length int64) {
	num64 := int64(b.Num) * length
	denom64 := int64(b.Denom) * b.Length
	reduce(int64(b.OrigDenom), &num64, &denom64)
	b.Num, b.Denom = int(num64), int(denom64)
	b.BeatNum = b.OrigBeatNum * b.Denom / b.OrigDenom
	b.Length = length
}

func (b Bar) BeatLength() int64 {
	return b.NumLength() * int64(b.BeatNum)
}

func (b Bar) NumLength() int64 {
	return b.Length / int64(b.Num)
}

func (b Bar) End() int64 {
	return b.Begin + b.Length
}

// NominalLength is the length of a full bar of the signature the bar was cut from.
func (b Bar) NominalLength() int64 {
	return whole * int64(b.OrigNum) / int64(b.OrigDenom)
}

// Incomplete reports a bar shorter than its signature that is not a pickup.
func (b Bar) Incomplete() bool {
	return !b.Pickup && b.Length < b.NominalLength()
}

// Compound reports a meter with dotted beats such as 6/8.
func (b Bar) Compound() bool {
	return b.OrigBeatNum == 3
}

// evenSimple reports meters like 4/4 whose half-bar coincides with a beat.
func (b Bar) evenSimple() bool {
	beats := b.Length / b.BeatLength()
	return !b.Compound() && beats%2 == 0 && beats >= 4 && b.Length%b.BeatLength() == 0
}

func (b Bar) ToTick(beat, beatNum, beatDenom int) int64 {
	beatLen := b.BeatLength()
	return b.Begin + beatLen*int64(beat) + beatLen*int64(beatNum)/int64(beatDenom)
}

func (b Bar) FromTick(tick int64) float64 {
	beatLen := b.BeatLength()
	return float64(tick-b.Begin) / float64(beatLen)
}

type Bars []Bar

func (b Bars) ToTick(bar, beat, beatNum, beatDenom int) int64 {
	if bar == len(b) && beat == 0 && beatNum == 0 {
		return b[len(b)-1].End()
	}
	return b[bar].ToTick(beat, beatNum, beatDenom)
}

func (b Bars) FromTick(tick int64) (int, float64) {
	i := b.Index(tick)
	return i, b[i].FromTick(tick)
}

// Index returns the bar containing tick; ticks outside the layout map to the first or last bar.
func (b Bars) Index(tick int64) int {
	i := sort.Search(len(b), func(i int) bool {
		return b[i].End() > tick
	})
	if i == len(b) {
		return len(b) - 1
	}
	return i
}

func (b Bars) Begin() int64 {
	return b[0].Begin
}

func (b Bars) End() int64 {
	return b[len(b)-1].End()
}

// defaultBeatNum counts dotted beats in compound meters and single denominator units otherwise.
func defaultBeatNum(num int) int {
	if num%3 == 0 && num > 3 {
		return 3
	}
	return 1
}

type timeSig struct {
	start               int64
	barLen              int64
	beatNum, num, denom int
}

// findBars lays out bars from the time signatures of in until at least end.
func findBars(in *Input, end int64) Bars {
	// Time signatures go on 128th boundaries so that every bar splits into glyphs.
	unit := whole / 128
	sigs := []timeSig{
		{
			start:   0,
			barLen:  whole,
			beatNum: 1,
			num:     4,
			denom:   4,
		},
	}
	for _, s := range in.TimeSigs {
		start := (in.ToInternal(s.Tick) + unit/2) / unit * unit
		if start >= end && start > 0 {
			continue
		}
		beatNum := s.BeatNum
		if beatNum == 0 {
			beatNum = defaultBeatNum(s.Num)
		}
		sigs = append(sigs, timeSig{
			start:   start,
			barLen:  whole * int64(s.Num) / int64(s.Denom),
			beatNum: beatNum,
			num:     s.Num,
			denom:   s.Denom,
		})
	}
	if end <= 0 {
		end = 1
	}
	sigs = append(sigs, timeSig{
		start: end,
		denom: 0,
	})
	// If there are multiple time signatures at the same start time, only keep the LAST one.
	// As CompactFunc keeps the first of a set of duplicates, we first reverse and then call CompactFunc.
	slices.Reverse(sigs)
	slices.SortStableFunc(sigs, func(a, b timeSig) int {
		if a.start < b.start {
			return -1
		}
		if a.start > b.start {
			return +1
		}
		return 0
	})
	sigs = slices.CompactFunc(sigs, func(a, b timeSig) bool {
		return a.start == b.start
	})
	// Now build the bars structure.
	var time int64
	sigsPos := 0
	var b Bars
	for sigsPos+1 < len(sigs) {
		sig := sigs[sigsPos]
		newBar := Bar{
			Begin:       time,
			Length:      sig.barLen,
			BeatNum:     sig.beatNum,
			Num:         sig.num,
			Denom:       sig.denom,
			OrigNum:     sig.num,
			OrigBeatNum: sig.beatNum,
			OrigDenom:   sig.denom,
		}
		nextSig := sigs[sigsPos+1]
		last := sigsPos+2 == len(sigs)
		if time+newBar.Length >= nextSig.start {
			if last {
				// The final bar stays complete so that the music has room to end.
				b = append(b, newBar)
				break
			}
			// Output a partial bar.
			newBar.SetToLength(nextSig.start - time)
			b = append(b, newBar)
			time = nextSig.start
			sigsPos++
			continue
		}
		b = append(b, newBar)
		time += newBar.Length
	}
	return b
}
