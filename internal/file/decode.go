package file

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/divVerent/midinotate/internal/transcribe"
)

// PercussionChannel is the General MIDI drum channel, zero based.
const PercussionChannel = 9

// source is one channel of one track of the file.
type source struct {
	track int
	ch    uint8
}

// beatNum derives the beat from the metronome clocks of a time signature.
// Only whole and dotted beats are taken; anything else is left to the meter.
func beatNum(ppq int64, num, denom, cpt uint8) int {
	whole := 4 * ppq
	beat := ppq * int64(cpt) / 24
	if beat <= 0 || (beat*int64(denom))%whole != 0 {
		return 0
	}
	n := int(beat * int64(denom) / whole)
	if (n != 1 && n != 3) || int(num)%n != 0 {
		return 0
	}
	return n
}

// Decode turns a standard MIDI file into one track per source track and channel.
// Tracks are numbered in order of source track, then channel.
func Decode(mid *smf.SMF, logger *log.Logger) (*transcribe.Input, error) {
	ppq, ok := mid.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported time format %v: need metric ticks", mid.TimeFormat)
	}
	if logger == nil {
		logger = log.Default()
	}
	in := &transcribe.Input{TicksPerQuarter: int64(ppq)}
	names := map[int]string{}
	instruments := map[int]string{}
	lyrics := map[int][]transcribe.Lyric{}
	programs := map[source]uint8{}
	trackers := map[source]*transcribe.NoteTracker{}
	var end int64
	err := walk(mid, func(tick int64, track int, msg smf.Message) error {
		end = max(end, tick)
		var ch, key, vel uint8
		var num, denom, cpt, dsqpq uint8
		var text string
		var bpm float64
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			s := source{track, ch}
			tr := trackers[s]
			if tr == nil {
				tr = transcribe.NewNoteTracker(0)
				trackers[s] = tr
			}
			tr.Start(tick, ch, key, vel)
		case msg.GetNoteEnd(&ch, &key):
			if tr := trackers[source{track, ch}]; tr != nil {
				tr.End(tick, ch, key)
			}
		case msg.GetProgramChange(&ch, &vel):
			s := source{track, ch}
			if _, found := programs[s]; !found {
				programs[s] = vel
			}
		case msg.GetMetaTrackName(&text):
			if names[track] == "" {
				names[track] = text
			}
		case msg.GetMetaInstrument(&text):
			if instruments[track] == "" {
				instruments[track] = text
			}
		case msg.GetMetaLyric(&text):
			lyrics[track] = append(lyrics[track], transcribe.Lyric{Tick: tick, Text: text})
		case msg.GetMetaTempo(&bpm):
			in.Tempos = append(in.Tempos, transcribe.Tempo{Tick: tick, BPM: bpm})
		case msg.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq):
			in.TimeSigs = append(in.TimeSigs, transcribe.TimeSig{
				Tick:    tick,
				Num:     int(num),
				Denom:   int(denom),
				BeatNum: beatNum(int64(ppq), num, denom, cpt),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not read events: %w", err)
	}

	sources := make([]source, 0, len(trackers))
	channels := map[int]int{}
	for s := range trackers {
		sources = append(sources, s)
		channels[s.track]++
	}
	slices.SortFunc(sources, func(a, b source) int {
		if a.track != b.track {
			return a.track - b.track
		}
		return int(a.ch) - int(b.ch)
	})
	lyricsTaken := map[int]bool{}
	for id, s := range sources {
		tr := trackers[s]
		if tr.Playing() {
			logger.Warn("notes still held at end of file", "track", s.track, "channel", s.ch+1)
			tr.Flush(end)
		}
		name := names[s.track]
		if channels[s.track] > 1 {
			name = strings.TrimSpace(fmt.Sprintf("%s (ch %d)", name, s.ch+1))
		}
		t := transcribe.Track{
			ID:   id,
			Name: name,
			Instrument: transcribe.Instrument{
				Name:       instruments[s.track],
				Program:    programs[s],
				Percussion: s.ch == PercussionChannel,
			},
			Events: tr.Events(),
		}
		for i := range t.Events {
			t.Events[i].TrackID = id
		}
		// Lyrics stay with the first channel of their track.
		if !lyricsTaken[s.track] {
			t.Lyrics = lyrics[s.track]
			lyricsTaken[s.track] = true
		}
		logger.Debug("decoded track", "track", id, "name", name, "notes", len(t.Events))
		in.Tracks = append(in.Tracks, t)
	}
	// Lyrics of tracks without notes go to the first part.
	if len(in.Tracks) > 0 {
		var orphans []int
		for track := range lyrics {
			if !lyricsTaken[track] {
				orphans = append(orphans, track)
			}
		}
		slices.Sort(orphans)
		for _, track := range orphans {
			in.Tracks[0].Lyrics = append(in.Tracks[0].Lyrics, lyrics[track]...)
		}
		slices.SortStableFunc(in.Tracks[0].Lyrics, func(a, b transcribe.Lyric) int {
			return cmp.Compare(a.Tick, b.Tick)
		})
	}
	return in, nil
}
