package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/divVerent/midinotate/internal/file"
	"github.com/divVerent/midinotate/internal/live"
	"github.com/divVerent/midinotate/internal/score"
	"github.com/divVerent/midinotate/internal/session"
	"github.com/divVerent/midinotate/internal/transcribe"
)

var (
	recordPort     string
	recordBPM      float64
	recordDuration time.Duration
	recordOutput   string
)

// recordResolution is the clock of recordings, in ticks per quarter.
const recordResolution = 480

func init() {
	recordCmd.Flags().StringVar(&recordPort, "port", "", "regular expression to match the MIDI input port")
	recordCmd.Flags().Float64Var(&recordBPM, "bpm", 120, "tempo to notate the recording in")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "stop after this long; default until interrupted")
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "recording.score.yaml", "output file (.yaml, .json or .mid)")
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Records from a MIDI input and transcribes what was played",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := live.FindBestInPort(recordPort, "")
		if err != nil {
			return err
		}
		logger.Info("connecting to", "input", in.String())
		rec, err := live.NewRecorder(recordResolution, recordBPM, logger)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if recordDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, recordDuration)
			defer cancel()
		}
		tr, err := rec.Record(ctx, live.Port{In: in}, in.String())
		if err != nil {
			return err
		}

		input := &transcribe.Input{
			TicksPerQuarter: recordResolution,
			Tempos:          []transcribe.Tempo{rec.Tempo()},
		}
		base := transcribe.DefaultConfig()
		sess, err := session.New(input, base, nil, logger)
		if err != nil {
			return err
		}
		id, err := sess.AddTrack(tr)
		if err != nil {
			return err
		}
		suggested := transcribe.Suggest(sess.Input(), base)
		if err := sess.SetTrackOverlay(id, transcribe.Diff(base, suggested[id])); err != nil {
			return err
		}
		// The recording context is done by now.
		res, err := sess.Apply(context.Background(), score.New(logger))
		if err != nil {
			return err
		}
		return file.SaveScore(recordOutput, res.Score, sess.Input())
	},
}
