package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divVerent/midinotate/internal/file"
	"github.com/divVerent/midinotate/internal/report"
	"github.com/divVerent/midinotate/internal/score"
	"github.com/divVerent/midinotate/internal/session"
)

var (
	importOutput      string
	importAddChecksum bool
	importQuiet       bool
)

func init() {
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "", "output file (.yaml, .json or .mid); defaults to the options file with .score.yaml")
	importCmd.Flags().BoolVar(&importAddChecksum, "add_checksum", false, "automatically add checksum to the options file")
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false, "do not print the import report")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import OPTIONS.yml",
	Short: "Transcribes the input of an options file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		optionsFile := args[0]
		project, err := file.Open(optionsFile, passphrase, importAddChecksum, logger)
		if err != nil {
			return err
		}
		sess, err := session.New(project.Input, project.Options.Base(), project.Configs, logger)
		if err != nil {
			return err
		}
		res, err := sess.Apply(cmd.Context(), score.New(logger))
		if err != nil {
			return err
		}
		out := importOutput
		if out == "" {
			out = strings.TrimSuffix(optionsFile, ".yml") + ".score.yaml"
		}
		if err := file.SaveScore(out, res.Score, project.Input); err != nil {
			return err
		}
		logger.Info("wrote score", "file", out)
		if importQuiet {
			return nil
		}
		if err := report.New(report.Languages(logger)...).Write(os.Stdout, res.Score); err != nil {
			return fmt.Errorf("failed to report: %w", err)
		}
		return nil
	},
}
