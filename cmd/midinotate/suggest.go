package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/divVerent/midinotate/internal/file"
	"github.com/divVerent/midinotate/internal/transcribe"
)

var suggestOutput string

func init() {
	suggestCmd.Flags().StringVarP(&suggestOutput, "output", "o", "", "options file to write; defaults to stdout")
	rootCmd.AddCommand(suggestCmd)
}

var suggestCmd = &cobra.Command{
	Use:   "suggest INPUT.mid",
	Short: "Writes an options file with per-track suggestions for a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile := args[0]
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("could not read %v: %w", inputFile, err)
		}
		pass, err := passphrase(inputFile)
		if err != nil {
			return err
		}
		in, err := file.ReadInput(inputFile, data, pass, false, logger)
		if err != nil {
			return err
		}
		for i := range in.Tracks {
			tr := &in.Tracks[i]
			p := transcribe.AnalyzePerformance(in, tr)
			logger.Info("track", "id", tr.ID, "name", tr.Name, "notes", p.Notes, "on_grid", fmt.Sprintf("%.2f", p.OnGrid), "human", p.Human)
		}
		if suggestOutput == "" {
			options := file.Suggested(inputFile, data, in)
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2) // Match yq.
			if err := enc.Encode(options); err != nil {
				return fmt.Errorf("could not encode options: %w", err)
			}
			return enc.Close()
		}
		rel, err := filepath.Rel(filepath.Dir(suggestOutput), inputFile)
		if err != nil {
			rel = inputFile
		}
		return file.WriteOptions(suggestOutput, file.Suggested(rel, data, in))
	},
}
