package main

import (
	"context"
	"os"
	"os/signal"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/divVerent/midinotate/internal/version"
)

var (
	verbose bool
	logger  *charmlog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "midinotate",
	Short:   "Turns MIDI performances into notation",
	Long:    `midinotate quantizes MIDI files and live recordings and writes them out as a score with voices, staves, tuplets and pickups.`,
	Version: version.Version(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := charmlog.InfoLevel
		if verbose {
			level = charmlog.DebugLevel
		}
		logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           level,
			ReportTimestamp: false,
			Prefix:          cmd.Name(),
		})
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every stage and the bar layout")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}
