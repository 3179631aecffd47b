package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/divVerent/midinotate/internal/score"
	"github.com/divVerent/midinotate/internal/server"
)

var (
	serveAddr    string
	serveOrigins []string
	serveWait    time.Duration
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "allowed_origins", nil, "origins allowed to call the API; default any")
	serveCmd.Flags().DurationVar(&serveWait, "preview_wait", 300*time.Millisecond, "how long config edits settle before a background preview")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves import sessions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := server.New(score.New(logger), server.Options{
			PreviewWait:    serveWait,
			AllowedOrigins: serveOrigins,
		}, logger)
		defer srv.Close()
		httpServer := &http.Server{Addr: serveAddr, Handler: srv.Handler()}
		go func() {
			<-cmd.Context().Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
		}()
		logger.Info("listening", "addr", serveAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}
