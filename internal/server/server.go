// Package server exposes import sessions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/divVerent/midinotate/internal/file"
	"github.com/divVerent/midinotate/internal/report"
	"github.com/divVerent/midinotate/internal/score"
	"github.com/divVerent/midinotate/internal/session"
	"github.com/divVerent/midinotate/internal/transcribe"
)

// maxUpload bounds the size of an uploaded MIDI file.
const maxUpload = 16 << 20

type Options struct {
	// PreviewWait is how long config edits settle before a background preview.
	PreviewWait    time.Duration
	AllowedOrigins []string
}

type entry struct {
	session   *session.Session
	previewer *session.Previewer
	stop      context.CancelFunc
}

type Server struct {
	doc     *score.Document
	logger  *log.Logger
	options Options

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

func New(doc *score.Document, options Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if options.PreviewWait <= 0 {
		options.PreviewWait = 300 * time.Millisecond
	}
	if len(options.AllowedOrigins) == 0 {
		options.AllowedOrigins = []string{"*"}
	}
	return &Server{
		doc:      doc,
		logger:   logger,
		options:  options,
		sessions: map[uuid.UUID]*entry{},
	}
}

// Handler returns the routes of the API, wrapped for cross-origin use.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/sessions", s.handleCreate).Methods("POST")
	router.HandleFunc("/sessions/{id}", s.handleGet).Methods("GET")
	router.HandleFunc("/sessions/{id}", s.handleDelete).Methods("DELETE")
	router.HandleFunc("/sessions/{id}/config", s.handleGetConfig).Methods("GET")
	router.HandleFunc("/sessions/{id}/config", s.handlePutConfig).Methods("PUT")
	router.HandleFunc("/sessions/{id}/preview", s.handlePreview).Methods("GET")
	router.HandleFunc("/sessions/{id}/apply", s.handleApply).Methods("POST")
	router.HandleFunc("/sessions/{id}/cancel", s.handleCancel).Methods("POST")
	router.HandleFunc("/score", s.handleScore).Methods("GET")
	router.HandleFunc("/score/undo", s.handleUndo).Methods("POST")
	router.HandleFunc("/score/redo", s.handleRedo).Methods("POST")
	return cors.New(cors.Options{
		AllowedOrigins: s.options.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}).Handler(router)
}

// Close stops every background preview.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		e.stop()
		delete(s.sessions, id)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("could not write response", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.logger.Error("request failed", "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *entry {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, http.StatusNotFound, fmt.Errorf("invalid session id: %w", err))
		return nil
	}
	s.mu.Lock()
	e := s.sessions[id]
	s.mu.Unlock()
	if e == nil {
		s.fail(w, http.StatusNotFound, fmt.Errorf("no session %v", id))
		return nil
	}
	return e
}

func describe(sess *session.Session) SessionResponse {
	in := sess.Input()
	res := SessionResponse{ID: sess.ID, State: sess.State(), Tracks: []TrackInfo{}}
	for _, t := range in.Tracks {
		res.Tracks = append(res.Tracks, TrackInfo{ID: t.ID, Name: t.Name, Instrument: t.Instrument, Notes: len(t.Events)})
	}
	return res
}

// handleCreate starts a session on an uploaded MIDI file. With ?suggest=1
// each track starts from the config its performance suggests.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpload))
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("could not read upload: %w", err))
		return
	}
	in, err := file.ReadInput("upload.mid", body, "", false, s.logger)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	base := transcribe.DefaultConfig()
	var configs map[int]transcribe.Config
	if r.URL.Query().Get("suggest") != "" {
		configs = transcribe.Suggest(in, base)
	}
	sess, err := session.New(in, base, configs, s.logger)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	ctx, stop := context.WithCancel(context.Background())
	e := &entry{
		session:   sess,
		previewer: session.NewPreviewer(ctx, sess, s.options.PreviewWait, nil),
		stop:      stop,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = e
	s.mu.Unlock()
	s.logger.Info("session created", "id", sess.ID, "tracks", len(in.Tracks))
	e.previewer.Touch()
	s.writeJSON(w, http.StatusCreated, describe(sess))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if e := s.lookup(w, r); e != nil {
		s.writeJSON(w, http.StatusOK, describe(e.session))
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(w, r)
	if e == nil {
		return
	}
	e.stop()
	s.mu.Lock()
	delete(s.sessions, e.session.ID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) configOf(sess *session.Session) ConfigResponse {
	return ConfigResponse{Base: sess.Base(), Tracks: sess.Configs()}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if e := s.lookup(w, r); e != nil {
		s.writeJSON(w, http.StatusOK, s.configOf(e.session))
	}
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(w, r)
	if e == nil {
		return
	}
	var req ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("could not decode config: %w", err))
		return
	}
	if req.Base != nil {
		if err := e.session.SetConfig(*req.Base); err != nil {
			s.fail(w, http.StatusBadRequest, err)
			return
		}
	}
	for id, o := range req.Tracks {
		err := e.session.SetTrackOverlay(id, o)
		if errors.Is(err, session.ErrUnknownTrack) {
			s.fail(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			s.fail(w, http.StatusBadRequest, err)
			return
		}
	}
	e.previewer.Touch()
	s.writeJSON(w, http.StatusOK, s.configOf(e.session))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(w, r)
	if e == nil {
		return
	}
	sc, err := e.session.Preview(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(w, r)
	if e == nil {
		return
	}
	res, err := e.session.Apply(r.Context(), s.doc)
	if errors.Is(err, session.ErrInterrupted) {
		s.fail(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ApplyResponse{
		Revision:    res.Revision,
		Summary:     report.Summarize(res.Score),
		Diagnostics: res.Diagnostics,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(w, r)
	if e == nil {
		return
	}
	e.session.Cancel()
	s.writeJSON(w, http.StatusOK, describe(e.session))
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	rev, ok := s.doc.Current()
	if !ok {
		s.fail(w, http.StatusNotFound, errors.New("the score is empty"))
		return
	}
	s.writeJSON(w, http.StatusOK, RevisionResponse{Revision: rev.ID, Score: rev.Score})
}

func (s *Server) step(w http.ResponseWriter, f func() error) {
	if err := f(); err != nil {
		s.fail(w, http.StatusConflict, err)
		return
	}
	rev, ok := s.doc.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, RevisionResponse{Revision: rev.ID, Score: rev.Score})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.step(w, s.doc.Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.step(w, s.doc.Redo)
}
