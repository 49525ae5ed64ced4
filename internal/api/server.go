// Package api exposes the engine over HTTP+JSON: start, interact,
// report, cleanup. Errors use the fixed shape {"success":false,
// "error":...} with 404 for unknown sessions, 400 for malformed
// actions or payloads, and 500 for internal failures.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"ethoscope/internal/logging"
	"ethoscope/internal/session"
	"ethoscope/internal/sim"
)

// Server binds HTTP routes to the engine.
type Server struct {
	engine *sim.Engine
	log    *slog.Logger
}

// NewServer wraps an engine.
func NewServer(engine *sim.Engine) *Server {
	return &Server{engine: engine, log: logging.New("api")}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods("GET")
	r.HandleFunc("/sessions", s.start).Methods("POST")
	r.HandleFunc("/sessions/{id}/interact", s.interact).Methods("POST")
	r.HandleFunc("/sessions/{id}/report", s.report).Methods("GET")
	r.HandleFunc("/sessions/{id}", s.cleanup).Methods("DELETE")
	return r
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the error taxonomy onto status codes.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sim.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrMalformedEvent),
		errors.Is(err, session.ErrInvalidTransition):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error("internal failure", "err", err)
	}
	writeJSON(w, status, errorResponse{Success: false, Error: err.Error()})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.engine.Len()})
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	var inputs sim.LoanInputs
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Success: false, Error: "invalid JSON body: " + err.Error()})
		return
	}
	res, err := s.engine.Start(inputs)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type interactRequest struct {
	InteractionType string         `json:"interactionType"`
	Payload         map[string]any `json:"payload"`
}

func (s *Server) interact(w http.ResponseWriter, r *http.Request) {
	var req interactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Success: false, Error: "invalid JSON body: " + err.Error()})
		return
	}
	res, err := s.engine.Interact(mux.Vars(r)["id"], req.InteractionType, req.Payload)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	rep, err := s.engine.Report(mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Cleanup(mux.Vars(r)["id"]); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
