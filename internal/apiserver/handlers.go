package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/klubi/smolmind/internal/agent"
	"github.com/klubi/smolmind/internal/model"
	"github.com/klubi/smolmind/internal/store"
	"github.com/klubi/smolmind/internal/tools"
	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeJSON serialises data as JSON and writes it to the response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes a JSON error envelope to the response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps err onto an HTTP status and writes it.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tools.ErrValidation), errors.Is(err, tools.ErrIsADirectory):
		return http.StatusBadRequest
	case errors.Is(err, tools.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, tools.ErrUnknownTool), errors.Is(err, tools.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, tools.ErrExecution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, agent.ErrEmptyReply), errors.Is(err, model.ErrEmptyOutput):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, tools.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body into target. An empty body
// leaves target untouched.
func decodeBody(r *http.Request, target interface{}) error {
	err := json.NewDecoder(r.Body).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Catalogue
// ---------------------------------------------------------------------------

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.core.AvailableAgents())
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.core.Tools().Infos())
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	args := map[string]any{}
	if err := decodeBody(r, &args); err != nil {
		s.writeError(w, http.StatusBadRequest, "arguments must be a JSON object: "+err.Error())
		return
	}

	output, err := s.core.Tools().Call(r.Context(), name, args, s.core.ToolContext())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v1alpha1.ToolCallResult{Tool: name, Output: output})
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req v1alpha1.SessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.Contains(req.Name, "/") {
		s.writeError(w, http.StatusBadRequest, "session name must not contain '/'")
		return
	}

	conv, err := s.convs.New(req.Name)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	convs, err := s.convs.List()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]v1alpha1.SessionSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.Summary())
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	conv, err := s.convs.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.convs.Delete(id); err != nil {
		s.writeErr(w, err)
		return
	}
	s.forgetSession(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateTurn runs one turn. Turns of the same session are serialised;
// the history is saved only when the turn succeeds.
func (s *Server) handleCreateTurn(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req v1alpha1.TurnRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.convs.Get(id)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	state := agent.NewState(conv.History...)
	turn, err := s.core.ProcessTurn(r.Context(), req.Text, state)
	if err != nil {
		s.logger.Warn("turn failed", zap.String("session", id), zap.Error(err))
		s.writeErr(w, err)
		return
	}

	conv.History = state.History
	if err := s.convs.Save(conv); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, turn)
}
