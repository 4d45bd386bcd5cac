package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/forumgraph/pkg/buildinfo"
	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/session"
)

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// ViewResponse is returned by every view endpoint.
type ViewResponse struct {
	View  *session.View `json:"view"`
	Graph graph.Graph   `json:"graph"`
}

// GraphList is returned by GET /api/graphs.
type GraphList struct {
	Graphs []string `json:"graphs"`
}

func codeOf(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeInternal
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidConfig:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidName, errors.ErrCodeInvalidGraph:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Write response failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := codeOf(err)
	status := statusFor(code)
	if status >= 500 {
		s.logger.Error("Request failed", "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, status, errorResponse{Code: code, Message: errors.UserMessage(err)})
}

// =============================================================================
// Graphs
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, "ok")
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	names, err := s.cfg.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, GraphList{Graphs: names})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.cfg.Store.Load(r.Context(), chi.URLParam(r, "graph"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

// =============================================================================
// Views
// =============================================================================

// CreateViewRequest is the optional body of POST /api/graphs/{graph}/views.
type CreateViewRequest struct {
	Root          string `json:"root"`
	CollapseDepth *int   `json:"collapse_depth"`
}

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var req CreateViewRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
			return
		}
	}
	if req.CollapseDepth != nil && *req.CollapseDepth < 0 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "collapse_depth must not be negative"))
		return
	}

	v, g, err := s.createView(r.Context(), chi.URLParam(r, "graph"), req.Root, req.CollapseDepth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ViewResponse{View: v, Graph: g})
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	v, e, err := s.loadView(r.Context(), chi.URLParam(r, "view"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.visible(r.Context(), v, e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ViewResponse{View: v, Graph: g})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	v, g, err := s.toggle(r.Context(), chi.URLParam(r, "view"), chi.URLParam(r, "node"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ViewResponse{View: v, Graph: g})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	v, g, err := s.expandAll(r.Context(), chi.URLParam(r, "view"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ViewResponse{View: v, Graph: g})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	v, e, err := s.loadView(r.Context(), chi.URLParam(r, "view"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.visible(r.Context(), v, e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("WebSocket upgrade failed", "err", err)
		return
	}

	c := newClient(s, conn, v.ID, v.Graph)
	s.hub.register(c)
	c.enqueue(visibleMessage(v, g))
	go c.writePump()
	c.readPump(r.Context())
}

// =============================================================================
// Display
// =============================================================================

func (s *Server) handleGetDisplay(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Display.Current())
}

func (s *Server) handlePatchDisplay(w http.ResponseWriter, r *http.Request) {
	var u display.Update
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&u); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode update"))
		return
	}

	// Subscribers hear about it from relayDisplay.
	cfg, ev, err := s.cfg.Display.Apply(u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("Display updated", "field", ev.Field, "old", ev.Old, "new", ev.New)
	s.writeJSON(w, http.StatusOK, cfg)
}
