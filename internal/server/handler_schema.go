package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/goramble/pkg/model"
)

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	level := chi.URLParam(r, "level")
	if level == "" || level == "document" {
		respondOK(w, reqID, s.workspace.Schemas().Document())
		return
	}
	sch, err := s.workspace.Schemas().LevelSchema(model.Level(level))
	if err != nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("level", level))
		return
	}
	respondOK(w, reqID, sch)
}
