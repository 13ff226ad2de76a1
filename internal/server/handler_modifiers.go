package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/goramble/pkg/model"
	"github.com/me/goramble/pkg/modkit"
)

func (s *Server) handleListModifiers(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	mods := s.modifiers.List()
	data := make([]modkit.Info, len(mods))
	for i, m := range mods {
		data[i] = m.Info()
	}
	respondList(w, reqID, data, &model.Pagination{Total: len(data), Limit: len(data)})
}

func (s *Server) handleGetModifier(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	name := chi.URLParam(r, "name")
	m, err := s.modifiers.Get(name)
	if err != nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("modifier", name))
		return
	}
	respondOK(w, reqID, m.Info())
}
