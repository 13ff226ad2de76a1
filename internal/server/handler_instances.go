package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/goramble/pkg/model"
)

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireStore(w, reqID) {
		return
	}
	opts, apiErr := listOptions(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	insts, total, err := s.store.ListInstances(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondList(w, reqID, insts, pagination(opts, total))
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireStore(w, reqID) {
		return
	}
	id := chi.URLParam(r, "id")

	inst, err := s.store.GetInstance(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if inst == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("instance", id))
		return
	}
	respondOK(w, reqID, inst)
}
