package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/me/goramble/internal/document"
	"github.com/me/goramble/internal/store"
	"github.com/me/goramble/internal/workspace"
	"github.com/me/goramble/pkg/model"
)

type expansionResponse struct {
	Expansion *model.Expansion  `json:"expansion,omitempty"`
	Report    *workspace.Report `json:"report"`
}

// handleCreateExpansion runs the pipeline over a YAML document in the
// request body and stores the result unless dry_run=true.
func (s *Server) handleCreateExpansion(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, reqID, http.StatusRequestEntityTooLarge,
				model.NewValidationError("document exceeds "+strconv.FormatInt(s.maxDocumentBytes, 10)+" bytes"))
			return
		}
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("read body: "+err.Error()))
		return
	}
	if len(body) == 0 {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("request body must contain a YAML document"))
		return
	}

	doc, err := document.Parse(body)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}
	report, err := s.workspace.Setup(r.Context(), doc)
	if err != nil {
		respondDomainError(w, reqID, err)
		return
	}

	resp := expansionResponse{Report: report}
	if r.URL.Query().Get("dry_run") == "true" || s.store == nil {
		respondOK(w, reqID, resp)
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "api"
	}
	exp := store.NewExpansion(source, body)
	exp.Warnings = report.Warnings
	for _, f := range report.Failures {
		exp.Failures = append(exp.Failures, f.Experiment+": "+f.Message)
	}
	if err := s.store.SaveExpansion(r.Context(), exp, report.Instances); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	s.logger.Info("expansion saved", "id", exp.ID, "instances", exp.InstanceCount, "request_id", reqID)
	resp.Expansion = exp
	respondCreated(w, reqID, resp)
}

func (s *Server) handleListExpansions(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireStore(w, reqID) {
		return
	}
	opts, apiErr := listOptions(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	exps, total, err := s.store.ListExpansions(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondList(w, reqID, exps, pagination(opts, total))
}

func (s *Server) handleGetExpansion(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireStore(w, reqID) {
		return
	}
	id := chi.URLParam(r, "id")

	exp, err := s.store.GetExpansion(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if exp == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("expansion", id))
		return
	}
	respondOK(w, reqID, exp)
}

func (s *Server) requireStore(w http.ResponseWriter, reqID string) bool {
	if s.store != nil {
		return true
	}
	respondError(w, reqID, http.StatusServiceUnavailable,
		&model.APIError{Code: model.ErrInternal, Message: "persistence is not configured"})
	return false
}

// listOptions reads limit, offset and the instance filters from the query.
func listOptions(r *http.Request) (model.ListOptions, *model.APIError) {
	q := r.URL.Query()
	opts := model.DefaultListOptions()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, model.NewValidationError("invalid query parameter",
				model.FieldError{Path: p.name, Message: "must be an integer"})
		}
		*p.dst = n
	}
	opts.ExpansionID = q.Get("expansion_id")
	opts.Application = q.Get("application")
	opts.Workload = q.Get("workload")
	opts.Clamp()
	return opts, nil
}

func pagination(opts model.ListOptions, total int) *model.Pagination {
	return &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+opts.Limit < total,
	}
}
