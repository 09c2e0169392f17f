package httpserver

import (
	"net/http"
	"strconv"

	"github.com/and161185/keepsake/internal/errs"
)

// handleListTags returns every tag, or the most used ones with ?top=N.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, errs.New(errs.ErrValidation, "Bad top"), s.log)
			return
		}
		tags, err := s.tags.Top(r.Context(), n)
		if err != nil {
			writeError(w, r, err, s.log)
			return
		}
		writeJSON(w, http.StatusOK, tags, s.log)
		return
	}
	tags, err := s.tags.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, tags, s.log)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	t, err := s.tags.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, t, s.log)
}
