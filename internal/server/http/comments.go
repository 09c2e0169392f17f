package httpserver

import "net/http"

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	cs, err := s.comments.List(r.Context())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, cs, s.log)
}

func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "commentId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	c, err := s.comments.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, c, s.log)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	var req commentRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	c, err := s.comments.Create(r.Context(), me.ID, req.Text)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, c, s.log)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	id, err := pathUUID(r, "commentId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	c, err := s.comments.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	if err := ownerOrAdmin(me, c.AuthorID); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	if err := s.comments.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
