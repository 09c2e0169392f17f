package httpserver

import (
	"net/http"

	"github.com/and161185/keepsake/internal/errs"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	u, err := s.users.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(*u), s.log)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	tok, u, err := s.users.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Username: u.Username,
		UserID:   u.ID,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
		Token:    tok.AccessToken,
		Expires:  tok.ExpiresAt,
	}, s.log)
}

// handleLogout skips the auth gate so that a second logout of the same
// token reports "already logged out" instead of "not authenticated".
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := tokenFromRequest(r)
	if token == "" {
		writeError(w, r, errs.New(errs.ErrUnauthorized, "User not authenticated"), s.log)
		return
	}
	if err := s.users.Logout(r.Context(), token); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Message: "Logged out"}, s.log)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	us, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	out := make([]userResponse, 0, len(us))
	for _, u := range us {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out, s.log)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "userId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*u), s.log)
}

func (s *Server) handlePatchDescription(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	id, err := pathUUID(r, "userId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	if err := ownerOrAdmin(me, id); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	var req patchDescriptionRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	u, err := s.users.PatchDescription(r.Context(), id, req.Description)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*u), s.log)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	id, err := pathUUID(r, "userId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	if err := ownerOrAdmin(me, id); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
