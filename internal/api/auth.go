package api

import (
	"net/http"

	"github.com/agroloop/agroloop/internal/domain"
)

// ─── Auth API ───────────────────────────────────────────────────────────────
//
// POST   /api/auth/signup   create an account and sign in
// POST   /api/auth/signin   sign in
// POST   /api/auth/signout  end the session
// DELETE /api/auth/account  delete the account and its data
// GET    /api/auth/me       current user

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := s.app.Session.SignUp(req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := s.app.Session.SignIn(req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Session.SignOut(); err != nil {
		writeDomainError(w, err)
		return
	}
	s.app.Chat.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.app.Session.DeleteAccount(req.Password); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.app.Session.Current()
	if !ok {
		writeDomainError(w, domain.ErrNotSignedIn)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
