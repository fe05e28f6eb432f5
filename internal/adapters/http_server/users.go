package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"travel_booking/internal/domain"
)

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=120"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (r *signUpRequest) normalize() {
	r.Email = normEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

func (r *loginRequest) normalize() { r.Email = normEmail(r.Email) }
func (r *resetRequest) normalize() { r.Email = normEmail(r.Email) }

type loginResponse struct {
	User         domain.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

func (h *Handlers) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, tok, err := h.Users.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		User: u, AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, ExpiresAt: tok.ExpiresAt,
	})
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.SignOut(r.Context(), session(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resetPassword always answers 202 so the endpoint does not reveal which
// emails have accounts.
func (h *Handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Users.ResetPassword(r.Context(), req.Email); err != nil && !isClientErr(err) {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func isClientErr(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalid)
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	u, ok, err := h.Users.Get(r.Context(), session(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) myStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Users.Stats(r.Context(), session(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	out, err := h.Users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageOf(out))
}

func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), session(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) adminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Compute(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
