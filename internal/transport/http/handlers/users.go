package handlers

import (
	"net/http"

	"github.com/pribylovaa/lostfound-auth/internal/service"
	apierrors "github.com/pribylovaa/lostfound-auth/internal/transport/http/errors"
	"github.com/pribylovaa/lostfound-auth/internal/transport/http/middleware"
)

func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.RegisterUser(r.Context(), service.RegisterInput{
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokensFromUser(user))
}

func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.LoginUser(r.Context(), in.Username, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokensFromUser(user))
}

// RefreshSession принимает refresh-токен в заголовке Authorization.
func (h *Handlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	refreshToken, err := middleware.ExtractBearerToken(r.Header)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.RenewSession(r.Context(), refreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokensFromUser(user))
}

// Хендлеры ниже монтируются за middleware.RequireSession.

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	if err := h.svc.Logout(r.Context(), user); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.UserFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidSessionToken)
		return
	}

	user, err := h.svc.Profile(r.Context(), current.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meFromUser(user))
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, _ := middleware.UserFrom(r.Context())

	updated, err := h.svc.ChangePassword(r.Context(), user, in.OldPassword, in.NewPassword)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokensFromUser(updated))
}

func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	if err := h.svc.DeleteUser(r.Context(), user); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "user deleted"})
}
