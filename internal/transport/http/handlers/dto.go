package handlers

import (
	"time"

	"github.com/pribylovaa/lostfound-auth/internal/models"
)

// Входные/выходные модели REST.

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// tokensResponse — текущая тройка сессии пользователя.
type tokensResponse struct {
	SessionToken      string `json:"session_token"`
	SessionExpiration string `json:"session_expiration"` // RFC 3339, UTC
	RefreshToken      string `json:"refresh_token"`
}

type meResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func tokensFromUser(u *models.User) tokensResponse {
	return tokensResponse{
		SessionToken:      u.Session.Token,
		SessionExpiration: u.Session.ExpiresAt.UTC().Format(time.RFC3339),
		RefreshToken:      u.Session.RefreshToken,
	}
}

func meFromUser(u *models.User) meResponse {
	return meResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
