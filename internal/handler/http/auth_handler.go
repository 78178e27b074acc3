package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/petite-maison/internal/audit"
	"github.com/vasiliy-maslov/petite-maison/internal/auth"
	"github.com/vasiliy-maslov/petite-maison/internal/user"
)

type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=100"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

type UserResponse struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	DisplayName *string     `json:"display_name"`
	AvatarURL   *string     `json:"avatar_url"`
	Roles       []user.Role `json:"roles"`
	CreatedAt   time.Time   `json:"created_at"`
}

type AuthResponse struct {
	auth.TokenPair
	User UserResponse `json:"user"`
}

func newUserResponse(u *user.User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []user.Role{}
	}
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Roles:       roles,
		CreatedAt:   u.CreatedAt,
	}
}

type AuthHandler struct {
	auth     auth.Service
	users    user.Service
	audit    audit.Recorder
	validate *validator.Validate
}

func NewAuthHandler(authService auth.Service, users user.Service, recorder audit.Recorder) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		users:    users,
		audit:    recorder,
		validate: validator.New(),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	sess, err := h.auth.Register(r.Context(), req.Email, req.Password, req.DisplayName, clientIP(r))
	if err != nil {
		if errors.Is(err, user.ErrEmailExists) {
			respondWithError(w, http.StatusConflict, "Email already exists")
			return
		}
		respondWithServiceError(w, err, "Failed to register user")
		return
	}

	respondWithJSON(w, http.StatusCreated, AuthResponse{TokenPair: sess.Tokens, User: newUserResponse(sess.User)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in")
		return
	}

	respondWithJSON(w, http.StatusOK, AuthResponse{TokenPair: sess.Tokens, User: newUserResponse(sess.User)})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	sess, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondWithServiceError(w, err, "Failed to refresh session")
		return
	}

	respondWithJSON(w, http.StatusOK, AuthResponse{TokenPair: sess.Tokens, User: newUserResponse(sess.User)})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		respondWithServiceError(w, err, "Failed to log out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me serves both GET /me and GET /me/profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	u, err := h.users.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get user profile")
		return
	}

	respondWithJSON(w, http.StatusOK, newUserResponse(u))
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), identity.UserID, user.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update profile")
		return
	}

	details := map[string]any{}
	if req.DisplayName != nil {
		details["display_name"] = *req.DisplayName
	}
	if req.AvatarURL != nil {
		details["avatar_url"] = *req.AvatarURL
	}
	h.audit.Record(r.Context(), audit.Entry{
		UserID:     u.ID,
		Action:     audit.ActionProfileUpdate,
		EntityType: "user",
		EntityID:   u.ID.String(),
		Details:    details,
		IPAddress:  clientIP(r),
	})

	log.Info().Stringer("user_id", u.ID).Msg("Profile updated")
	respondWithJSON(w, http.StatusOK, newUserResponse(u))
}
