package handlers

import (
	"mime"
	"net/http"

	"newsletter-gate/internal/auth"
	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/validation"
	"newsletter-gate/internal/storage"
)

// Auth handlers

// LoginRequest holds admin credentials
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Token string        `json:"token"`
	User  *storage.User `json:"user"`
}

// HandleLogin processes login requests
// @Summary Admin login
// @Description Authenticates an admin and sets the session cookie. The token is also returned for Bearer use.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} Response{data=LoginResponse}
// @Failure 400 {object} Response "Missing credentials"
// @Failure 401 {object} Response "Invalid credentials"
// @Router /api/auth/login [post]
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(r, &req); err != nil {
			h.sendJSONError(w, r, err)
			return
		}
	} else {
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}

	if err := validation.ValidateStruct(&req); err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	h.auth.SetSessionCookie(w, token)
	h.sendJSONResponse(w, LoginResponse{Token: token, User: user})
}

// HandleLogout processes logout requests
// @Summary Admin logout
// @Description Revokes the session token and clears the cookie
// @Tags auth
// @Produce json
// @Success 200 {object} Response
// @Router /api/auth/logout [post]
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			h.sendJSONError(w, r, errors.InternalError("failed to revoke session", err))
			return
		}
	}

	h.auth.ClearSessionCookie(w)
	h.sendJSONResponse(w, nil)
}

// HandleMe returns the logged in admin
// @Summary Current admin
// @Tags auth
// @Produce json
// @Security SessionAuth
// @Success 200 {object} Response{data=auth.Claims}
// @Failure 401 {object} Response
// @Router /api/auth/me [get]
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.sendJSONError(w, r, errors.AuthError("Authentication required"))
		return
	}
	h.sendJSONResponse(w, map[string]interface{}{
		"id":       claims.UserID,
		"username": claims.Username,
	})
}
