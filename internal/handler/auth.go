package handler

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"academy/internal/auth"
	"academy/internal/httpmiddleware"
	"academy/internal/identity"
	"academy/internal/metrics"
)

const (
	maxUsernameLen = 50
	maxPasswordLen = 100
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login checks the failure limiter before looking at the body, so a blocked client
// gets 429 even with correct credentials. Only rejected credentials count as failures.
func (h *Handler) login(c *gin.Context) {
	ctx := c.Request.Context()
	key := httpmiddleware.ClientKey(c)

	blocked, err := h.logins.Blocked(ctx, key)
	if err != nil {
		h.log.Warn().Err(err).Str("client", key).Msg("login limiter unavailable")
	}
	if blocked {
		metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		h.fail(c, errThrottled)
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("Username and password are required"))
		return
	}
	username := strings.TrimSpace(req.Username)
	if utf8.RuneCountInString(username) > maxUsernameLen || utf8.RuneCountInString(req.Password) > maxPasswordLen {
		h.fail(c, badRequest("Invalid input length"))
		return
	}

	u, err := h.users.Authenticate(ctx, username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			if rerr := h.logins.RecordFailure(ctx, key); rerr != nil {
				h.log.Warn().Err(rerr).Str("client", key).Msg("record login failure")
			}
		}
		h.fail(c, err)
		return
	}

	if err := auth.StartSession(c, u.ID); err != nil {
		h.fail(c, err)
		return
	}
	tok, err := auth.Issue(u.ID, string(u.Role), h.jwtIssuer, h.jwtKey, h.accessTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.log.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("login")

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"user":         u,
		"access_token": tok.AccessToken,
		"token_type":   "Bearer",
		"expires_at":   tok.ExpiresAt.Unix(),
	})
}

func (h *Handler) logout(c *gin.Context) {
	if err := auth.EndSession(c); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (h *Handler) me(c *gin.Context) {
	u, _ := auth.CurrentUser(c)
	c.JSON(http.StatusOK, u)
}

func (h *Handler) checkSession(c *gin.Context) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": u})
}

type newUserRequest struct {
	Username string  `json:"username" binding:"required,max=80"`
	Email    string  `json:"email" binding:"required,max=120"`
	Password string  `json:"password" binding:"required"`
	FullName *string `json:"full_name" binding:"omitempty,max=120"`
	Role     string  `json:"role"`
}

func (r newUserRequest) toNewUser() identity.NewUser {
	return identity.NewUser{
		Username: strings.TrimSpace(r.Username),
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
		FullName: r.FullName,
		Role:     identity.Role(r.Role),
	}
}

// register is open to anonymous callers, but only an admin may hand out the admin role.
func (h *Handler) register(c *gin.Context) {
	var req newUserRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if identity.Role(req.Role) == identity.RoleAdmin {
		if u, ok := auth.CurrentUser(c); !ok || !u.IsAdmin() {
			h.fail(c, errForbidden)
			return
		}
	}
	u, err := h.users.Register(c.Request.Context(), req.toNewUser())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": u})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
