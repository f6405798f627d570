// internal/handlers/auth/auth_handler.go
package auth

import (
	"context"
	"errors"
	"net/http"

	"marketlens-service/internal/domain/auth"
	"marketlens-service/internal/middleware"
	xerrors "marketlens-service/internal/pkg/errors"
	"marketlens-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the auth surface the handler needs.
type Service interface {
	Register(ctx context.Context, name, identity, secret string) (*auth.AuthResponse, error)
	Login(ctx context.Context, identity, secret string) (*auth.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) (bool, error)
	Validate(ctx context.Context, accessToken string) (bool, error)
}

type AuthHandler struct {
	authService Service
	logger      *zap.Logger
}

func NewAuthHandler(authService Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Registration ==========

// Register handles principal registration (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req.Name, req.Identity, req.Secret)
	if err != nil {
		if errors.Is(err, xerrors.ErrEmailAlreadyRegistered) {
			response.Error(c, http.StatusBadRequest, "identity already registered", nil)
			return
		}
		h.logger.Error("registration failed",
			zap.String("identity", req.Identity),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ========== Login ==========

// Login authenticates a principal and returns a fresh credential pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Identity, req.Secret)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		h.logger.Error("login failed",
			zap.String("identity", req.Identity),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	h.logger.Info("principal logged in",
		zap.String("principal_id", result.PrincipalID),
	)
	c.JSON(http.StatusOK, result)
}

// ========== Refresh ==========

// Refresh rotates a refresh token into a new credential pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidOrExpiredToken) {
			response.Error(c, http.StatusUnauthorized, "invalid or expired refresh token", nil)
			return
		}
		h.logger.Error("token refresh failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "refresh failed", nil)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ========== Logout ==========

// Logout revokes the session of the presented bearer token
func (h *AuthHandler) Logout(c *gin.Context) {
	accessToken := middleware.ExtractToken(c)
	if accessToken == "" {
		response.Error(c, http.StatusBadRequest, "missing authorization token", nil)
		return
	}

	ok, err := h.authService.Logout(c.Request.Context(), accessToken)
	if err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "logout failed", nil)
		return
	}
	if !ok {
		response.Error(c, http.StatusBadRequest, "session not found", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ========== Validate ==========

// Validate reports whether the presented bearer token is still usable
func (h *AuthHandler) Validate(c *gin.Context) {
	accessToken := middleware.ExtractToken(c)
	if accessToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}

	valid, err := h.authService.Validate(c.Request.Context(), accessToken)
	if err != nil {
		h.logger.Error("token validation failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "validation failed", nil)
		return
	}
	if !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}
