package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/service"
)

// AuthHandlers contains HTTP handlers for the login flow
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

type challengeResponse struct {
	AttemptID string    `json:"attempt_id"`
	Message   string    `json:"message"`
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newChallengeResponse(ch *service.AttemptChallenge) challengeResponse {
	return challengeResponse{
		AttemptID: ch.AttemptID,
		Message:   ch.Public.Message,
		Address:   ch.Public.ClaimedAddress,
		ExpiresAt: ch.ExpiresAt,
	}
}

func (h *AuthHandlers) tokenResponse(access, refresh string) gin.H {
	return gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    int(h.authService.AccessTTL().Seconds()),
	}
}

// Challenge starts a login attempt
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	challenge, err := h.authService.StartAttempt(c.Request.Context(), req.Address)
	if err != nil {
		if errors.Is(err, core.ErrMissingIdentityClaim) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing wallet address"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, newChallengeResponse(challenge))
}

// Login answers the pending challenge of an attempt
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		AttemptID string `json:"attempt_id" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.authService.Respond(c.Request.Context(), req.AttemptID, req.Signature)
	if err != nil {
		if errors.Is(err, core.ErrUnknownAttempt) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown or expired login attempt"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		return
	}

	switch result.Decision {
	case core.DecisionAccept:
		c.JSON(http.StatusOK, h.tokenResponse(result.AccessToken, result.RefreshToken))

	case core.DecisionReject:
		c.JSON(http.StatusForbidden, gin.H{
			"error":    "Authentication denied",
			"decision": result.Decision,
		})

	default:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid signature",
			"decision":  result.Decision,
			"challenge": newChallengeResponse(result.Challenge),
		})
	}
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		default:
			c.Error(err)
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, h.tokenResponse(accessToken, refreshToken))
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, core.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	// User address is set by the auth middleware
	address, exists := c.Get(userAddressKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
	})
}

// Authorize confirms the bearer token is valid
func (h *AuthHandlers) Authorize(c *gin.Context) {
	address, exists := c.Get(userAddressKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"address":    address,
	})
}
