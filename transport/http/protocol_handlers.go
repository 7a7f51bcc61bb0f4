package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/service"
)

// ProtocolHandlers expose the three protocol phases as stateless endpoints
type ProtocolHandlers struct {
	authService *service.AuthService
}

// NewProtocolHandlers creates new protocol handlers
func NewProtocolHandlers(authService *service.AuthService) *ProtocolHandlers {
	return &ProtocolHandlers{authService: authService}
}

type issueChallengeRequest struct {
	ClaimedAddress string `json:"claimedAddress"`
}

type issueChallengeResponse struct {
	PublicParameters  core.PublicParameters  `json:"publicParameters"`
	PrivateParameters core.PrivateParameters `json:"privateParameters"`
}

type evaluateSessionRequest struct {
	Transcript core.Transcript `json:"transcript"`
}

type evaluateSessionResponse struct {
	Decision core.Decision `json:"decision"`
}

type verifyResponseRequest struct {
	PrivateParameters *core.PrivateParameters `json:"privateParameters"`
	Signature         string                  `json:"signature"`
}

type verifyResponseResponse struct {
	Verified bool `json:"verified"`
}

// IssueChallenge handles the challenge phase
func (h *ProtocolHandlers) IssueChallenge(c *gin.Context) {
	var req issueChallengeRequest
	// An unreadable body carries no identity claim either
	_ = c.ShouldBindJSON(&req)

	challenge, err := h.authService.IssueChallenge(req.ClaimedAddress)
	if err != nil {
		if errors.Is(err, core.ErrMissingIdentityClaim) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "MissingIdentityClaim"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, issueChallengeResponse{
		PublicParameters:  challenge.Public(),
		PrivateParameters: challenge.Private(),
	})
}

// EvaluateSession handles the decision phase. It never fails: a body that
// cannot be read is evaluated as an empty transcript.
func (h *ProtocolHandlers) EvaluateSession(c *gin.Context) {
	var req evaluateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Transcript = nil
	}

	c.JSON(http.StatusOK, evaluateSessionResponse{
		Decision: h.authService.EvaluateSession(req.Transcript),
	})
}

// VerifyResponse handles the verification phase. It never fails: a body that
// cannot be read verifies as false.
func (h *ProtocolHandlers) VerifyResponse(c *gin.Context) {
	var req verifyResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, verifyResponseResponse{Verified: false})
		return
	}

	c.JSON(http.StatusOK, verifyResponseResponse{
		Verified: h.authService.VerifyResponse(req.PrivateParameters, req.Signature),
	})
}
