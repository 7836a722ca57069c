package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hassan-nahid/school-of-music-server/logger"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateToken(email string) (string, error)
}

type AuthController struct {
	tokens TokenIssuer
}

func NewAuthController(tokens TokenIssuer) *AuthController {
	return &AuthController{tokens: tokens}
}

type tokenRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// IssueToken handles POST /jwt.
func (ac *AuthController) IssueToken(ctx *gin.Context) {
	var req tokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	token, err := ac.tokens.GenerateToken(req.Email)
	if err != nil {
		logger.Error(ctx, "Failed to sign token", err, zap.String("email", req.Email))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"token": token})
}
