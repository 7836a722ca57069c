package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hassan-nahid/school-of-music-server/errors"
	"github.com/hassan-nahid/school-of-music-server/middleware"
	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/services"
)

// respondError renders a service error. Settlement failures also report the
// steps that were committed and the steps that were undone.
func respondError(ctx *gin.Context, svcErr *services.ServiceError) {
	body := gin.H{"error": svcErr.Message, "kind": svcErr.Kind}
	if svcErr.CommittedSteps != nil || svcErr.CompensatedSteps != nil {
		body["committedSteps"] = svcErr.CommittedSteps
		body["compensatedSteps"] = svcErr.CompensatedSteps
	}
	ctx.AbortWithStatusJSON(svcErr.StatusCode, body)
}

func badRequest(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
}

// principal returns the authenticated caller or aborts with 401.
func principal(ctx *gin.Context) (models.Principal, bool) {
	p, ok := middleware.GetPrincipal(ctx)
	if !ok {
		apperrors.Abort(ctx, apperrors.ErrUnauthorized)
	}
	return p, ok
}
