package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/services"
)

// ClassController handles the class catalogue, approvals and reviews.
type ClassController struct {
	classes services.ClassService
}

func NewClassController(classes services.ClassService) *ClassController {
	return &ClassController{classes: classes}
}

// ListClasses handles GET /classes.
func (cc *ClassController) ListClasses(ctx *gin.Context) {
	classes, svcErr := cc.classes.ListClasses(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, classes)
}

// ListApproved handles GET /classes/approved.
func (cc *ClassController) ListApproved(ctx *gin.Context) {
	classes, svcErr := cc.classes.ListApproved(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, classes)
}

// ListByInstructor handles GET /classes/instructor/:email.
func (cc *ClassController) ListByInstructor(ctx *gin.Context) {
	classes, svcErr := cc.classes.ListByInstructor(ctx.Request.Context(), ctx.Param("email"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, classes)
}

// SubmitClass handles POST /classes (instructor or admin).
func (cc *ClassController) SubmitClass(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var class models.Class
	if err := ctx.ShouldBindJSON(&class); err != nil {
		badRequest(ctx, err)
		return
	}

	id, svcErr := cc.classes.SubmitClass(ctx.Request.Context(), p, &class)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, models.InsertResult{InsertedID: id})
}

// Approve handles PATCH /classes/approved/:id (admin only).
func (cc *ClassController) Approve(ctx *gin.Context) {
	cc.setStatus(ctx, models.ClassApproved)
}

// Deny handles PATCH /classes/denied/:id (admin only).
func (cc *ClassController) Deny(ctx *gin.Context) {
	cc.setStatus(ctx, models.ClassDenied)
}

func (cc *ClassController) setStatus(ctx *gin.Context, status models.ClassStatus) {
	res, svcErr := cc.classes.SetStatus(ctx.Request.Context(), ctx.Param("id"), status)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

// SetFeedback handles PATCH /classes/feedback/:id (admin only).
func (cc *ClassController) SetFeedback(ctx *gin.Context) {
	var req feedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	res, svcErr := cc.classes.SetFeedback(ctx.Request.Context(), ctx.Param("id"), req.Feedback)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// ListReviews handles GET /reviews.
func (cc *ClassController) ListReviews(ctx *gin.Context) {
	reviews, svcErr := cc.classes.ListReviews(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, reviews)
}
