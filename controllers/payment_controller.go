package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/services"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentController handles payment intents, settlements and payment history.
type PaymentController struct {
	payments   services.PaymentService
	settlement services.SettlementService
}

func NewPaymentController(payments services.PaymentService, settlement services.SettlementService) *PaymentController {
	return &PaymentController{payments: payments, settlement: settlement}
}

// CreatePaymentIntent handles POST /create-payment-intent.
func (pc *PaymentController) CreatePaymentIntent(ctx *gin.Context) {
	var req models.PaymentIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	secret, svcErr := pc.payments.CreatePaymentIntent(ctx.Request.Context(), req.Price)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"clientSecret": secret})
}

// Settle handles POST /payments: records the payment, clears the cart and enrolls the buyer.
func (pc *PaymentController) Settle(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req models.PaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	result, svcErr := pc.settlement.Settle(ctx.Request.Context(), p, &req, ctx.GetHeader(IdempotencyKeyHeader))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// History handles GET /payment/:email.
func (pc *PaymentController) History(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	payments, svcErr := pc.payments.History(ctx.Request.Context(), p, ctx.Param("email"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, payments)
}
