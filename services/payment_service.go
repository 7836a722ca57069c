package services

import (
	"context"
	"math"

	"go.uber.org/zap"

	aws_pkg "github.com/hassan-nahid/school-of-music-server/aws"
	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/repository"
)

// PaymentService covers payment intents and payment history.
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, price float64) (string, *ServiceError)
	History(ctx context.Context, principal models.Principal, email string) ([]models.Payment, *ServiceError)
}

type paymentServiceImpl struct {
	payments   repository.PaymentRepository
	intents    PaymentIntentCreator
	cloudwatch *aws_pkg.MetricsClient
	logger     *zap.Logger
}

func NewPaymentService(payments repository.PaymentRepository, intents PaymentIntentCreator, cloudwatch *aws_pkg.MetricsClient, logger *zap.Logger) PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &paymentServiceImpl{payments: payments, intents: intents, cloudwatch: cloudwatch, logger: logger}
}

// CreatePaymentIntent charges price dollars as a USD card payment.
func (s *paymentServiceImpl) CreatePaymentIntent(ctx context.Context, price float64) (string, *ServiceError) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return "", validationError("price must be greater than zero", nil)
	}
	if s.intents == nil {
		return "", internalError("Payments are not configured", nil)
	}

	amount := int64(math.Round(price * 100))
	secret, err := s.intents.CreatePaymentIntent(ctx, amount, "usd")
	if err != nil {
		s.logger.Error("Failed to create payment intent", zap.Int64("amount", amount), zap.Error(err))
		return "", internalError("Failed to create payment intent", err)
	}
	_ = s.cloudwatch.RecordCount(ctx, aws_pkg.MetricPaymentIntents, map[string]string{"Service": "school-of-music"})
	return secret, nil
}

// History lists payments newest first. Only the owner or an admin may read them.
func (s *paymentServiceImpl) History(ctx context.Context, principal models.Principal, email string) ([]models.Payment, *ServiceError) {
	if !principal.Owns(email) && !principal.IsAdmin() {
		return nil, forbiddenError("forbidden access")
	}
	payments, err := s.payments.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to load payments", zap.String("email", email), zap.Error(err))
		return nil, storeError("Internal server error", err)
	}
	return payments, nil
}
