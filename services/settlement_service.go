package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	aws_pkg "github.com/hassan-nahid/school-of-music-server/aws"
	"github.com/hassan-nahid/school-of-music-server/config"
	apperrors "github.com/hassan-nahid/school-of-music-server/errors"
	"github.com/hassan-nahid/school-of-music-server/metrics"
	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/repository"
)

const clampRetries = 3

// SettlementService turns a completed payment into enrollments.
type SettlementService interface {
	// Settle records the payment, clears the purchased cart items and moves seats
	// from availableSeats to enrolled. A non-empty idempotencyKey makes repeats
	// of the same request return the first result.
	Settle(ctx context.Context, principal models.Principal, req *models.PaymentRequest, idempotencyKey string) (*models.SettlementResult, *ServiceError)
}

// SettlementOptions tunes a settlement service.
type SettlementOptions struct {
	OversellPolicy string
	IdempotencyTTL time.Duration
	Now            func() time.Time
}

type settlementServiceImpl struct {
	classes     repository.ClassRepository
	carts       repository.CartRepository
	payments    repository.PaymentRepository
	idempotency repository.IdempotencyRepository
	events      EventPublisher
	cloudwatch  *aws_pkg.MetricsClient
	opts        SettlementOptions
	logger      *zap.Logger
}

// NewSettlementService wires the three stores. idempotency, events and cloudwatch may be nil.
func NewSettlementService(
	classes repository.ClassRepository,
	carts repository.CartRepository,
	payments repository.PaymentRepository,
	idempotency repository.IdempotencyRepository,
	events EventPublisher,
	cloudwatch *aws_pkg.MetricsClient,
	opts SettlementOptions,
	logger *zap.Logger,
) SettlementService {
	if opts.OversellPolicy == "" {
		opts.OversellPolicy = config.OversellReject
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &settlementServiceImpl{
		classes:     classes,
		carts:       carts,
		payments:    payments,
		idempotency: idempotency,
		events:      events,
		cloudwatch:  cloudwatch,
		opts:        opts,
		logger:      logger,
	}
}

// seatPlan is one distinct class of a settlement after validation.
type seatPlan struct {
	classID   string
	requested int
	quantity  int
}

// saga tracks what a settlement has committed so a failure can be undone.
type saga struct {
	committed   []string
	compensated []string
	cartBackup  []models.CartItem
	applied     []seatPlan
}

func (s *saga) commit(step string) { s.committed = append(s.committed, step) }

func (s *settlementServiceImpl) Settle(ctx context.Context, principal models.Principal, req *models.PaymentRequest, idempotencyKey string) (*models.SettlementResult, *ServiceError) {
	if req == nil {
		return nil, validationError("payment body is required", nil)
	}

	key := ""
	if idempotencyKey = strings.TrimSpace(idempotencyKey); idempotencyKey != "" && s.idempotency != nil {
		key = strings.ToLower(principal.Email) + ":" + idempotencyKey
		cached, svcErr := s.claimIdempotencyKey(ctx, key)
		if svcErr != nil || cached != nil {
			return cached, svcErr
		}
	}

	start := time.Now()
	result, svcErr := s.settle(ctx, principal, req)

	outcome := "success"
	if svcErr != nil {
		outcome = string(svcErr.Kind)
	}
	seats := 0
	if result != nil {
		for _, t := range result.SeatTransfers {
			seats += t.Quantity
		}
	}
	metrics.ObserveSettlement(outcome, time.Since(start), seats)
	s.recordCloudWatch(svcErr == nil, seats, time.Since(start))

	if key != "" {
		s.finishIdempotencyKey(ctx, key, result, svcErr)
	}
	if svcErr != nil {
		return nil, svcErr
	}

	s.publishSettled(ctx, req, result)
	return result, nil
}

func (s *settlementServiceImpl) settle(ctx context.Context, principal models.Principal, req *models.PaymentRequest) (*models.SettlementResult, *ServiceError) {
	owner := req.Owner()
	if owner == "" {
		return nil, validationError("email is required", nil)
	}
	if !principal.Owns(owner) {
		return nil, forbiddenError("forbidden access")
	}
	if len(req.ClassIDs) == 0 {
		return nil, validationError("classIds must not be empty", nil)
	}

	cartIDs := req.CartItemIDs()
	if _, err := repository.ParseObjectIDs(cartIDs); err != nil {
		return nil, validationError("cartId contains a malformed id", err)
	}
	if _, err := repository.ParseObjectIDs(req.ClassIDs); err != nil {
		return nil, validationError("classIds contains a malformed id", err)
	}

	plans, unknown, rejected, svcErr := s.plan(ctx, AggregateQuantities(req.ClassIDs))
	if svcErr != nil {
		return nil, svcErr
	}

	// Everything below mutates state and is tracked for compensation.
	sg := &saga{}

	payment := &models.Payment{
		ID:            primitive.NewObjectID(),
		Email:         owner,
		Amount:        req.PaidAmount(),
		Price:         req.Price,
		TransactionID: req.TransactionID,
		CartIDs:       cartIDs,
		ClassIDs:      req.ClassIDs,
		ItemNames:     req.ItemNames,
		Date:          s.opts.Now().UTC(),
		Status:        req.Status,
		Extra:         req.Extra,
	}
	if req.Date != nil && !req.Date.IsZero() {
		payment.Date = req.Date.UTC()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentPaid
	}
	if rejected != nil {
		payment.Status = models.PaymentUnfulfilled
	}
	paymentID, err := s.payments.Insert(ctx, payment)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, conflictError(fmt.Sprintf("Payment for transaction %s is already recorded", req.TransactionID), err)
	}
	if err != nil {
		s.logger.Error("Failed to record payment", zap.String("email", owner), zap.Error(err))
		return nil, storeError("Failed to record payment", err)
	}
	sg.commit(models.StepPaymentRecorded)

	// The money was taken, so an oversold request is still recorded before it is refused.
	if rejected != nil {
		return nil, s.fail(ctx, sg, rejected)
	}

	deleted, err := s.clearCart(ctx, principal, cartIDs, sg)
	if err != nil {
		return nil, s.fail(ctx, sg, storeError("Failed to clear cart", err))
	}
	sg.commit(models.StepCartCleared)

	transfers := make([]models.SeatTransfer, 0, len(plans))
	for _, p := range plans {
		moved, err := s.transfer(ctx, p)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			unknown = append(unknown, p.classID)
			continue
		case errors.Is(err, repository.ErrInsufficientSeats):
			return nil, s.fail(ctx, sg, conflictError(fmt.Sprintf("Not enough seats left in class %s", p.classID), err))
		case err != nil:
			return nil, s.fail(ctx, sg, storeError("Failed to update class seats", err))
		}
		if moved > 0 {
			sg.applied = append(sg.applied, seatPlan{classID: p.classID, requested: p.requested, quantity: moved})
		}
		transfers = append(transfers, models.SeatTransfer{ClassID: p.classID, Requested: p.requested, Quantity: moved})
	}
	sg.commit(models.StepSeatsTransferred)

	if len(unknown) > 0 {
		s.logger.Warn("Settlement skipped unknown classes", zap.String("payment_id", paymentID), zap.Strings("class_ids", unknown))
	}
	s.logger.Info("Settlement completed",
		zap.String("payment_id", paymentID),
		zap.String("email", owner),
		zap.Int64("cart_deleted", deleted),
		zap.Int("classes", len(transfers)),
	)

	return &models.SettlementResult{
		InsertResult:    models.InsertResult{InsertedID: paymentID},
		DeleteResult:    models.DeleteResult{DeletedCount: deleted},
		SeatTransfers:   transfers,
		UnknownClassIDs: unknown,
		CommittedSteps:  sg.committed,
	}, nil
}

// plan reads the affected classes once and applies the oversell policy before any seat moves.
// Under the reject policy a short class yields a Conflict in rejected instead of a plan.
func (s *settlementServiceImpl) plan(ctx context.Context, quantities []models.ClassQuantity) (plans []seatPlan, unknown []string, rejected, svcErr *ServiceError) {
	ids := make([]string, 0, len(quantities))
	for _, q := range quantities {
		ids = append(ids, q.ClassID)
	}
	classes, err := s.classes.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to load classes", zap.Strings("class_ids", ids), zap.Error(err))
		return nil, nil, nil, storeError("Failed to load classes", err)
	}
	byID := make(map[string]models.Class, len(classes))
	for _, c := range classes {
		byID[c.ID.Hex()] = c
	}

	plans = make([]seatPlan, 0, len(quantities))
	unknown = []string{}
	for _, q := range quantities {
		class, ok := byID[q.ClassID]
		if !ok {
			unknown = append(unknown, q.ClassID)
			continue
		}
		p := seatPlan{classID: q.ClassID, requested: q.Quantity, quantity: q.Quantity}
		if class.AvailableSeats < q.Quantity {
			if s.opts.OversellPolicy != config.OversellClamp {
				return nil, unknown, conflictError(fmt.Sprintf("Class %s has %d seats left, %d requested",
					q.ClassID, class.AvailableSeats, q.Quantity), repository.ErrInsufficientSeats), nil
			}
			p.quantity = max(class.AvailableSeats, 0)
		}
		plans = append(plans, p)
	}
	return plans, unknown, nil, nil
}

// clearCart snapshots the owner's items among ids and deletes them. Items of other users are left alone.
func (s *settlementServiceImpl) clearCart(ctx context.Context, principal models.Principal, ids []string, sg *saga) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	items, err := s.carts.FindByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	owned := make([]string, 0, len(items))
	for _, item := range items {
		if principal.Owns(item.Email) {
			owned = append(owned, item.ID.Hex())
			sg.cartBackup = append(sg.cartBackup, item)
		}
	}
	if len(owned) < len(items) {
		s.logger.Warn("Settlement ignored cart items owned by another user",
			zap.String("email", principal.Email), zap.Int("ignored", len(items)-len(owned)))
	}
	if len(owned) == 0 {
		return 0, nil
	}
	return s.carts.DeleteByIDs(ctx, owned)
}

// transfer moves p.quantity seats. Under the clamp policy a lost race is retried with the seats left.
func (s *settlementServiceImpl) transfer(ctx context.Context, p seatPlan) (int, error) {
	q := p.quantity
	if q == 0 {
		return 0, nil
	}
	for attempt := 0; ; attempt++ {
		err := s.classes.TransferSeats(ctx, p.classID, q)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, repository.ErrInsufficientSeats) || s.opts.OversellPolicy != config.OversellClamp || attempt >= clampRetries {
			return 0, err
		}

		class, ferr := s.classes.FindByID(ctx, p.classID)
		if ferr != nil {
			return 0, ferr
		}
		q = min(q, class.AvailableSeats)
		if q <= 0 {
			return 0, nil
		}
	}
}

// fail undoes what can be undone, newest first. The payment record is never removed.
func (s *settlementServiceImpl) fail(ctx context.Context, sg *saga, svcErr *ServiceError) *ServiceError {
	// Compensation must run even when the request context has been cancelled.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if len(sg.applied) > 0 {
		restored := true
		for i := len(sg.applied) - 1; i >= 0; i-- {
			p := sg.applied[i]
			if err := s.classes.RestoreSeats(cctx, p.classID, p.quantity); err != nil {
				restored = false
				s.logger.Error("Failed to restore seats", zap.String("class_id", p.classID), zap.Int("quantity", p.quantity), zap.Error(err))
			}
		}
		metrics.ObserveCompensation(models.StepSeatsRestored, restored)
		if restored {
			sg.compensated = append(sg.compensated, models.StepSeatsRestored)
		}
	}

	if len(sg.cartBackup) > 0 {
		err := s.carts.InsertMany(cctx, sg.cartBackup)
		metrics.ObserveCompensation(models.StepCartRestored, err == nil)
		if err != nil {
			s.logger.Error("Failed to restore cart items", zap.Int("items", len(sg.cartBackup)), zap.Error(err))
		} else {
			sg.compensated = append(sg.compensated, models.StepCartRestored)
		}
	}

	s.logger.Warn("Settlement failed after payment was recorded",
		zap.String("kind", string(svcErr.Kind)),
		zap.Strings("committed", sg.committed),
		zap.Strings("compensated", sg.compensated),
		zap.Error(svcErr.Err),
	)
	svcErr.CommittedSteps = sg.committed
	svcErr.CompensatedSteps = sg.compensated
	if svcErr.CompensatedSteps == nil {
		svcErr.CompensatedSteps = []string{}
	}
	return svcErr
}

// claimIdempotencyKey returns a cached result, a conflict for an in-flight key, or (nil, nil) once the key is claimed.
// Redis failures disable idempotency for the request instead of failing it.
func (s *settlementServiceImpl) claimIdempotencyKey(ctx context.Context, key string) (*models.SettlementResult, *ServiceError) {
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.idempotency.Reserve(ctx, key, s.opts.IdempotencyTTL)
		if err != nil {
			s.logger.Warn("Idempotency store unavailable", zap.Error(err))
			return nil, nil
		}
		if ok {
			return nil, nil
		}

		val, found, err := s.idempotency.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Idempotency store unavailable", zap.Error(err))
			return nil, nil
		}
		if !found {
			// expired between SETNX and GET
			continue
		}
		if val == repository.IdempotencyPending {
			return nil, conflictError("A request with this Idempotency-Key is already in progress", nil)
		}
		var cached idempotencyRecord
		if err := json.Unmarshal([]byte(val), &cached); err != nil || (cached.Result == nil && cached.Failure == nil) {
			s.logger.Warn("Discarding unreadable idempotency entry", zap.Error(err))
			_ = s.idempotency.Release(ctx, key)
			continue
		}
		if f := cached.Failure; f != nil {
			s.logger.Info("Replaying settlement failure for idempotency key", zap.Strings("committed", f.CommittedSteps))
			return nil, &ServiceError{
				StatusCode:       apperrors.StatusFor(f.Kind),
				Kind:             f.Kind,
				Message:          f.Message,
				CommittedSteps:   f.CommittedSteps,
				CompensatedSteps: f.CompensatedSteps,
			}
		}
		s.logger.Info("Replaying settlement for idempotency key", zap.String("payment_id", cached.Result.InsertResult.InsertedID))
		return cached.Result, nil
	}
	return nil, nil
}

// idempotencyRecord is what a finished key stores: the result, or the failure of a
// settlement that had already recorded its payment.
type idempotencyRecord struct {
	Result  *models.SettlementResult `json:"result,omitempty"`
	Failure *settlementFailure       `json:"failure,omitempty"`
}

type settlementFailure struct {
	Kind             apperrors.Kind `json:"kind"`
	Message          string         `json:"message"`
	CommittedSteps   []string       `json:"committedSteps"`
	CompensatedSteps []string       `json:"compensatedSteps"`
}

// finishIdempotencyKey releases the key only when nothing was committed, so a retry can
// never record the same payment twice.
func (s *settlementServiceImpl) finishIdempotencyKey(ctx context.Context, key string, result *models.SettlementResult, svcErr *ServiceError) {
	cctx := context.WithoutCancel(ctx)
	var record idempotencyRecord
	switch {
	case result != nil:
		record.Result = result
	case svcErr != nil && len(svcErr.CommittedSteps) > 0:
		record.Failure = &settlementFailure{
			Kind:             svcErr.Kind,
			Message:          svcErr.Message,
			CommittedSteps:   svcErr.CommittedSteps,
			CompensatedSteps: svcErr.CompensatedSteps,
		}
	default:
		if err := s.idempotency.Release(cctx, key); err != nil {
			s.logger.Warn("Failed to release idempotency key", zap.Error(err))
		}
		return
	}

	body, err := json.Marshal(record)
	if err == nil {
		err = s.idempotency.Save(cctx, key, string(body), s.opts.IdempotencyTTL)
	}
	if err != nil {
		s.logger.Warn("Failed to store idempotency result", zap.Error(err))
	}
}

func (s *settlementServiceImpl) publishSettled(ctx context.Context, req *models.PaymentRequest, result *models.SettlementResult) {
	if s.events == nil {
		return
	}
	evt := &models.EnrollmentSettledEvent{
		EventType:     EventEnrollmentSettled,
		PaymentID:     result.InsertResult.InsertedID,
		Email:         req.Owner(),
		Amount:        req.PaidAmount(),
		TransactionID: req.TransactionID,
		SeatTransfers: result.SeatTransfers,
		SettledAt:     s.opts.Now().UTC(),
	}
	if err := s.events.PublishEnrollmentSettled(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish settlement event", zap.String("payment_id", evt.PaymentID), zap.Error(err))
	}
}

func (s *settlementServiceImpl) recordCloudWatch(ok bool, seats int, d time.Duration) {
	if !s.cloudwatch.IsEnabled() {
		return
	}
	dims := map[string]string{"Service": "school-of-music"}
	go func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ok {
			_ = s.cloudwatch.RecordCount(cctx, aws_pkg.MetricSettlementsSucceeded, dims)
			_ = s.cloudwatch.RecordValue(cctx, aws_pkg.MetricSeatsEnrolled, float64(seats), dims)
		} else {
			_ = s.cloudwatch.RecordCount(cctx, aws_pkg.MetricSettlementsFailed, dims)
		}
		_ = s.cloudwatch.RecordLatency(cctx, aws_pkg.MetricSettlementLatency, d, dims)
	}()
}
