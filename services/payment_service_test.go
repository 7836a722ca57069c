package services

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hassan-nahid/school-of-music-server/models"
)

type fakeIntents struct {
	amount   int64
	currency string
	err      error
}

func (f *fakeIntents) CreatePaymentIntent(_ context.Context, amountCents int64, currency string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.amount, f.currency = amountCents, currency
	return "pi_123_secret_456", nil
}

func TestPaymentService_CreatePaymentIntent(t *testing.T) {
	intents := &fakeIntents{}
	svc := NewPaymentService(&memPaymentRepo{}, intents, nil, nil)

	secret, svcErr := svc.CreatePaymentIntent(context.Background(), 19.99)
	require.Nil(t, svcErr)
	assert.Equal(t, "pi_123_secret_456", secret)
	assert.Equal(t, int64(1999), intents.amount)
	assert.Equal(t, "usd", intents.currency)
}

func TestPaymentService_CreatePaymentIntent_InvalidPrice(t *testing.T) {
	svc := NewPaymentService(&memPaymentRepo{}, &fakeIntents{}, nil, nil)

	for _, price := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, svcErr := svc.CreatePaymentIntent(context.Background(), price)
		require.NotNil(t, svcErr, price)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	}
}

func TestPaymentService_CreatePaymentIntent_ProviderError(t *testing.T) {
	svc := NewPaymentService(&memPaymentRepo{}, &fakeIntents{err: errors.New("card_declined")}, nil, nil)

	_, svcErr := svc.CreatePaymentIntent(context.Background(), 10)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
}

func TestPaymentService_History(t *testing.T) {
	repo := &memPaymentRepo{}
	older := models.Payment{ID: primitive.NewObjectID(), Email: owner, Date: time.Now().Add(-time.Hour)}
	newer := models.Payment{ID: primitive.NewObjectID(), Email: owner, Date: time.Now()}
	repo.payments = []models.Payment{older, newer, {ID: primitive.NewObjectID(), Email: "other@music.io"}}
	svc := NewPaymentService(repo, nil, nil, nil)

	payments, svcErr := svc.History(context.Background(), student, owner)
	require.Nil(t, svcErr)
	require.Len(t, payments, 2)
	assert.Equal(t, newer.ID, payments[0].ID)

	_, svcErr = svc.History(context.Background(), student, "other@music.io")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)

	admin := models.Principal{Email: "admin@music.io", Role: models.RoleAdmin}
	payments, svcErr = svc.History(context.Background(), admin, "other@music.io")
	require.Nil(t, svcErr)
	assert.Len(t, payments, 1)
}
