package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Settlement steps recorded in CommittedSteps / CompensatedSteps.
const (
	StepPaymentRecorded  = "payment_recorded"
	StepCartCleared      = "cart_cleared"
	StepSeatsTransferred = "seats_transferred"
	StepSeatsRestored    = "seats_restored"
	StepCartRestored     = "cart_restored"
)

// PaymentRequest is the body of POST /payments. Both the historical field names
// (email, cartId, price) and the descriptive ones (ownerEmail, cartIds, amount) are accepted.
// Fields not listed here are collected in Extra and kept with the payment record.
type PaymentRequest struct {
	Email         string     `json:"email"`
	OwnerEmail    string     `json:"ownerEmail"`
	Amount        *float64   `json:"amount"`
	Price         *float64   `json:"price"`
	TransactionID string     `json:"transactionId"`
	CartID        []string   `json:"cartId"`
	CartIDs       []string   `json:"cartIds"`
	ClassIDs      []string   `json:"classIds"`
	ItemNames     []string   `json:"itemNames,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	Status        string     `json:"status,omitempty"`

	Extra map[string]interface{} `json:"-"`
}

var paymentRequestFields = map[string]bool{
	"_id": true, "email": true, "ownerEmail": true, "amount": true, "price": true, "transactionId": true,
	"cartId": true, "cartIds": true, "classIds": true, "itemNames": true, "date": true, "status": true,
}

func (r *PaymentRequest) UnmarshalJSON(data []byte) error {
	type plain PaymentRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if paymentRequestFields[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		p.Extra = raw
	}
	*r = PaymentRequest(p)
	return nil
}

// Owner returns the owner email, preferring ownerEmail over email.
func (r *PaymentRequest) Owner() string {
	if s := strings.TrimSpace(r.OwnerEmail); s != "" {
		return s
	}
	return strings.TrimSpace(r.Email)
}

// CartItemIDs merges cartIds into cartId, preserving order.
func (r *PaymentRequest) CartItemIDs() []string {
	out := make([]string, 0, len(r.CartID)+len(r.CartIDs))
	out = append(out, r.CartID...)
	return append(out, r.CartIDs...)
}

func (r *PaymentRequest) PaidAmount() float64 {
	if r.Amount != nil {
		return *r.Amount
	}
	if r.Price != nil {
		return *r.Price
	}
	return 0
}

type InsertResult struct {
	InsertedID string `json:"insertedId"`
}

type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// SeatTransfer is the outcome for one distinct class. Quantity can be below Requested under the clamp policy.
type SeatTransfer struct {
	ClassID   string `json:"classId"`
	Requested int    `json:"requested"`
	Quantity  int    `json:"quantity"`
}

type SettlementResult struct {
	InsertResult    InsertResult   `json:"insertResult"`
	DeleteResult    DeleteResult   `json:"deleteResult"`
	SeatTransfers   []SeatTransfer `json:"seatTransfers"`
	UnknownClassIDs []string       `json:"unknownClassIds"`
	CommittedSteps  []string       `json:"committedSteps"`
}

// ClassQuantity is one entry of an aggregated classIds list.
type ClassQuantity struct {
	ClassID  string
	Quantity int
}

// EnrollmentSettledEvent is published after a successful settlement.
type EnrollmentSettledEvent struct {
	EventType     string         `json:"event_type"`
	PaymentID     string         `json:"payment_id"`
	Email         string         `json:"email"`
	Amount        float64        `json:"amount"`
	TransactionID string         `json:"transaction_id,omitempty"`
	SeatTransfers []SeatTransfer `json:"seat_transfers"`
	SettledAt     time.Time      `json:"settled_at"`
}
