package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment statuses.
const (
	PaymentPaid = "paid"
	// PaymentUnfulfilled marks a recorded payment whose seats could not be granted.
	PaymentUnfulfilled = "unfulfilled"
)

// Payment is an immutable ledger entry. ClassIDs keeps duplicates: each occurrence is one seat.
// Extra holds any other fields the client sent; they are stored and served unchanged.
type Payment struct {
	ID            primitive.ObjectID     `json:"_id,omitempty" bson:"_id,omitempty"`
	Email         string                 `json:"email" bson:"email"`
	Amount        float64                `json:"amount" bson:"amount"`
	Price         *float64               `json:"price,omitempty" bson:"price,omitempty"`
	TransactionID string                 `json:"transactionId" bson:"transactionId"`
	CartIDs       []string               `json:"cartId" bson:"cartId"`
	ClassIDs      []string               `json:"classIds" bson:"classIds"`
	ItemNames     []string               `json:"itemNames,omitempty" bson:"itemNames,omitempty"`
	Date          time.Time              `json:"date" bson:"date"`
	Status        string                 `json:"status,omitempty" bson:"status,omitempty"`
	Extra         map[string]interface{} `json:"-" bson:",inline"`
}

// MarshalJSON flattens Extra next to the known fields. Known fields win on a name clash.
func (p Payment) MarshalJSON() ([]byte, error) {
	type plain Payment
	body, err := json.Marshal(plain(p))
	if err != nil || len(p.Extra) == 0 {
		return body, err
	}

	var known map[string]json.RawMessage
	if err := json.Unmarshal(body, &known); err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(known)+len(p.Extra))
	for k, v := range p.Extra {
		out[k] = v
	}
	for k, v := range known {
		out[k] = v
	}
	return json.Marshal(out)
}

type PaymentIntentRequest struct {
	Price float64 `json:"price" binding:"required,gt=0"`
}
