package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hassan-nahid/school-of-music-server/models"
)

// PaymentRepository is an append-only ledger: there is no update or delete.
// Insert returns ErrDuplicate when the transaction id is already recorded.
type PaymentRepository interface {
	Insert(ctx context.Context, payment *models.Payment) (string, error)
	FindByEmail(ctx context.Context, email string) ([]models.Payment, error)
}

type MongoPaymentRepository struct {
	collection *mongo.Collection
}

func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	return &MongoPaymentRepository{collection: db.Collection("payment")}
}

func (r *MongoPaymentRepository) Insert(ctx context.Context, payment *models.Payment) (string, error) {
	res, err := r.collection.InsertOne(ctx, payment)
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", fmt.Errorf("insert payment: %w", err)
	}
	return insertedHex(res.InsertedID), nil
}

// FindByEmail returns the payment history newest first.
func (r *MongoPaymentRepository) FindByEmail(ctx context.Context, email string) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, fmt.Errorf("find payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []models.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	return payments, nil
}
