package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hassan-nahid/school-of-music-server/models"
)

type CartRepository interface {
	FindByEmail(ctx context.Context, email string) ([]models.CartItem, error)
	FindByID(ctx context.Context, id string) (*models.CartItem, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.CartItem, error)
	Insert(ctx context.Context, item *models.CartItem) (string, error)
	// InsertMany re-inserts items keeping their ids. Items that already exist are skipped.
	InsertMany(ctx context.Context, items []models.CartItem) error
	DeleteByID(ctx context.Context, id string) (int64, error)
	// DeleteByIDs removes every listed item; unknown ids are not an error.
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{collection: db.Collection("carts")}
}

func (r *MongoCartRepository) find(ctx context.Context, filter bson.M) ([]models.CartItem, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find cart items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.CartItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return items, nil
}

func (r *MongoCartRepository) FindByEmail(ctx context.Context, email string) ([]models.CartItem, error) {
	return r.find(ctx, bson.M{"email": email})
}

func (r *MongoCartRepository) FindByID(ctx context.Context, id string) (*models.CartItem, error) {
	oid, err := ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	var item models.CartItem
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find cart item %s: %w", id, err)
	}
	return &item, nil
}

func (r *MongoCartRepository) FindByIDs(ctx context.Context, ids []string) ([]models.CartItem, error) {
	oids, err := ParseObjectIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(oids) == 0 {
		return []models.CartItem{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (r *MongoCartRepository) Insert(ctx context.Context, item *models.CartItem) (string, error) {
	res, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		return "", fmt.Errorf("insert cart item: %w", err)
	}
	return insertedHex(res.InsertedID), nil
}

func (r *MongoCartRepository) InsertMany(ctx context.Context, items []models.CartItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(items))
	for i := range items {
		docs = append(docs, items[i])
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicateKeys(err) {
		return fmt.Errorf("insert cart items: %w", err)
	}
	return nil
}

func (r *MongoCartRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	oid, err := ParseObjectID(id)
	if err != nil {
		return 0, err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("delete cart item %s: %w", id, err)
	}
	return res.DeletedCount, nil
}

func (r *MongoCartRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	oids, err := ParseObjectIDs(ids)
	if err != nil {
		return 0, err
	}
	if len(oids) == 0 {
		return 0, nil
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("delete cart items: %w", err)
	}
	return res.DeletedCount, nil
}

func onlyDuplicateKeys(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}
