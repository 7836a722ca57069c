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

// ClassRepository is the class inventory store. TransferSeats must be a single
// conditional update so concurrent settlements cannot oversell.
type ClassRepository interface {
	FindAll(ctx context.Context) ([]models.Class, error)
	FindByStatus(ctx context.Context, status models.ClassStatus) ([]models.Class, error)
	FindByInstructor(ctx context.Context, email string) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Class, error)
	Insert(ctx context.Context, class *models.Class) (string, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.UpdateResult, error)
	// TransferSeats moves q seats from availableSeats to enrolled iff availableSeats >= q.
	TransferSeats(ctx context.Context, id string, q int) error
	// RestoreSeats undoes a TransferSeats of q seats.
	RestoreSeats(ctx context.Context, id string, q int) error
}

type MongoClassRepository struct {
	collection *mongo.Collection
}

func NewMongoClassRepository(db *mongo.Database) *MongoClassRepository {
	return &MongoClassRepository{collection: db.Collection("classes")}
}

func (r *MongoClassRepository) find(ctx context.Context, filter bson.M) ([]models.Class, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find classes: %w", err)
	}
	defer cursor.Close(ctx)

	classes := []models.Class{}
	if err := cursor.All(ctx, &classes); err != nil {
		return nil, fmt.Errorf("decode classes: %w", err)
	}
	return classes, nil
}

func (r *MongoClassRepository) FindAll(ctx context.Context) ([]models.Class, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoClassRepository) FindByStatus(ctx context.Context, status models.ClassStatus) ([]models.Class, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *MongoClassRepository) FindByInstructor(ctx context.Context, email string) ([]models.Class, error) {
	return r.find(ctx, bson.M{"instructorEmail": email})
}

func (r *MongoClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	oid, err := ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	var class models.Class
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&class); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find class %s: %w", id, err)
	}
	return &class, nil
}

func (r *MongoClassRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	oids, err := ParseObjectIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(oids) == 0 {
		return []models.Class{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (r *MongoClassRepository) Insert(ctx context.Context, class *models.Class) (string, error) {
	res, err := r.collection.InsertOne(ctx, class)
	if err != nil {
		return "", fmt.Errorf("insert class: %w", err)
	}
	return insertedHex(res.InsertedID), nil
}

func (r *MongoClassRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.UpdateResult, error) {
	oid, err := ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return nil, fmt.Errorf("update class %s: %w", id, err)
	}
	return &models.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (r *MongoClassRepository) TransferSeats(ctx context.Context, id string, q int) error {
	oid, err := ParseObjectID(id)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid, "availableSeats": bson.M{"$gte": q}}
	update := bson.M{"$inc": bson.M{"availableSeats": -q, "enrolled": q}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("transfer seats on %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return r.missOrShort(ctx, oid)
	}
	return nil
}

func (r *MongoClassRepository) RestoreSeats(ctx context.Context, id string, q int) error {
	oid, err := ParseObjectID(id)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid, "enrolled": bson.M{"$gte": q}}
	update := bson.M{"$inc": bson.M{"availableSeats": q, "enrolled": -q}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("restore seats on %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return r.missOrShort(ctx, oid)
	}
	return nil
}

// missOrShort tells a missing class apart from a failed seat condition after an unmatched update.
func (r *MongoClassRepository) missOrShort(ctx context.Context, oid interface{}) error {
	err := r.collection.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("lookup class: %w", err)
	default:
		return ErrInsufficientSeats
	}
}
