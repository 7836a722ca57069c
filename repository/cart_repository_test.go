package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/hassan-nahid/school-of-music-server/models"
)

func TestMongoCartRepository_DeleteByIDs(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	k1, k2 := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("deleted count may be below requested", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		n, err := repo.DeleteByIDs(context.Background(), []string{k1.Hex(), k2.Hex()})
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), n)
	})

	mt.Run("already cleared", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		n, err := repo.DeleteByIDs(context.Background(), []string{k1.Hex()})
		require.NoError(mt, err)
		assert.Equal(mt, int64(0), n)
	})

	mt.Run("empty list is a no-op", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		n, err := repo.DeleteByIDs(context.Background(), []string{})
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		_, err := repo.DeleteByIDs(context.Background(), []string{"k1"})
		assert.ErrorIs(mt, err, ErrInvalidID)
	})
}

func TestMongoCartRepository_InsertMany(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	items := []models.CartItem{
		{ID: primitive.NewObjectID(), Email: "a@x.io", ClassID: primitive.NewObjectID().Hex()},
		{ID: primitive.NewObjectID(), Email: "a@x.io", ClassID: primitive.NewObjectID().Hex()},
	}

	mt.Run("success", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}))
		require.NoError(mt, repo.InsertMany(context.Background(), items))
	})

	mt.Run("duplicates are skipped", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))
		require.NoError(mt, repo.InsertMany(context.Background(), items))
	})

	mt.Run("other write errors surface", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 1, Code: 121, Message: "document failed validation"}))
		assert.Error(mt, repo.InsertMany(context.Background(), items))
	})
}

func TestMongoCartRepository_FindByEmail(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes items", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "summerDb.carts", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "email", Value: "a@x.io"}, {Key: "classId", Value: "c1"}, {Key: "price", Value: 40.0}},
		))

		items, err := repo.FindByEmail(context.Background(), "a@x.io")
		require.NoError(mt, err)
		require.Len(mt, items, 1)
		assert.Equal(mt, "c1", items[0].ClassID)
		assert.Equal(mt, 40.0, items[0].Price)
	})
}
