package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes every collection needs.
// Called once at application startup; index creation is idempotent.
func EnsureIndexes(db *mongo.Database) error {
	ctx := context.Background()

	// users collection
	userColl := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "username", Value: 1}},
			Options: options.Index().SetName("idx_username").SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_email").SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	}
	if err := CreateIndexes(ctx, userColl, userIndexes); err != nil {
		return err
	}

	// refresh_tokens collection
	tokenColl := db.Collection("refresh_tokens")
	tokenIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "token", Value: 1}},
			Options: options.Index().SetName("idx_token").SetUnique(true),
		},
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_user_id"),
		},
		{
			// TTL index: MongoDB reaps expired refresh tokens on its own
			Keys:    bson.D{bson.E{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_expires_at").SetExpireAfterSeconds(0),
		},
	}
	if err := CreateIndexes(ctx, tokenColl, tokenIndexes); err != nil {
		return err
	}

	return nil
}

// CreateIndexes creates a batch of indexes on a collection.
func CreateIndexes(ctx context.Context, coll *mongo.Collection, indexes []mongo.IndexModel) error {
	if len(indexes) == 0 {
		return nil
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// CreateIndex creates a single index on a collection.
func CreateIndex(ctx context.Context, coll *mongo.Collection, index mongo.IndexModel) error {
	_, err := coll.Indexes().CreateOne(ctx, index)
	return err
}
