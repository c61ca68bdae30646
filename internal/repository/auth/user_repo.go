package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"oracle/internal/model/auth"
)

// ErrNotFound is returned when no account matches the query.
var ErrNotFound = errors.New("account not found")

// UserRepo stores accounts in the users collection.
// IDs are UUID strings, no ObjectID conversions needed.
type UserRepo struct {
	collection *mongo.Collection
}

// NewUserRepo creates an account repository.
func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{
		collection: db.Collection("users"),
	}
}

// Create inserts a new account.
func (r *UserRepo) Create(ctx context.Context, account *auth.Account) error {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, account)
	return err
}

// FindByID looks an account up by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	var account auth.Account
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByUsername looks an account up by username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	var account auth.Account
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByEmail looks an account up by email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	var account auth.Account
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateLastLoginAt stamps the last successful login.
func (r *UserRepo) UpdateLastLoginAt(ctx context.Context, id string) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"last_login_at": now,
			"updated_at":    now,
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// StampQuotaMonth persists the quota month boundary without touching the
// counter. Used on the quota-rejection path so the next month's first
// request sees a clean window.
func (r *UserRepo) StampQuotaMonth(ctx context.Context, id, month string) error {
	update := bson.M{
		"$set": bson.M{
			"last_query_month": month,
			"updated_at":       time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// CompareAndSwapQuota commits new quota fields only if the stored fields
// still match the previously observed values. Returns false when another
// writer got there first; the caller re-reads and retries.
//
// The filter makes the read-decide-write sequence an atomic conditional
// update on the account document, closing the concurrent quota-bypass
// window.
func (r *UserRepo) CompareAndSwapQuota(ctx context.Context, id string, prevCount int, prevMonth string, newCount int, newMonth string) (bool, error) {
	filter := bson.M{
		"_id":                 id,
		"monthly_query_count": prevCount,
	}
	// An account that has never queried has no last_query_month field.
	if prevMonth == "" {
		filter["last_query_month"] = bson.M{"$in": bson.A{nil, ""}}
	} else {
		filter["last_query_month"] = prevMonth
	}

	update := bson.M{
		"$set": bson.M{
			"monthly_query_count": newCount,
			"last_query_month":    newMonth,
			"updated_at":          time.Now(),
		},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// SetSubscribed flips the subscription flag. Driven by the external
// billing flow, not by chat requests.
func (r *UserRepo) SetSubscribed(ctx context.Context, id string, subscribed bool) error {
	update := bson.M{
		"$set": bson.M{
			"is_subscribed": subscribed,
			"updated_at":    time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
