// internal/app/store/accounts/accountstore.go
package accountstore

import (
	"context"
	"errors"
	"time"

	"github.com/tangra/visitortrack/internal/app/system/normalize"
	"github.com/tangra/visitortrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no account matches the query.
var ErrNotFound = errors.New("accountstore: account not found")

// Store provides access to the accounts collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new account store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts")}
}

// GetByID returns the account with the given ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	var a models.Account
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByEmail returns the account with the given email. The lookup is
// case-insensitive because emails are stored lowercase.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new account and returns it with its assigned ID.
func (s *Store) Create(ctx context.Context, a models.Account) (models.Account, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Email = normalize.Email(a.Email)
	a.Status = normalize.Status(a.Status)
	if a.Status == "" {
		a.Status = models.StatusActive
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Account{}, err
	}
	return a, nil
}

// AddRole grants a role to an account if it does not already hold it.
func (s *Store) AddRole(ctx context.Context, id primitive.ObjectID, role string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"roles": role},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// Count returns the number of accounts. Used at startup to decide
// whether to seed the first admin.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
