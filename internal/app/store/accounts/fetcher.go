// internal/app/store/accounts/fetcher.go
package accountstore

import (
	"context"

	"github.com/tangra/visitortrack/internal/app/system/auth"
	"github.com/tangra/visitortrack/internal/app/system/timeouts"
	"github.com/tangra/visitortrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Fetcher implements auth.AccountFetcher to load fresh account data on
// each request, so role changes and disabled accounts take effect
// without waiting for the session cookie to expire.
type Fetcher struct {
	accounts *mongo.Collection
	logger   *zap.Logger
}

// NewFetcher creates an AccountFetcher that queries the given database.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		accounts: db.Collection("accounts"),
		logger:   logger,
	}
}

// FetchAccount retrieves an account by ID and returns nil if the account
// is not found, disabled, or if any error occurs. This implements
// auth.AccountFetcher.
func (f *Fetcher) FetchAccount(ctx context.Context, accountID string) *auth.SessionAccount {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil
	}

	// Use a short timeout for the DB query
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var a models.Account
	proj := options.FindOne().SetProjection(bson.M{
		"_id":    1,
		"email":  1,
		"roles":  1,
		"status": 1,
	})

	if err := f.accounts.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&a); err != nil {
		// Account not found or DB error
		return nil
	}

	if !a.IsActive() {
		return nil
	}

	return &auth.SessionAccount{
		ID:    a.ID.Hex(),
		Email: a.Email,
		Roles: a.Roles,
	}
}
