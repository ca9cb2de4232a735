package testutil

import (
	"net/http"

	"github.com/tangra/visitortrack/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestAccount represents account data for testing HTTP handlers.
type TestAccount struct {
	ID    string
	Email string
	Roles []string
}

// AdminAccount returns a TestAccount with the admin role.
func AdminAccount() TestAccount {
	return TestAccount{
		ID:    primitive.NewObjectID().Hex(),
		Email: "admin@test.com",
		Roles: []string{"admin"},
	}
}

// ViewerAccount returns a TestAccount with the viewer role.
func ViewerAccount() TestAccount {
	return TestAccount{
		ID:    primitive.NewObjectID().Hex(),
		Email: "viewer@test.com",
		Roles: []string{"viewer"},
	}
}

// WithAccount adds an account to the request context for testing
// authenticated handlers. This bypasses the session middleware and injects
// the account directly.
func WithAccount(r *http.Request, account TestAccount) *http.Request {
	return auth.WithTestAccount(r, &auth.SessionAccount{
		ID:    account.ID,
		Email: account.Email,
		Roles: account.Roles,
	})
}
