// internal/app/system/identity/identity.go

// Package identity picks the attribution email for a visit event.
package identity

import (
	"net/mail"

	"github.com/tangra/visitortrack/internal/app/system/token"
	"github.com/tangra/visitortrack/internal/domain/models"
)

// ResolveEmail returns the best attribution email for an event, or nil
// when neither source yields one.
//
// A verified front-gate token always wins over the local account. The
// token represents the federated session the visitor actually signed in
// with; a local session may be stale on shared machines.
func ResolveEmail(claims token.Payload, account *models.Account) *string {
	if claims != nil {
		if email := claims.Email(); validEmail(email) {
			return &email
		}
	}
	if account != nil && validEmail(account.Email) {
		email := account.Email
		return &email
	}
	return nil
}

// validEmail reports whether s is a syntactically valid address.
// Stored emails feed erasure and export lookups, so garbage is
// rejected at the door rather than persisted.
func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
