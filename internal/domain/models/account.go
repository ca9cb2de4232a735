// internal/domain/models/account.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account represents a local login account. Visit events reference
// accounts by ID; guests have no account at all.
type Account struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email string             `bson:"email" json:"email"` // stored lowercase

	// PasswordHash is a bcrypt hash, never serialized to JSON.
	PasswordHash string `bson:"password_hash" json:"-"`

	Roles  []string `bson:"roles" json:"roles"`
	Status string   `bson:"status" json:"status"` // active, disabled

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Account roles. RoleAdmin is excluded from tracking by default.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// IsActive reports whether the account may sign in.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}
