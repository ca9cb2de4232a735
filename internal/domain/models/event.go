// internal/domain/models/event.go
package models

import (
	"net"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventKind classifies a visit event.
type EventKind string

const (
	EventView  EventKind = "view"
	EventLogin EventKind = "login"
)

// IsValidEventKind checks if a kind is one of the two known values.
func IsValidEventKind(kind string) bool {
	return kind == string(EventView) || kind == string(EventLogin)
}

// MaxUserAgentLen is the byte cap applied to stored user-agent strings.
const MaxUserAgentLen = 512

// Event is a single recorded visit or login. Records are immutable once
// written; the only deletions are bulk (retention sweep, erasure, clear).
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"ts" json:"ts"`

	// AccountID is nil for guest visits.
	AccountID *primitive.ObjectID `bson:"account_id,omitempty" json:"account_id,omitempty"`

	// Email is the attributed address, when one could be resolved.
	Email *string `bson:"email,omitempty" json:"email,omitempty"`

	// IP is the raw 4- or 16-byte address, possibly anonymized.
	// Nil when the client address could not be determined.
	IP []byte `bson:"ip,omitempty" json:"-"`

	URL       string    `bson:"url" json:"url"`
	UserAgent string    `bson:"ua,omitempty" json:"ua,omitempty"`
	Kind      EventKind `bson:"event" json:"event"`
}

// IPString renders the stored binary address in text form,
// or "" when no address was recorded.
func (e *Event) IPString() string {
	if len(e.IP) != net.IPv4len && len(e.IP) != net.IPv6len {
		return ""
	}
	return net.IP(e.IP).String()
}

// HasEmail reports whether the event carries a non-empty attributed email.
func (e *Event) HasEmail() bool {
	return e.Email != nil && *e.Email != ""
}
