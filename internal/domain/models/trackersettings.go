// internal/domain/models/trackersettings.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrackerSettings holds the runtime tracking policy. A single document
// lives in the tracker_settings collection and is loaded per operation,
// so admin changes take effect without a restart.
type TrackerSettings struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	// TrackGuests controls whether unauthenticated visits are logged at all.
	TrackGuests bool `bson:"track_guests" json:"track_guests"`

	// AnonymizeIP controls whether stored addresses are masked
	// (IPv4: last octet zeroed, IPv6: low 64 bits zeroed).
	AnonymizeIP bool `bson:"anonymize_ip" json:"anonymize_ip"`

	// RetentionDays is how long events are kept before the sweep
	// deletes them. Always >= 1.
	RetentionDays int `bson:"retention_days" json:"retention_days"`

	// ExcludedRoles lists roles whose events are never logged.
	ExcludedRoles []string `bson:"excluded_roles" json:"excluded_roles"`

	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DefaultRetentionDays is the retention applied when none is configured.
const DefaultRetentionDays = 365

// DefaultTrackerSettings returns the policy used until an admin saves one.
func DefaultTrackerSettings() TrackerSettings {
	return TrackerSettings{
		TrackGuests:   true,
		AnonymizeIP:   true,
		RetentionDays: DefaultRetentionDays,
		ExcludedRoles: []string{RoleAdmin},
	}
}

// Normalize clamps invalid values back into range.
func (s *TrackerSettings) Normalize() {
	if s.RetentionDays < 1 {
		s.RetentionDays = DefaultRetentionDays
	}
}

// RoleExcluded reports whether any of the given roles intersects the
// excluded set.
func (s *TrackerSettings) RoleExcluded(roles []string) bool {
	if len(s.ExcludedRoles) == 0 {
		return false
	}
	excluded := make(map[string]struct{}, len(s.ExcludedRoles))
	for _, r := range s.ExcludedRoles {
		excluded[r] = struct{}{}
	}
	for _, r := range roles {
		if _, ok := excluded[r]; ok {
			return true
		}
	}
	return false
}
