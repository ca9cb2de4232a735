// internal/app/store/trackersettings/settingsstore.go
package settingsstore

import (
	"context"
	"time"

	"github.com/tangra/visitortrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the tracker_settings collection.
// Settings are a singleton document; there is one tracker per site.
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tracker_settings")}
}

// Get returns the tracker settings.
// If no settings exist yet, returns the defaults without writing them.
func (s *Store) Get(ctx context.Context) (*models.TrackerSettings, error) {
	var settings models.TrackerSettings
	// Singleton filter - there's only one settings document
	filter := bson.M{"singleton": true}
	err := s.c.FindOne(ctx, filter).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		defaults := models.DefaultTrackerSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	settings.Normalize()
	return &settings, nil
}

// Save updates the tracker settings.
// Uses upsert so it works whether settings exist or not.
func (s *Store) Save(ctx context.Context, settings models.TrackerSettings) error {
	settings.Normalize()
	now := time.Now().UTC()
	settings.UpdatedAt = &now

	filter := bson.M{"singleton": true}
	update := bson.M{
		"$set": bson.M{
			"singleton":      true,
			"track_guests":   settings.TrackGuests,
			"anonymize_ip":   settings.AnonymizeIP,
			"retention_days": settings.RetentionDays,
			"excluded_roles": settings.ExcludedRoles,
			"updated_at":     settings.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id": primitive.NewObjectID(),
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, filter, update, opts)
	return err
}

// Exists reports whether settings have been saved yet.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"singleton": true})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
