// internal/app/store/events/eventstore.go

// Package eventstore persists visit and login events and answers the
// aggregation queries the analytics API serves.
package eventstore

import (
	"context"
	"time"

	"github.com/tangra/visitortrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TopPagesLimit caps the top-pages grouping in aggregation results.
const TopPagesLimit = 15

// Store provides access to the visit_events collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new event store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("visit_events")}
}

// Insert persists a single event. Events are append-only; there is no
// update path.
func (s *Store) Insert(ctx context.Context, ev models.Event) error {
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, ev)
	return err
}

// DeleteOlderThan removes every event with a timestamp before cutoff and
// returns the number deleted. Used by the retention sweeper.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"ts": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Clear removes all events and returns the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListPage returns one page of events, newest first, plus the total
// count. page is 1-based.
func (s *Store) ListPage(ctx context.Context, page, pageSize int64) ([]models.Event, int64, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	if page <= 0 {
		page = 1
	}

	total, err := s.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: -1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// FindByEmailPage returns one page of events attributed to email, oldest
// first so an export paged from page 1 is stable while new events arrive.
func (s *Store) FindByEmailPage(ctx context.Context, email string, page, pageSize int64) ([]models.Event, error) {
	if pageSize <= 0 {
		pageSize = 250
	}
	if page <= 0 {
		page = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: 1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := s.c.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteByEmailBatch removes up to limit events attributed to email and
// reports how many went and whether the collection still holds more.
// Erasure requests work through large histories one batch at a time so a
// single request never holds the store for too long.
func (s *Store) DeleteByEmailBatch(ctx context.Context, email string, limit int64) (removed int64, done bool, err error) {
	if limit <= 0 {
		limit = 500
	}

	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return 0, false, err
	}

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return 0, false, err
	}
	if len(docs) == 0 {
		return 0, true, nil
	}

	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	res, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, false, err
	}
	return res.DeletedCount, int64(len(docs)) < limit, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Aggregation                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Filter bounds an aggregation query. From and To are calendar dates;
// From is widened to start of day and To to end of day. A zero value
// leaves that dimension unbounded. When IncludeGuests is false, records
// without an attributed email are excluded from every output.
type Filter struct {
	From          *time.Time
	To            *time.Time
	Kind          models.EventKind
	IncludeGuests bool
}

// KPIs are the headline counts for a filtered set of events.
type KPIs struct {
	Total        int64 `json:"total"`
	Views        int64 `json:"views"`
	Logins       int64 `json:"logins"`
	UniqueEmails int64 `json:"unique"`
}

// DailyCount is one day's event count in the daily series.
type DailyCount struct {
	Day   string `json:"day" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// PageCount is one URL's event count in the top-pages grouping.
type PageCount struct {
	URL   string `json:"url" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// Summary is the full aggregation result.
type Summary struct {
	KPIs     KPIs         `json:"kpis"`
	Daily    []DailyCount `json:"daily"`
	TopPages []PageCount  `json:"top_pages"`
}

// matchStage builds the $match document for a filter. Day widening uses
// UTC; event timestamps are stored in UTC.
func matchStage(f Filter) bson.M {
	match := bson.M{}

	if f.From != nil || f.To != nil {
		ts := bson.M{}
		if f.From != nil {
			from := time.Date(f.From.Year(), f.From.Month(), f.From.Day(), 0, 0, 0, 0, time.UTC)
			ts["$gte"] = from
		}
		if f.To != nil {
			to := time.Date(f.To.Year(), f.To.Month(), f.To.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
			ts["$lt"] = to
		}
		match["ts"] = ts
	}
	if f.Kind != "" {
		match["event"] = f.Kind
	}
	if !f.IncludeGuests {
		match["email"] = bson.M{"$exists": true, "$nin": bson.A{nil, ""}}
	}
	return match
}

// Aggregate computes KPI totals, the daily series, and the top-pages
// grouping for the filtered subset of events. Days with no events are
// omitted from the series, not zero-filled.
func (s *Store) Aggregate(ctx context.Context, f Filter) (*Summary, error) {
	match := matchStage(f)

	kpis, err := s.aggregateKPIs(ctx, match)
	if err != nil {
		return nil, err
	}
	daily, err := s.aggregateDaily(ctx, match)
	if err != nil {
		return nil, err
	}
	top, err := s.aggregateTopPages(ctx, match)
	if err != nil {
		return nil, err
	}

	return &Summary{KPIs: kpis, Daily: daily, TopPages: top}, nil
}

func (s *Store) aggregateKPIs(ctx context.Context, match bson.M) (KPIs, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"views": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$event", models.EventView}}, 1, 0},
			}},
			"logins": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$event", models.EventLogin}}, 1, 0},
			}},
			"emails": bson.M{"$addToSet": "$email"},
		}}},
	}

	cursor, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return KPIs{}, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total  int64  `bson:"total"`
		Views  int64  `bson:"views"`
		Logins int64  `bson:"logins"`
		Emails bson.A `bson:"emails"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return KPIs{}, err
	}
	if len(rows) == 0 {
		return KPIs{}, nil
	}

	row := rows[0]
	var unique int64
	for _, e := range row.Emails {
		if s, ok := e.(string); ok && s != "" {
			unique++
		}
	}
	return KPIs{
		Total:        row.Total,
		Views:        row.Views,
		Logins:       row.Logins,
		UniqueEmails: unique,
	}, nil
}

func (s *Store) aggregateDaily(ctx context.Context, match bson.M) ([]DailyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d",
				"date":   "$ts",
			}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var daily []DailyCount
	if err := cursor.All(ctx, &daily); err != nil {
		return nil, err
	}
	return daily, nil
}

func (s *Store) aggregateTopPages(ctx context.Context, match bson.M) ([]PageCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$url",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: TopPagesLimit}},
	}

	cursor, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pages []PageCount
	if err := cursor.All(ctx, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}
