package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

const (
	trailCollection  = "location_trail"
	statusCollection = "status_events"

	defaultRetention = 30 * 24 * time.Hour
)

// ArchiveRepository implements ports.TrailArchive using MongoDB. It is the
// durable mirror of the in-memory trail: every accepted location fix and
// status change lands here for audit and analytics queries.
type ArchiveRepository struct {
	db        *mongo.Database
	retention time.Duration
}

// NewArchiveRepository creates an ArchiveRepository. A non-positive retention
// falls back to 30 days; expiry is enforced by a TTL index on recorded_at.
func NewArchiveRepository(db *mongo.Database, retention time.Duration) *ArchiveRepository {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &ArchiveRepository{db: db, retention: retention}
}

var _ ports.TrailArchive = (*ArchiveRepository)(nil)

// AppendLocation persists one location record to the trail collection.
func (r *ArchiveRepository) AppendLocation(ctx context.Context, record domain.LocationRecord) error {
	doc := bson.M{
		"session_id":  record.SessionID,
		"order_id":    record.OrderID,
		"lat":         record.Lat,
		"lng":         record.Lng,
		"accuracy_m":  record.AccuracyM,
		"source":      string(record.Source),
		"recorded_at": record.RecordedAt.UTC(),
		"archived_at": time.Now().UTC(),
	}
	if record.SpeedKmh != nil {
		doc["speed_kmh"] = *record.SpeedKmh
	}
	if record.BearingDeg != nil {
		doc["bearing_deg"] = *record.BearingDeg
	}

	_, err := r.db.Collection(trailCollection).InsertOne(ctx, doc)
	return err
}

// AppendStatusChange persists one status transition to the audit collection.
func (r *ArchiveRepository) AppendStatusChange(ctx context.Context, sessionID string, status domain.TrackingStatus, message string, at time.Time) error {
	doc := bson.M{
		"session_id":  sessionID,
		"status":      string(status),
		"message":     message,
		"recorded_at": at.UTC(),
		"archived_at": time.Now().UTC(),
	}

	_, err := r.db.Collection(statusCollection).InsertOne(ctx, doc)
	return err
}

// EnsureIndexes creates the lookup and TTL indexes on both collections.
func (r *ArchiveRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ttl := int32(r.retention / time.Second)

	trailIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "recorded_at", Value: -1}}},
		{Keys: bson.D{{Key: "order_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "recorded_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(ttl),
		},
	}
	if _, err := r.db.Collection(trailCollection).Indexes().CreateMany(ctx, trailIndexes); err != nil {
		return err
	}

	statusIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "recorded_at", Value: -1}}},
	}
	_, err := r.db.Collection(statusCollection).Indexes().CreateMany(ctx, statusIndexes)
	return err
}
