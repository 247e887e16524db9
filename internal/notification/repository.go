package notification

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// tickerTypes are the categories surfaced on the public ticker strip.
var tickerTypes = []Type{TypeUrgent, TypeExamUpdate, TypeResult, TypeNewVacancy, TypeDeadline}

const tickerLimit = 10

// Repository handles DB operations for notifications.
type Repository struct {
	collection *mongo.Collection
}

// NewRepository creates a new repository for notifications.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("notifications")}
}

// EnsureIndexes creates the lookup indexes: active+type+recency for ticker and
// list queries, exam reference, and a TTL index on expires_at so expired
// records are physically removed by the server.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "type", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "exam", Value: 1}}},
		{Keys: bson.D{{Key: "target_exams", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	return err
}

// Create validates the closed enums, stamps created_at and inserts the record.
func (r *Repository) Create(ctx context.Context, n *Notification) error {
	if !n.Type.Valid() {
		return ErrInvalidType
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if n.TargetAudience == "" {
		n.TargetAudience = AudienceAll
	}
	n.IsActive = true
	n.CreatedAt = time.Now().UTC()

	res, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	n.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Notification, error) {
	var n Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// audienceFilter matches notifications visible to the user: broadcast-all,
// directly targeted, or targeting an exam the user subscribes to.
func audienceFilter(userID primitive.ObjectID, subscribedExams []primitive.ObjectID) bson.M {
	or := []bson.M{
		{"target_audience": AudienceAll},
		{"target_users": userID},
	}
	if len(subscribedExams) > 0 {
		or = append(or, bson.M{"target_exams": bson.M{"$in": subscribedExams}})
	}
	return bson.M{"is_active": true, "$or": or}
}

// ListForUser returns active notifications matching the user's audience
// filter, newest first. unreadOnly drops records the user already read.
func (r *Repository) ListForUser(ctx context.Context, userID primitive.ObjectID, subscribedExams []primitive.ObjectID, unreadOnly bool, limit int64) ([]*Notification, error) {
	filter := audienceFilter(userID, subscribedExams)
	if unreadOnly {
		filter["read_by.user"] = bson.M{"$ne": userID}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var notifications []*Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// Ticker returns the latest headline notifications, capped at ten.
func (r *Repository) Ticker(ctx context.Context) ([]*Notification, error) {
	filter := bson.M{"is_active": true, "type": bson.M{"$in": tickerTypes}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(tickerLimit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var notifications []*Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// ListByType returns active notifications of one type, newest first.
func (r *Repository) ListByType(ctx context.Context, t Type, limit int64) ([]*Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"is_active": true, "type": t}, opts)
	if err != nil {
		return nil, err
	}
	var notifications []*Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead appends a read receipt for the user unless one exists. The guarded
// filter makes the append atomic: a concurrent duplicate simply matches
// nothing, so a user can never appear twice in read_by.
func (r *Repository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "read_by.user": bson.M{"$ne": userID}}
	update := bson.M{"$push": bson.M{"read_by": ReadReceipt{User: userID, ReadAt: time.Now().UTC()}}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either already read (fine) or the id does not exist.
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// MarkAllRead appends a read receipt to every notification in the user's
// audience that the user has not read yet. Returns how many were marked.
func (r *Repository) MarkAllRead(ctx context.Context, userID primitive.ObjectID, subscribedExams []primitive.ObjectID) (int64, error) {
	filter := audienceFilter(userID, subscribedExams)
	filter["read_by.user"] = bson.M{"$ne": userID}
	update := bson.M{"$push": bson.M{"read_by": ReadReceipt{User: userID, ReadAt: time.Now().UTC()}}}

	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnreadCount reports how many audience-visible notifications the user has
// not read.
func (r *Repository) UnreadCount(ctx context.Context, userID primitive.ObjectID, subscribedExams []primitive.ObjectID) (int64, error) {
	filter := audienceFilter(userID, subscribedExams)
	filter["read_by.user"] = bson.M{"$ne": userID}
	return r.collection.CountDocuments(ctx, filter)
}

// Update applies a partial update to mutable fields. created_at is immutable.
func (r *Repository) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	delete(fields, "created_at")
	res, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired bulk-deletes records created before olderThan whose type is
// not in excludeTypes. Returns the number deleted.
func (r *Repository) PurgeExpired(ctx context.Context, olderThan time.Time, excludeTypes []Type) (int64, error) {
	filter := bson.M{"created_at": bson.M{"$lt": olderThan}}
	if len(excludeTypes) > 0 {
		filter["type"] = bson.M{"$nin": excludeTypes}
	}
	res, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindByTitleAndSource is the ingestion dedup probe: same title from the same
// scraped source means the record already exists.
func (r *Repository) FindByTitleAndSource(ctx context.Context, title, source string) (*Notification, error) {
	var n Notification
	err := r.collection.FindOne(ctx, bson.M{"title": title, "provenance.source": source}).Decode(&n)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// ExistsDeadlineSince reports whether a deadline notification for the exam was
// created at or after the given instant (the start of the current UTC day).
func (r *Repository) ExistsDeadlineSince(ctx context.Context, examID primitive.ObjectID, since time.Time) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"type":         TypeDeadline,
		"target_exams": examID,
		"created_at":   bson.M{"$gte": since},
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
