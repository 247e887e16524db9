package exam

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound signals an operation against a nonexistent exam id.
	ErrNotFound = errors.New("exam not found")
	// ErrInvalidStatus rejects a status outside the closed enum.
	ErrInvalidStatus = errors.New("unknown exam status")
)

// Repository handles DB operations for exams.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection("exams")}
}

// EnsureIndexes creates the lookups the scheduler depends on.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "important_dates.application_end_date", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "important_dates.exam_date", Value: 1}}},
	})
	return err
}

func (r *Repository) Create(ctx context.Context, e *Exam) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Status == "" {
		e.Status = StatusUpcoming
	}
	res, err := r.collection.InsertOne(ctx, e)
	if err != nil {
		return err
	}
	e.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*Exam, error) {
	var e Exam
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// FindByName is the scraper's dedup probe; returns nil, nil when absent.
func (r *Repository) FindByName(ctx context.Context, name string) (*Exam, error) {
	var e Exam
	err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *Repository) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*Exam, error) {
	delete(fields, "created_at")
	fields["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var e Exam
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// CloseExpiredApplications moves every application-open exam whose application
// window ended before now to application-closed. The status filter makes the
// transition forward-only and the operation re-entrant.
func (r *Repository) CloseExpiredApplications(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{
			"status":                               StatusApplicationOpen,
			"important_dates.application_end_date": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{"status": StatusApplicationClosed, "updated_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CompleteFinishedExams moves application-closed and upcoming exams whose exam
// date has passed to completed.
func (r *Repository) CompleteFinishedExams(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{
			"status":                    bson.M{"$in": []Status{StatusApplicationClosed, StatusUpcoming}},
			"important_dates.exam_date": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{"status": StatusCompleted, "updated_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// FindClosingWithin returns application-open exams whose application window
// ends inside [from, until] — the deadline-warning candidates.
func (r *Repository) FindClosingWithin(ctx context.Context, from, until time.Time) ([]*Exam, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"status": StatusApplicationOpen,
		"important_dates.application_end_date": bson.M{"$gte": from, "$lte": until},
	})
	if err != nil {
		return nil, err
	}
	var exams []*Exam
	if err := cursor.All(ctx, &exams); err != nil {
		return nil, err
	}
	return exams, nil
}
