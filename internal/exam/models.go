package exam

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the exam lifecycle state. Scheduler-driven transitions are
// forward-only: upcoming -> application-open -> application-closed ->
// completed. "ongoing" is an alternate branch assigned manually, never by the
// scheduler.
type Status string

const (
	StatusUpcoming          Status = "upcoming"
	StatusOngoing           Status = "ongoing"
	StatusApplicationOpen   Status = "application-open"
	StatusApplicationClosed Status = "application-closed"
	StatusCompleted         Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusOngoing, StatusApplicationOpen,
		StatusApplicationClosed, StatusCompleted:
		return true
	}
	return false
}

// ImportantDates drive the scheduler's transitions and deadline warnings.
type ImportantDates struct {
	ApplicationStartDate *time.Time `bson:"application_start_date,omitempty" json:"application_start_date,omitempty"`
	ApplicationEndDate   *time.Time `bson:"application_end_date,omitempty" json:"application_end_date,omitempty"`
	ExamDate             *time.Time `bson:"exam_date,omitempty" json:"exam_date,omitempty"`
}

type Exam struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Category       string             `bson:"category" json:"category"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	Status         Status             `bson:"status" json:"status"`
	ImportantDates ImportantDates     `bson:"important_dates" json:"important_dates"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// Payload is the subset pushed over the socket for exam:new / exam:updated.
func (e *Exam) Payload() map[string]interface{} {
	return map[string]interface{}{
		"id":       e.ID.Hex(),
		"name":     e.Name,
		"category": e.Category,
	}
}
