package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Type classifies a notification. Closed set: creation rejects anything else.
type Type string

const (
	TypeExamUpdate Type = "exam-update"
	TypeResult     Type = "result"
	TypeAdmitCard  Type = "admit-card"
	TypeNewVacancy Type = "new-vacancy"
	TypeDeadline   Type = "deadline"
	TypeResource   Type = "resource"
	TypeSystem     Type = "system"
	TypeUrgent     Type = "urgent"
)

func (t Type) Valid() bool {
	switch t {
	case TypeExamUpdate, TypeResult, TypeAdmitCard, TypeNewVacancy,
		TypeDeadline, TypeResource, TypeSystem, TypeUrgent:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Audience is the targeting rule attached to a notification.
type Audience string

const (
	AudienceAll           Audience = "all"
	AudienceSubscribers   Audience = "subscribers"
	AudienceSpecificUsers Audience = "specific-users"
)

func (a Audience) Valid() bool {
	switch a {
	case AudienceAll, AudienceSubscribers, AudienceSpecificUsers:
		return true
	}
	return false
}

// MaxTitleLength bounds the title field.
const MaxTitleLength = 200

// ReadReceipt records that one user read the notification. A user appears at
// most once in ReadBy; presence implies read.
type ReadReceipt struct {
	User   primitive.ObjectID `bson:"user" json:"user"`
	ReadAt time.Time          `bson:"read_at" json:"read_at"`
}

// Provenance carries where an ingested notification was scraped from. Used for
// deduplication and audit only; delivery payloads never include it.
type Provenance struct {
	Source      string     `bson:"source" json:"source"`
	SourceURL   string     `bson:"source_url,omitempty" json:"source_url,omitempty"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`
}

// Notification is the persisted record of one notification.
type Notification struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title          string               `bson:"title" json:"title"`
	Message        string               `bson:"message" json:"message"`
	Link           string               `bson:"link,omitempty" json:"link,omitempty"`
	Icon           string               `bson:"icon,omitempty" json:"icon,omitempty"`
	Color          string               `bson:"color,omitempty" json:"color,omitempty"`
	Type           Type                 `bson:"type" json:"type"`
	Priority       Priority             `bson:"priority" json:"priority"`
	TargetAudience Audience             `bson:"target_audience" json:"target_audience"`
	TargetUsers    []primitive.ObjectID `bson:"target_users,omitempty" json:"target_users,omitempty"`
	TargetExams    []primitive.ObjectID `bson:"target_exams,omitempty" json:"target_exams,omitempty"`
	Exam           *primitive.ObjectID  `bson:"exam,omitempty" json:"exam,omitempty"`
	Resource       *primitive.ObjectID  `bson:"resource,omitempty" json:"resource,omitempty"`
	ReadBy         []ReadReceipt        `bson:"read_by,omitempty" json:"read_by,omitempty"`
	IsActive       bool                 `bson:"is_active" json:"is_active"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	ExpiresAt      *time.Time           `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	Provenance     *Provenance          `bson:"provenance,omitempty" json:"provenance,omitempty"`
}

// Payload is the subset of fields pushed over the socket for notification:new.
func (n *Notification) Payload() map[string]interface{} {
	return map[string]interface{}{
		"id":      n.ID.Hex(),
		"title":   n.Title,
		"message": n.Message,
		"type":    n.Type,
		"icon":    n.Icon,
		"color":   n.Color,
	}
}

// DeadlinePayload is the variant pushed for notification:deadline.
func (n *Notification) DeadlinePayload(examID primitive.ObjectID) map[string]interface{} {
	return map[string]interface{}{
		"id":      n.ID.Hex(),
		"title":   n.Title,
		"message": n.Message,
		"examId":  examID.Hex(),
	}
}

// UserView is a notification annotated with the requesting user's read state.
type UserView struct {
	Notification `bson:",inline"`
	IsRead       bool       `bson:"-" json:"is_read"`
	ReadAt       *time.Time `bson:"-" json:"read_at,omitempty"`
}

// ForUser builds the user-facing view of the notification.
func (n *Notification) ForUser(userID primitive.ObjectID) UserView {
	view := UserView{Notification: *n}
	for _, receipt := range n.ReadBy {
		if receipt.User == userID {
			view.IsRead = true
			readAt := receipt.ReadAt
			view.ReadAt = &readAt
			break
		}
	}
	return view
}
