package auth

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is the slice of the users collection this service reads. Registration,
// password handling and profile management live in the main CRUD API; the
// notification core only needs identity, role, contact and exam subscriptions.
type User struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name"`
	Email           string               `bson:"email" json:"email"`
	Role            string               `bson:"role" json:"role"`
	SubscribedExams []primitive.ObjectID `bson:"subscribed_exams,omitempty" json:"subscribed_exams,omitempty"`
}
