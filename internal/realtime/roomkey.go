package realtime

import (
	"fmt"
	"strings"
)

// RoomFamily distinguishes the three addressing families. Keeping the family
// as a tag instead of a string prefix prevents key collisions between, say,
// user "7" and study room "7".
type RoomFamily int

const (
	FamilyUser RoomFamily = iota
	FamilyExam
	FamilyStudyRoom
)

// RoomKey addresses one fan-out room. The wire form ("user:{id}",
// "exam:{id}", "studyroom:{id}") only exists at the transport boundary.
type RoomKey struct {
	Family RoomFamily
	ID     string
}

func UserRoom(userID string) RoomKey {
	return RoomKey{Family: FamilyUser, ID: userID}
}

func ExamRoom(examID string) RoomKey {
	return RoomKey{Family: FamilyExam, ID: examID}
}

func StudyRoom(roomID string) RoomKey {
	return RoomKey{Family: FamilyStudyRoom, ID: roomID}
}

// String renders the wire form of the key.
func (k RoomKey) String() string {
	switch k.Family {
	case FamilyUser:
		return "user:" + k.ID
	case FamilyExam:
		return "exam:" + k.ID
	case FamilyStudyRoom:
		return "studyroom:" + k.ID
	}
	return "unknown:" + k.ID
}

// ParseRoomKey parses a wire-form key back into its tagged form.
func ParseRoomKey(s string) (RoomKey, error) {
	prefix, id, found := strings.Cut(s, ":")
	if !found || id == "" {
		return RoomKey{}, fmt.Errorf("malformed room key %q", s)
	}
	switch prefix {
	case "user":
		return UserRoom(id), nil
	case "exam":
		return ExamRoom(id), nil
	case "studyroom":
		return StudyRoom(id), nil
	}
	return RoomKey{}, fmt.Errorf("unknown room family %q", prefix)
}
