package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomKeyWireForm(t *testing.T) {
	tests := []struct {
		key  RoomKey
		wire string
	}{
		{UserRoom("42"), "user:42"},
		{ExamRoom("upsc-2026"), "exam:upsc-2026"},
		{StudyRoom("7"), "studyroom:7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wire, tt.key.String())

		parsed, err := ParseRoomKey(tt.wire)
		require.NoError(t, err)
		assert.Equal(t, tt.key, parsed)
	}
}

func TestRoomKeyFamiliesDoNotCollide(t *testing.T) {
	// Same raw id, different families: distinct keys.
	assert.NotEqual(t, UserRoom("7"), StudyRoom("7"))
	assert.NotEqual(t, UserRoom("7"), ExamRoom("7"))
}

func TestParseRoomKeyRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "user", "user:", "session:9"} {
		_, err := ParseRoomKey(raw)
		assert.Error(t, err, "input %q", raw)
	}
}
