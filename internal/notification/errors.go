package notification

import "errors"

var (
	// ErrNotFound signals an operation against a nonexistent notification id.
	ErrNotFound = errors.New("notification not found")
	// ErrInvalidType rejects a type outside the closed enum.
	ErrInvalidType = errors.New("unknown notification type")
	// ErrInvalidAudience rejects an audience outside the closed enum.
	ErrInvalidAudience = errors.New("unknown target audience")
	// ErrInvalidPriority rejects a priority outside the closed enum.
	ErrInvalidPriority = errors.New("unknown priority")
	// ErrEmptyTargetUsers rejects specific-users targeting with no users.
	ErrEmptyTargetUsers = errors.New("target_users required for specific-users audience")
	// ErrMissingContent rejects an empty title or message.
	ErrMissingContent = errors.New("title and message are required")
	// ErrTitleTooLong rejects a title over MaxTitleLength runes.
	ErrTitleTooLong = errors.New("title exceeds maximum length")
)
