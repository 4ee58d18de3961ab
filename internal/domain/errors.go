package domain

import "errors"

var (
	// ErrInvalidConfiguration is returned when a quiz cannot be started with the given
	// questions or settings.
	ErrInvalidConfiguration = errors.New("invalid quiz configuration")
	// ErrPreconditionViolation marks a caller error: acting on a finished session,
	// choosing an option that does not exist, or navigating outside test mode.
	ErrPreconditionViolation = errors.New("precondition violation")
	// ErrSessionNotFound is returned when a quiz session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrTopicNotFound indicates the topic could not be loaded from any source.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrQuestionNotFound indicates a question id is not part of the topic.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrBookmarkNotFound is returned when removing a bookmark that was never saved.
	ErrBookmarkNotFound = errors.New("bookmark not found")
	// ErrSettingsNotFound means the user has never stored settings.
	ErrSettingsNotFound = errors.New("settings not found")
)
