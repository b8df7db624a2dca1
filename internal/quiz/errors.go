package quiz

import "errors"

var (
	// ErrInvalidQuestionCount is returned when a requested question count
	// is not one of AllowedQuestionCounts.
	ErrInvalidQuestionCount = errors.New("invalid question count")
	// ErrDocumentNotFound is returned when a document does not exist or is
	// not owned by the requesting principal.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrQuizNotFound is returned when a quiz does not exist or is not
	// owned by the requesting principal.
	ErrQuizNotFound = errors.New("quiz not found")
)
