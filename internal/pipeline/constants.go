package pipeline

const (
	// DefaultUserID owns documents when the caller does not identify a user.
	DefaultUserID = "local"

	// MaxErrorLength bounds the failure message stored on a document.
	MaxErrorLength = 2000
)
