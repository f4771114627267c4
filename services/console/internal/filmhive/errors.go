package filmhive

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthRequired is returned before any network call when an
	// authenticated operation runs without a token.
	ErrAuthRequired = errors.New("filmhive: authentication required")
	// ErrUnexpectedResponse means a 2xx body did not match the schema.
	ErrUnexpectedResponse = errors.New("filmhive: unexpected response")

	ErrEmptyText     = errors.New("text must not be empty")
	ErrTextTooLong   = errors.New("text is too long")
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrConsecutiveReply is the reply guard's refusal.
	ErrConsecutiveReply = errors.New("you cannot reply twice in a row")
	// ErrNotAuthor is the client-side refusal to change someone else's reply.
	ErrNotAuthor = errors.New("you can only change your own replies")
)

// Op names an API operation. It labels errors, logs and metrics.
type Op string

const (
	OpListComments       Op = "list_comments"
	OpMovieComments      Op = "movie_comments"
	OpAddComment         Op = "add_comment"
	OpUpdateComment      Op = "update_comment"
	OpDeleteComment      Op = "delete_comment"
	OpStaffUpdateComment Op = "staff_update_comment"
	OpStaffDeleteComment Op = "staff_delete_comment"
	OpCommentDetails     Op = "comment_details"
	OpCommentStatistics  Op = "comment_statistics"
	OpThread             Op = "thread"
	OpAddReply           Op = "add_reply"
	OpUpdateReply        Op = "update_reply"
	OpDeleteReply        Op = "delete_reply"
)

var genericMessages = map[Op]string{
	OpListComments:       "Failed to load comments",
	OpMovieComments:      "Failed to load comments for this movie",
	OpAddComment:         "Failed to add comment",
	OpUpdateComment:      "Failed to update comment",
	OpDeleteComment:      "Failed to delete comment",
	OpStaffUpdateComment: "Failed to update comment",
	OpStaffDeleteComment: "Failed to delete comment",
	OpCommentDetails:     "Failed to load comment details",
	OpCommentStatistics:  "Failed to load comment statistics",
	OpThread:             "Failed to load replies",
	OpAddReply:           "Failed to add reply",
	OpUpdateReply:        "Failed to update reply",
	OpDeleteReply:        "Failed to delete reply",
}

// GenericMessage is the fallback user-facing text for op.
func (op Op) GenericMessage() string {
	if m, ok := genericMessages[op]; ok {
		return m
	}
	return "Something went wrong"
}

// HTTPError is a non-2xx response. Message is the body's "error" field when
// present, otherwise the operation's generic message.
type HTTPError struct {
	Op      Op
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("filmhive %s: status %d: %s", e.Op, e.Status, e.Message)
}

// NetworkError is a failure below HTTP: DNS, refused connection, timeout.
type NetworkError struct {
	Op  Op
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("filmhive %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is a client-side check that failed before any request.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsForbidden reports whether err is a 401/403 from the API.
func IsForbidden(err error) bool {
	s := statusOf(err)
	return s == http.StatusForbidden || s == http.StatusUnauthorized
}

func statusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// UserMessage turns any error from this package into the text shown to a
// person. fallback is used when nothing more specific is known.
func UserMessage(err error, fallback Op) string {
	if err == nil {
		return ""
	}
	var (
		he *HTTPError
		ne *NetworkError
		ve *ValidationError
	)
	switch {
	case errors.Is(err, ErrAuthRequired):
		return "Please sign in to continue"
	case errors.As(err, &ve):
		return validationMessage(ve)
	case errors.As(err, &he):
		return he.Message
	case errors.As(err, &ne):
		return ne.Op.GenericMessage()
	default:
		return fallback.GenericMessage()
	}
}

func validationMessage(ve *ValidationError) string {
	switch {
	case errors.Is(ve.Err, ErrEmptyText):
		return "Text must not be empty"
	case errors.Is(ve.Err, ErrTextTooLong):
		return ve.Err.Error()
	case errors.Is(ve.Err, ErrNotAuthor):
		return "You can only change your own replies"
	case errors.Is(ve.Err, ErrConsecutiveReply):
		return "You cannot reply twice in a row. Wait for someone else to answer."
	default:
		return ve.Error()
	}
}
