package thread

import "github.com/example/filmhive/services/console/internal/filmhive"

// Decision is the reply guard's verdict.
type Decision int

const (
	Allowed Decision = iota
	Blocked
)

func (d Decision) String() string {
	if d == Blocked {
		return "blocked"
	}
	return "allowed"
}

// CheckReply blocks a viewer from answering their own reply. Zero means
// unknown and is always allowed. Only the immediately preceding reply
// counts; this is not a rate limit and the server does not enforce it.
func CheckReply(lastReplyUserID, viewerID int64) Decision {
	if lastReplyUserID <= 0 || viewerID <= 0 {
		return Allowed
	}
	if lastReplyUserID == viewerID {
		return Blocked
	}
	return Allowed
}

// GuardThread applies CheckReply to the last reply of t.
func GuardThread(t *filmhive.Thread, viewerID int64) Decision {
	last, ok := t.LastReply()
	if !ok {
		return Allowed
	}
	return CheckReply(last.UserID, viewerID)
}
