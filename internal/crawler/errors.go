package crawler

import "errors"

// Failure kinds. Every component wraps its errors with one of these so the
// caller can tell an unreachable portal from a page it could not read.
var (
	// ErrTransport covers connection failures, timeouts and non-success statuses.
	ErrTransport = errors.New("transport failure")
	// ErrMalformed means the response arrived but lacked an expected element or column.
	ErrMalformed = errors.New("malformed response")
	// ErrStorage covers archive uploads and local temp file handling.
	ErrStorage = errors.New("storage failure")
	// ErrToken means no session token could be obtained; the crawl cannot start.
	ErrToken = errors.New("session token unavailable")
)

// Kind is a short label for a failure, used in logs and metric labels.
type Kind string

// Kind values returned by KindOf.
const (
	KindNone      Kind = ""
	KindTransport Kind = "transport"
	KindMalformed Kind = "malformed"
	KindStorage   Kind = "storage"
	KindToken     Kind = "token"
	KindOther     Kind = "other"
)

// KindOf classifies err against the failure kinds.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrToken):
		return KindToken
	default:
		return KindOther
	}
}
