package types

import (
	"fmt"
	"net/http"
	"time"
)

// FailureClass is the closed classification of upstream fetch outcomes,
// consumed uniformly by the retry policy and the negative-cache TTL policy.
type FailureClass int

const (
	FailureNone FailureClass = iota
	// FailureNotFound is an upstream 404, retriable after a short window.
	FailureNotFound
	// FailureBlocked is an upstream 403, treated as temporary throttling.
	FailureBlocked
	// FailureUpstream covers 5xx, timeouts and transport errors.
	FailureUpstream
	// FailureMalformed is a 2xx body missing the identifying field. It is not
	// recorded and not retried, it points at a data problem rather than a
	// transient fault.
	FailureMalformed
	// FailureOther is any non-2xx status without explicit handling.
	FailureOther
)

func (c FailureClass) String() string {
	switch c {
	case FailureNone:
		return "none"
	case FailureNotFound:
		return "not_found"
	case FailureBlocked:
		return "blocked"
	case FailureUpstream:
		return "upstream_error"
	case FailureMalformed:
		return "malformed"
	case FailureOther:
		return "other"
	default:
		return "unknown"
	}
}

// Retriable reports whether the class is in the quick-retry set used by the
// fetch retry wrapper.
func (c FailureClass) Retriable() bool {
	return c == FailureNotFound || c == FailureBlocked
}

// ClassifyStatus maps one upstream outcome to a failure class. err wins over
// the status code: any transport error counts as an upstream failure.
func ClassifyStatus(status int, err error) FailureClass {
	if err != nil {
		return FailureUpstream
	}
	switch {
	case status >= 200 && status < 300:
		return FailureNone
	case status == http.StatusNotFound:
		return FailureNotFound
	case status == http.StatusForbidden:
		return FailureBlocked
	case status >= 500:
		return FailureUpstream
	default:
		return FailureOther
	}
}

// FailureRecord is the persisted negative-cache entry for one object key.
type FailureRecord struct {
	Status   int   `json:"status"`
	FailedAt int64 `json:"failed_at"`
}

// Class derives the failure class recorded status.
func (r *FailureRecord) Class() FailureClass {
	return ClassifyStatus(r.Status, nil)
}

// Age returns the elapsed time since the failure was recorded.
func (r *FailureRecord) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(r.FailedAt, 0))
}

// FetchFailure is the absorbed outcome of a failed single-object fetch.
type FetchFailure struct {
	ObjectID int
	Status   int
	Class    FailureClass
	Err      error
}

func (f *FetchFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("fetch object %d: %s (status %d): %v", f.ObjectID, f.Class, f.Status, f.Err)
	}
	return fmt.Sprintf("fetch object %d: %s (status %d)", f.ObjectID, f.Class, f.Status)
}

func (f *FetchFailure) Unwrap() error {
	return f.Err
}
