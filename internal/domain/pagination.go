package domain

import (
	"encoding/base64"
	"strconv"
)

// DefaultMaxResults is the page size used when a request does not set one.
const DefaultMaxResults = 100

// MaxMaxResults caps the page size a request may ask for.
const MaxMaxResults = 1000

// PageRequest carries the paging parameters of a list operation. PageToken is
// opaque to callers; only this package knows how to decode it.
type PageRequest struct {
	MaxResults int
	PageToken  string
}

// Limit returns the effective page size, clamped to [1, MaxMaxResults].
func (p PageRequest) Limit() int {
	switch {
	case p.MaxResults <= 0:
		return DefaultMaxResults
	case p.MaxResults > MaxMaxResults:
		return MaxMaxResults
	}
	return p.MaxResults
}

// Offset decodes the page token into a row offset. Empty and malformed
// tokens both mean the first page, so stale clients degrade rather than
// error.
func (p PageRequest) Offset() int {
	if p.PageToken == "" {
		return 0
	}
	raw, err := base64.RawURLEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// EncodePageToken builds an opaque token for the given row offset. A
// non-positive offset yields the empty token.
func EncodePageToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// NextPageToken returns the token for the page after the current one, or the
// empty string when the current page already reaches total.
func NextPageToken(offset, limit int, total int64) string {
	next := offset + limit
	if int64(next) >= total {
		return ""
	}
	return EncodePageToken(next)
}
