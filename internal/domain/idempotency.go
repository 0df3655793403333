package domain

import "time"

// maxIdempotencyKeyLength bounds client-supplied keys so the unique index
// stays cheap and garbage input cannot bloat the idempotency table.
const maxIdempotencyKeyLength = 50

// IdempotencyKey is a validated, client-supplied token identifying one
// logical publish attempt. Construct it via ParseIdempotencyKey only.
type IdempotencyKey struct {
	value string
}

// ParseIdempotencyKey validates the raw key: non-empty, at most 50
// characters, letters/digits/hyphens only.
func ParseIdempotencyKey(raw string) (IdempotencyKey, error) {
	if raw == "" || len(raw) > maxIdempotencyKeyLength {
		return IdempotencyKey{}, ErrInvalidIdempotencyKey
	}
	for _, c := range raw {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return IdempotencyKey{}, ErrInvalidIdempotencyKey
		}
	}
	return IdempotencyKey{value: raw}, nil
}

func (k IdempotencyKey) String() string {
	return k.value
}

// HeaderPair is one response header. Order is preserved so a replayed
// response is byte-for-byte identical to the original.
type HeaderPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StoredResponse is the HTTP-equivalent outcome of a publish request,
// persisted alongside the idempotency claim and replayed verbatim on
// retries. It is a plain record, deliberately decoupled from any live
// http.ResponseWriter.
type StoredResponse struct {
	StatusCode int          `json:"status_code"`
	Headers    []HeaderPair `json:"headers"`
	Body       []byte       `json:"body"`
}

// IdempotencyRecord mirrors one row of the idempotency table. The response
// fields are nil between claim and completion; rows are never deleted.
type IdempotencyRecord struct {
	UserID    string
	Key       string
	Response  *StoredResponse
	CreatedAt time.Time
}
