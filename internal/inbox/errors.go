package inbox

import "errors"

// ErrorKind says which collection fetch failed.
type ErrorKind string

// Fetch error kinds
const (
	KindInit       ErrorKind = "init-error"
	KindPagination ErrorKind = "pagination-error"
)

// FetchError is retained on the store after a failed list fetch and returned
// to the caller. It is cleared by the next successful list fetch.
type FetchError struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
	Err     error     `json:"-"`
}

func (e *FetchError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newFetchError(kind ErrorKind, err error) *FetchError {
	return &FetchError{Message: err.Error(), Kind: kind, Err: err}
}

// ErrNotFound is returned by services when an issue does not exist.
var ErrNotFound = errors.New("inbox issue not found")
