package errors

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalid    = errors.New("invalid")
	ErrConflict   = errors.New("conflict")
	ErrTooMany    = errors.New("too many requests")
	ErrEmptyIndex = errors.New("empty index")
	ErrUpstream   = errors.New("upstream failure")
	ErrStorage    = errors.New("storage failure")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
