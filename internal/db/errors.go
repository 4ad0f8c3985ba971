package db

import "errors"

var (
	// ErrKeyNotFound is returned by Cache.Get for a missing or expired key.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexExists is returned by CreateIndex when the name is taken.
	ErrIndexExists = errors.New("db: index already exists")
)

// Op is the Redis command behind a failure.
type Op string

const (
	OpCreateIndex Op = "FT.CREATE"
	OpSearch      Op = "FT.SEARCH"
	OpDel         Op = "DEL"
	OpHGetAll     Op = "HGETALL"
	OpHSet        Op = "HSET"
	OpGet         Op = "GET"
	OpSet         Op = "SET"
)

// Error carries the failed command and, when there is one, the key it touched.
type Error struct {
	Op  Op
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return string(e.Op) + ": " + e.Err.Error()
	}
	return string(e.Op) + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err and an *Error otherwise.
func Wrap(op Op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Key: key, Err: err}
}
