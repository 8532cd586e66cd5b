package adapter

import (
	"errors"
	"fmt"
)

// ErrConnectionClosed is returned by operations on a closed connection.
var ErrConnectionClosed = errors.New("database connection not established")

// ConnectionError is returned when an adapter cannot be constructed or
// cannot reach the server.
type ConnectionError struct {
	Title string
	Msg   string
	Err   error
}

func (e *ConnectionError) Error() string {
	if e.Title == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Msg)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError is returned when a statement fails on the server or in the
// driver. Msg carries the driver's original message.
type QueryError struct {
	Title string
	Msg   string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Title == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Msg)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
