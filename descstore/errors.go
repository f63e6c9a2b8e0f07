// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descstore

import "errors"

var (
	// ErrNilDB is returned when a store is created without a database
	// handle.
	ErrNilDB = errors.New("nil database handle")

	// ErrPairNotFound is returned when no descriptor pair has the
	// requested name.
	ErrPairNotFound = errors.New("descriptor pair not found")

	// ErrPairExists is returned when a pair with the same name, or the
	// same external descriptor on the same network, is already stored.
	ErrPairExists = errors.New("descriptor pair already exists")

	// ErrEmptyName is returned for a pair without a name.
	ErrEmptyName = errors.New("descriptor pair name is empty")
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrDatabase indicates a database error.
	ErrDatabase ErrorCode = iota

	// ErrInvalidPair indicates a pair that failed descriptor validation.
	ErrInvalidPair
)

// String returns the ErrorCode as a human-readable name.
func (c ErrorCode) String() string {
	switch c {
	case ErrDatabase:
		return "ErrDatabase"

	case ErrInvalidPair:
		return "ErrInvalidPair"

	default:
		return "Unknown ErrorCode"
	}
}

// Error identifies a store error. It has an error code, a descriptive
// message and the underlying error, if any.
type Error struct {
	Code ErrorCode
	Desc string
	Err  error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Desc + ": " + e.Err.Error()
	}

	return e.Desc
}

// Unwrap returns the underlying error, if any.
func (e Error) Unwrap() error {
	return e.Err
}

// newError creates an Error given a set of arguments.
func newError(c ErrorCode, desc string, err error) Error {
	return Error{Code: c, Desc: desc, Err: err}
}

// IsErrorCode reports whether err is an Error with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var e Error

	return errors.As(err, &e) && e.Code == c
}
