// Copyright (c) 2022 Exograd SAS.
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that the above
// copyright notice and this permission notice appear in all copies.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
// WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY
// SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
// WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
// ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR
// IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.

package influx

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindSyntax                      ErrorKind = "syntax_error"
	ErrorKindInvalidCredentials          ErrorKind = "invalid_credentials"
	ErrorKindDatabaseDoesNotExist        ErrorKind = "database_does_not_exist"
	ErrorKindRetentionPolicyDoesNotExist ErrorKind = "retention_policy_does_not_exist"
	ErrorKindCommunication               ErrorKind = "communication"
	ErrorKindUnknown                     ErrorKind = "unknown"
)

var ErrorKinds = []ErrorKind{
	ErrorKindSyntax,
	ErrorKindInvalidCredentials,
	ErrorKindDatabaseDoesNotExist,
	ErrorKindRetentionPolicyDoesNotExist,
	ErrorKindCommunication,
	ErrorKindUnknown,
}

// Sentinels matching any error of the corresponding kind with errors.Is.
var (
	ErrSyntax                      = &Error{Kind: ErrorKindSyntax}
	ErrInvalidCredentials          = &Error{Kind: ErrorKindInvalidCredentials}
	ErrDatabaseDoesNotExist        = &Error{Kind: ErrorKindDatabaseDoesNotExist}
	ErrRetentionPolicyDoesNotExist = &Error{Kind: ErrorKindRetentionPolicyDoesNotExist}
	ErrCommunication               = &Error{Kind: ErrorKindCommunication}
	ErrUnknown                     = &Error{Kind: ErrorKindUnknown}
)

type Error struct {
	Kind    ErrorKind
	Message string

	// Status is the HTTP status code of the response which caused the error,
	// or zero for communication errors.
	Status int

	Err error
}

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func NewCommunicationError(err error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)

	return &Error{
		Kind:    ErrorKindCommunication,
		Message: fmt.Sprintf("%s: %v", msg, err),
		Err:     err,
	}
}

func (err *Error) Error() string {
	if err.Message == "" {
		return string(err.Kind)
	}

	return err.Message
}

func (err *Error) Unwrap() error {
	return err.Err
}

// Is matches sentinel errors, i.e. errors with a kind and no message.
func (err *Error) Is(target error) bool {
	var err2 *Error
	if !errors.As(target, &err2) {
		return false
	}

	return err2.Message == "" && err2.Kind == err.Kind
}

func IsErrorKind(err error, kind ErrorKind) bool {
	var err2 *Error
	if !errors.As(err, &err2) {
		return false
	}

	return err2.Kind == kind
}
