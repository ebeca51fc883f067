// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fmterr classifies errors returned by sptensor.
//
// Usage errors are triggered by the caller (wrong format, unknown file
// extension, unsupported component type) and can be fixed by retrying
// with a corrected input. Internal errors signal a violated invariant
// (malformed IR, misaligned buffers, operations called out of order):
// they are bugs in the calling code or in sptensor itself.
package fmterr

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Kind of an error.
type Kind int

const (
	// Usage is an error triggered by the caller.
	Usage Kind = iota + 1
	// Internal is an internal invariant violation.
	Internal
)

// String representation of the kind.
func (k Kind) String() string {
	switch k {
	case Usage:
		return "usage error"
	case Internal:
		return "internal error"
	}
	return "unknown error"
}

type kindError struct {
	kind Kind
	err  error
}

// Usagef returns a formatted usage error.
func Usagef(format string, a ...any) error {
	return kindError{kind: Usage, err: errors.Errorf(format, a...)}
}

// Internalf returns a formatted internal invariant violation.
func Internalf(format string, a ...any) error {
	return kindError{kind: Internal, err: errors.Errorf(format, a...)}
}

// AsInternal marks an error as internal. It returns nil if err is nil.
func AsInternal(err error) error {
	if err == nil {
		return nil
	}
	return kindError{kind: Internal, err: err}
}

// AsUsage marks an error as a usage error. It returns nil if err is nil.
func AsUsage(err error) error {
	if err == nil {
		return nil
	}
	return kindError{kind: Usage, err: err}
}

// KindOf returns the kind of the first classified error in the chain.
// It returns 0 if no error of the chain has been classified.
func KindOf(err error) Kind {
	var kErr kindError
	if !errors.As(err, &kErr) {
		return 0
	}
	return kErr.kind
}

// IsUsage returns true if the error is a usage error.
func IsUsage(err error) bool {
	return KindOf(err) == Usage
}

// IsInternal returns true if the error is an internal invariant violation.
func IsInternal(err error) bool {
	return KindOf(err) == Internal
}

// Error returns a string description of the error.
func (err kindError) Error() string {
	return err.kind.String() + ": " + err.err.Error()
}

// Unwrap the error.
func (err kindError) Unwrap() error {
	return err.err
}

// Format writes the error into the state of the formatter.
// The stack trace is written with the %+v verb.
func (err kindError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, err.Error())
			var withSt interface {
				StackTrace() errors.StackTrace
			}
			if errors.As(err.err, &withSt) {
				fmt.Fprintf(s, "\nError generated at:%+v\n", withSt.StackTrace())
			}
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, err.Error())
	case 'q':
		fmt.Fprintf(s, "%q", err.Error())
	}
}
