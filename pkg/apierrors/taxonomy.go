/*
Copyright 2024 The InfraWeave Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apierrors

import (
	"errors"
	"fmt"
)

// BackendErrorKind discriminates the three CloudBackend failure kinds
// of spec.md §4.C2/§7.
type BackendErrorKind string

const (
	BackendErrorNotFound  BackendErrorKind = "not_found"
	BackendErrorTransient BackendErrorKind = "transient"
	BackendErrorFatal     BackendErrorKind = "fatal"
)

// BackendError is returned by every CloudBackend operation that fails.
// Callers retry only when Retryable is true (e.g. NoAvailableRunner on
// job launch), with a fixed 1-second backoff (spec.md §5).
type BackendError struct {
	Kind      BackendErrorKind
	Retryable bool
	Op        string
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewNotFound builds a non-retryable NotFound BackendError.
func NewNotFound(op string, err error) *BackendError {
	return &BackendError{Kind: BackendErrorNotFound, Retryable: false, Op: op, Err: err}
}

// NewTransient builds a retryable BackendError, e.g. NoAvailableRunner.
func NewTransient(op string, err error) *BackendError {
	return &BackendError{Kind: BackendErrorTransient, Retryable: true, Op: op, Err: err}
}

// NewFatal builds a non-retryable BackendError that the worker must
// convert into a failed_* deployment status.
func NewFatal(op string, err error) *BackendError {
	return &BackendError{Kind: BackendErrorFatal, Retryable: false, Op: op, Err: err}
}

// IsNotFound reports whether err is (or wraps) a NotFound BackendError.
func IsNotFound(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == BackendErrorNotFound
}

// TerraformError carries a Terraform phase's stderr (already truncated
// to <=50 lines per spec.md §4.C7) and exit code.
type TerraformError struct {
	Phase    string
	ExitCode int
	Stderr   string
}

func (e *TerraformError) Error() string {
	return fmt.Sprintf("terraform %s failed (exit %d): %s", e.Phase, e.ExitCode, e.Stderr)
}

// PolicyViolation records the denying policies and their violations
// for one plan evaluation; the plan is still persisted so the user can
// inspect it even though apply is blocked.
type PolicyViolation struct {
	Policy     string
	Version    string
	Violations []string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("policy %s@%s denied the plan (%d violations)", e.Policy, e.Version, len(e.Violations))
}

// TruncateStderr caps a subprocess's stderr to at most n lines, per
// spec.md §4.C7 ("A phase's stderr on failure is truncated to <=50
// lines").
func TruncateStderr(stderr string, n int) string {
	lines := splitLines(stderr)
	if len(lines) <= n {
		return stderr
	}
	return joinLines(lines[:n]) + "\n... (truncated)"
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
