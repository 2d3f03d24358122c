// Package errors provides the structured error type used across kbuild.
// Every failure that leaves a package carries a machine-readable code, a
// human-readable message, optional details and the underlying cause.
package errors
