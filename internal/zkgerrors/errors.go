// Package zkgerrors defines the typed error kinds the engine surfaces to
// callers. Every failure that should be distinguishable by the
// orchestrator or the CLI front-end is one of these kinds, never a bare
// string.
package zkgerrors

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories in the error handling
// design.
type Kind string

const (
	KindBadMetadata        Kind = "bad_metadata"
	KindDependency         Kind = "dependency"
	KindAliasConflict      Kind = "alias_conflict"
	KindVersionResolution  Kind = "version_resolution"
	KindBuildFailed        Kind = "build_failed"
	KindTestFailed         Kind = "test_failed"
	KindStage              Kind = "stage"
	KindManifest           Kind = "manifest"
	KindLock               Kind = "lock"
)

// Error is the single error type for all engine failures. Entity names
// the package, field, or file at fault; Cause, if present, is the
// underlying error.
type Error struct {
	Kind   Kind
	Entity string
	Msg    string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Entity, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func new(kind Kind, entity, msg string, cause error) *Error {
	return &Error{Kind: kind, Entity: entity, Msg: msg, Cause: cause}
}

func BadMetadata(entity, msg string, cause error) *Error {
	return new(KindBadMetadata, entity, msg, cause)
}

func Dependency(entity, msg string, cause error) *Error {
	return new(KindDependency, entity, msg, cause)
}

func AliasConflict(entity, msg string) *Error {
	return new(KindAliasConflict, entity, msg, nil)
}

func VersionResolution(entity, msg string, cause error) *Error {
	return new(KindVersionResolution, entity, msg, cause)
}

func BuildFailed(entity, msg string, cause error) *Error {
	return new(KindBuildFailed, entity, msg, cause)
}

func TestFailed(entity, msg string, cause error) *Error {
	return new(KindTestFailed, entity, msg, cause)
}

func Stage(entity, msg string, cause error) *Error {
	return new(KindStage, entity, msg, cause)
}

func Manifest(entity, msg string, cause error) *Error {
	return new(KindManifest, entity, msg, cause)
}

func Lock(entity, msg string, cause error) *Error {
	return new(KindLock, entity, msg, cause)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
