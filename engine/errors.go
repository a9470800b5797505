// Package engine implements the top-level façade: it owns zones, the
// render backend, and the event channel host code reads; hosts drive it
// through Engine's methods and the tab.Handle values it returns.
package engine

import (
	"errors"
	"fmt"
)

// Kind discriminates the taxonomy of engine-level errors.
type Kind int

const (
	KindInvalidTabId Kind = iota
	KindInvalidZoneId
	KindZoneLimitExceeded
	KindTabLimitExceeded
	KindZoneNotFound
	KindZoneLocked
	KindZoneAlreadyExists
	KindNetworkError
	KindParserError
	KindRendererError
	KindInvalidConfiguration
	KindTaskInitFailed
	KindPoisoned
	KindChannelClosed
	KindAlreadyRunning
	KindNotRunning
	KindInternal
)

func (k Kind) String() string {
	names := [...]string{
		"InvalidTabId", "InvalidZoneId", "ZoneLimitExceeded", "TabLimitExceeded",
		"ZoneNotFound", "ZoneLocked", "ZoneAlreadyExists", "NetworkError",
		"ParserError", "RendererError", "InvalidConfiguration", "TaskInitFailed",
		"Poisoned", "ChannelClosed", "AlreadyRunning", "NotRunning", "Internal",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// Error is the engine's typed error: a Kind plus an optional message and
// wrapped cause, compatible with errors.Is/errors.As via Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("engine: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("engine: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("engine: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, engine.NewError(KindZoneNotFound)).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// NewError builds a bare *Error of the given kind, usable as an errors.Is
// sentinel: errors.Is(err, engine.NewError(engine.KindZoneNotFound)).
func NewError(kind Kind) *Error { return &Error{Kind: kind} }

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of kind that wraps cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

var (
	ErrZoneNotFound   = NewError(KindZoneNotFound)
	ErrZoneLimit      = NewError(KindZoneLimitExceeded)
	ErrChannelClosed  = NewError(KindChannelClosed)
	ErrAlreadyRunning = NewError(KindAlreadyRunning)
	ErrNotRunning     = NewError(KindNotRunning)
)
