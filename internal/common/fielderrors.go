package common

import (
	"sort"
	"strings"
)

// FieldErrors aggregates field-scoped failures. Kind is the sentinel the
// error unwraps to (ErrValidation or ErrWeakPassword).
type FieldErrors struct {
	Kind   error
	Fields map[string][]string
}

// NewFieldErrors returns an empty aggregate of the given kind.
func NewFieldErrors(kind error) *FieldErrors {
	return &FieldErrors{Kind: kind, Fields: make(map[string][]string)}
}

// Add appends messages for field.
func (e *FieldErrors) Add(field string, msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	e.Fields[field] = append(e.Fields[field], msgs...)
}

// Merge copies every message from other into e.
func (e *FieldErrors) Merge(other *FieldErrors) {
	if other == nil {
		return
	}
	for f, msgs := range other.Fields {
		e.Add(f, msgs...)
	}
}

// Empty reports whether no messages were collected.
func (e *FieldErrors) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns nil when nothing was collected, so callers can write
// `return fe.OrNil()` without tripping over typed-nil interfaces.
func (e *FieldErrors) OrNil() error {
	if e == nil || e.Empty() {
		return nil
	}
	return e
}

func (e *FieldErrors) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(e.Kind.Error())
	for _, k := range keys {
		b.WriteString("; ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Fields[k], " "))
	}
	return b.String()
}

func (e *FieldErrors) Unwrap() error {
	return e.Kind
}
