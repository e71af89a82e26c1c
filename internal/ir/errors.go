package ir

import "fmt"

// IntrospectionError wraps a catalog-query or JSON-decode failure. It
// carries the name of the failing query so the caller can report which
// part of the nine-query fan-out broke.
type IntrospectionError struct {
	Stage string
	Cause error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspection failed at %s: %v", e.Stage, e.Cause)
}

func (e *IntrospectionError) Unwrap() error { return e.Cause }

// ParseError describes a syntax error or unsupported statement encountered
// while parsing local DDL text.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Cause   error
	Excerpt string // first 200 characters of the offending statement
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %v: %s", e.File, e.Line, e.Column, e.Cause, e.Excerpt)
	}
	return fmt.Sprintf("%d:%d: %v: %s", e.Line, e.Column, e.Cause, e.Excerpt)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func excerpt(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200]
}
