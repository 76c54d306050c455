package entity

import "fmt"

// NotFoundError reports a failed lookup by identifier. It is the taxonomy's
// distinct not-found kind: callers branch on it with errors.As instead of
// string matching.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("entity: %s %q not found", e.Kind, e.ID)
}

// notFound is a small constructor keeping call sites terse.
func notFound(kind, id string) error {
	return NotFoundError{Kind: kind, ID: id}
}
