package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrDependencyUnavailable marks a required collaborator that could not be reached.
var ErrDependencyUnavailable = errors.New("dependency unavailable")

const (
	DependencyEventStore      = "event_store"
	DependencyKnowledgeStore  = "knowledge_store"
	DependencyResolutionStore = "resolution_store"
)

type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Dependency)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

func (e *DependencyError) Is(target error) bool { return target == ErrDependencyUnavailable }

// Unavailable wraps err as a DependencyError. A nil err stays nil.
func Unavailable(dependency string, err error) error {
	if err == nil {
		return nil
	}
	var de *DependencyError
	if errors.As(err, &de) {
		return err
	}
	return &DependencyError{Dependency: dependency, Err: err}
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrDependencyUnavailable)
}

// DependencyOf returns the failing collaborator name, or "" when err is not a DependencyError.
func DependencyOf(err error) string {
	var de *DependencyError
	if errors.As(err, &de) {
		return de.Dependency
	}
	return ""
}

// isAborted reports an explicit cancel. An expired deadline is not an abort:
// it is classified by the error of the call it interrupted.
func isAborted(ctx context.Context, err error) bool {
	if cerr := ctx.Err(); cerr != nil {
		return errors.Is(cerr, context.Canceled)
	}
	return errors.Is(err, context.Canceled)
}
