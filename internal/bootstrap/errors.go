package bootstrap

import (
	"fmt"
	"strings"
)

// CycleError means the registered dependency graph contains a cycle. Path
// holds every identifier on the cycle, closing back on the first one.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "circular dependency detected"
	}
	return "circular dependency detected: " + strings.Join(e.Path, " -> ")
}

// UnknownDependencyError means a registered resource references a dependency
// identifier that was never registered.
type UnknownDependencyError struct {
	From string
	To   string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("resource %q depends on unregistered resource %q", e.From, e.To)
}

// DuplicateRegistrationError means the same identifier was registered twice.
type DuplicateRegistrationError struct {
	ID string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("resource %q is already registered", e.ID)
}

// NotRegisteredError means a lookup referenced an identifier that was never
// registered with the Manager.
type NotRegisteredError struct {
	ID string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("resource %q is not registered", e.ID)
}
