package container

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrServiceNotFound is returned when Make or Call targets an abstract that
	// is neither bound nor a defined class.
	ErrServiceNotFound = errors.New("service not found")

	// ErrBindingResolution is returned when a concrete cannot be built: the
	// constructor failed, or a parameter could not be satisfied.
	ErrBindingResolution = errors.New("binding resolution failed")

	// ErrCircularDependency is returned when a concrete appears twice on the
	// build stack. The error message includes the full chain.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrCircularAlias is returned when an alias walk revisits a name.
	ErrCircularAlias = errors.New("circular alias detected")

	// ErrInvalidState is returned by ImportState and DecodeState for malformed
	// snapshots. Nothing is applied when it is returned.
	ErrInvalidState = errors.New("invalid container state")

	// ErrScopeNotFound is returned when binding into a scope that does not exist.
	ErrScopeNotFound = errors.New("scope not found")

	// ErrScopeActive is returned when entering a scope that is already active.
	ErrScopeActive = errors.New("scope already active")

	// ErrSelfAlias is returned when an alias would point at itself.
	ErrSelfAlias = errors.New("alias points to itself")

	// ErrUnknownAlias is returned when an operation needs a registered alias.
	ErrUnknownAlias = errors.New("unknown alias")

	// ErrProfileNotFound is returned by ActivateProfile for undefined profiles.
	ErrProfileNotFound = errors.New("alias profile not found")

	// ErrInvalidConcrete is returned when a binding is given a nil concrete or
	// a class is created from something that is not a constructor.
	ErrInvalidConcrete = errors.New("invalid concrete")
)

// ServiceNotFoundError reports an unresolvable abstract, with an optional
// "did you mean" suggestion taken from the registered aliases and bindings.
type ServiceNotFoundError struct {
	Abstract   string
	Suggestion string
}

func (e *ServiceNotFoundError) Error() string {
	msg := fmt.Sprintf("%s: [%s]", ErrServiceNotFound, e.Abstract)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(". Did you mean '%s'?", e.Suggestion)
	}
	return msg
}

func (e *ServiceNotFoundError) Unwrap() error { return ErrServiceNotFound }

// BindingResolutionError reports a concrete that could not be built.
// Parameter is empty when the failure is not tied to a single parameter.
type BindingResolutionError struct {
	Concrete  string
	Parameter string
	Reason    string
	Cause     error
}

func (e *BindingResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(ErrBindingResolution.Error())
	b.WriteString(": ")
	if e.Parameter != "" {
		fmt.Fprintf(&b, "parameter [%s] in [%s]: ", e.Parameter, e.Concrete)
	} else {
		fmt.Fprintf(&b, "[%s]: ", e.Concrete)
	}
	b.WriteString(e.Reason)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *BindingResolutionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrBindingResolution, e.Cause}
	}
	return []error{ErrBindingResolution}
}

// CircularDependencyError carries the build stack at the moment a frame was
// pushed twice. The last element repeats an earlier one.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(e.Chain, " -> "))
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// CircularAliasError carries the visited chain of a failed alias walk. The
// last element repeats an earlier one.
type CircularAliasError struct {
	Chain      []string
	Scope      string
	Suggestion string
}

func (e *CircularAliasError) Error() string {
	var b strings.Builder
	b.WriteString(ErrCircularAlias.Error())
	if e.Scope != "" {
		fmt.Fprintf(&b, " in scope '%s'", e.Scope)
	}
	b.WriteString(": ")
	b.WriteString(strings.Join(e.Chain, " -> "))
	if e.Suggestion != "" {
		fmt.Fprintf(&b, ". Did you mean '%s'?", e.Suggestion)
	}
	return b.String()
}

func (e *CircularAliasError) Unwrap() error { return ErrCircularAlias }

// InvalidStateError reports the first problem found in a snapshot.
type InvalidStateError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *InvalidStateError) Error() string {
	msg := ErrInvalidState.Error()
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	msg += ": " + e.Reason
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InvalidStateError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidState, e.Cause}
	}
	return []error{ErrInvalidState}
}
