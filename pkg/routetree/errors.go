package routetree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRouteNotFound is the sentinel adapters use when Resolve finds nothing.
	// Resolve itself never returns it.
	ErrRouteNotFound = errors.New("routetree: route not found")

	// ErrPropsOnAPI is reported when a props module sits next to an api module.
	ErrPropsOnAPI = errors.New("routetree: props module attached to api route")

	// ErrNilTree is the invariant violation raised by resolving against no tree.
	ErrNilTree = errors.New("routetree: no route tree published")
)

// DuplicateRouteError reports two modules claiming the same tree key.
type DuplicateRouteError struct {
	Key    string
	First  string
	Second string
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route %q: %s and %s", e.Key, e.First, e.Second)
}

// AmbiguousDynamicSegmentError reports differently named dynamic children under one node.
type AmbiguousDynamicSegmentError struct {
	// Parent is the key of the node holding both children ("" for the root).
	Parent string

	// Existing and Conflicting are the canonical dynamic keys.
	Existing    string
	Conflicting string

	// First and Second are the modules that introduced each child.
	First  string
	Second string
}

func (e *AmbiguousDynamicSegmentError) Error() string {
	parent := e.Parent
	if parent == "" {
		parent = "/"
	}
	return fmt.Sprintf("ambiguous dynamic segments under %q: %s (%s) and %s (%s)",
		parent, e.Existing, e.First, e.Conflicting, e.Second)
}

// DuplicateParamError reports one parameter name bound twice along a path.
type DuplicateParamError struct {
	Param  string
	Source string
}

func (e *DuplicateParamError) Error() string {
	return fmt.Sprintf("parameter %q appears more than once in %s", e.Param, e.Source)
}

// IdentifierCollisionError reports two modules with different route keys
// whose paths flatten to the same identifier, such as a-b and a_b.
type IdentifierCollisionError struct {
	ID     string
	First  string
	Second string
}

func (e *IdentifierCollisionError) Error() string {
	return fmt.Sprintf("modules %s and %s share the identifier %q", e.First, e.Second, e.ID)
}

// PropsError reports a props module that cannot be attached.
type PropsError struct {
	Key    string
	Source string
	Err    error
}

func (e *PropsError) Error() string {
	return fmt.Sprintf("props module %s for %q: %v", e.Source, e.Key, e.Err)
}

func (e *PropsError) Unwrap() error {
	return e.Err
}

// BuildError collects every error found while building a tree.
type BuildError struct {
	Errors []error
}

func (e *BuildError) Error() string {
	if len(e.Errors) == 0 {
		return "no route build errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d route build errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *BuildError) Unwrap() []error {
	return e.Errors
}

// MalformedPropsExportError reports a props module without a usable data-fetch export.
type MalformedPropsExportError struct {
	Module string
	Export string
	Got    string
}

func (e *MalformedPropsExportError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("props module %s does not export %s", e.Module, e.Export)
	}
	return fmt.Sprintf("props module %s: export %s is %s, want a props function", e.Module, e.Export, e.Got)
}

// MalformedModuleError reports a route module whose default export does not fit its kind.
type MalformedModuleError struct {
	Module string
	Kind   Kind
	Got    string
}

func (e *MalformedModuleError) Error() string {
	return fmt.Sprintf("%s module %s: default export is %s", e.Kind, e.Module, e.Got)
}

// ModuleLoadError reports a module that could not be loaded after retrying.
type ModuleLoadError struct {
	Module   string
	Attempts int
	Err      error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("loading module %s failed after %d attempt(s): %v", e.Module, e.Attempts, e.Err)
}

func (e *ModuleLoadError) Unwrap() error {
	return e.Err
}
