package errors

import (
	stderrors "errors"

	"github.com/vango-dev/squid/pkg/routetree"
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// FromBuildError converts a route tree build failure into one coded error per
// conflict. Errors that are not route conflicts are wrapped under E203.
func FromBuildError(err error) []*SquidError {
	if err == nil {
		return nil
	}

	var be *routetree.BuildError
	if !As(err, &be) {
		return []*SquidError{fromRouteError(err)}
	}

	out := make([]*SquidError, 0, len(be.Errors))
	for _, e := range be.Errors {
		out = append(out, fromRouteError(e))
	}
	return out
}

func fromRouteError(err error) *SquidError {
	var (
		dup   *routetree.DuplicateRouteError
		amb   *routetree.AmbiguousDynamicSegmentError
		param *routetree.DuplicateParamError
		ident *routetree.IdentifierCollisionError
		props *routetree.PropsError
	)

	switch {
	case As(err, &dup):
		return New("E200").Wrap(err).
			WithLocation(dup.Second, 0, 0).
			WithSuggestion("Keep only one of " + dup.First + " and " + dup.Second + ".")
	case As(err, &amb):
		return New("E201").Wrap(err).
			WithLocation(amb.Second, 0, 0).
			WithSuggestion("Rename " + amb.Conflicting + " to " + amb.Existing + " or move it to its own directory.")
	case As(err, &param):
		return New("E202").Wrap(err).
			WithLocation(param.Source, 0, 0).
			WithSuggestion("Give each dynamic segment in the path a distinct name.")
	case As(err, &ident):
		return New("E205").Wrap(err).
			WithLocation(ident.Second, 0, 0).
			WithSuggestion("Rename " + ident.First + " or " + ident.Second + " so their paths differ in more than punctuation.")
	case As(err, &props):
		return New("E204").Wrap(err).
			WithLocation(props.Source, 0, 0).
			WithSuggestion("Delete the .props module or turn the route into a page.")
	default:
		return New("E203").Wrap(err)
	}
}

// FromRequestError converts a module contract failure into a coded error.
// It returns nil when err is not a module error.
func FromRequestError(err error) *SquidError {
	var (
		malformed *routetree.MalformedPropsExportError
		load      *routetree.ModuleLoadError
	)
	switch {
	case As(err, &malformed):
		return New("E220").Wrap(err)
	case As(err, &load):
		return New("E221").Wrap(err)
	}
	return nil
}
