package routetree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Export names recognized on loaded modules.
const (
	// ExportDefault is the page render function or the api handler.
	ExportDefault = "default"

	// ExportServerSideProps is the data-fetch function of a props module.
	ExportServerSideProps = "getServerSideProps"
)

// DefaultModuleTimeout bounds a single module load attempt.
const DefaultModuleTimeout = 5 * time.Second

// Exports holds a loaded module's exported values by name.
type Exports map[string]any

// Module is a loaded compiled module.
type Module struct {
	Leaf    *Leaf
	Source  []byte
	Exports Exports
}

// Loader loads the compiled code behind a leaf.
type Loader interface {
	Load(ctx context.Context, leaf *Leaf) (*Module, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, leaf *Leaf) (*Module, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, leaf *Leaf) (*Module, error) {
	return f(ctx, leaf)
}

// APIHandler handles a request routed to an api module.
type APIHandler func(w http.ResponseWriter, r *http.Request, params map[string]string)

// RenderFunc renders a page module to HTML.
type RenderFunc func(ctx context.Context, props map[string]any) ([]byte, error)

// PropsRequest is the input to a props function.
type PropsRequest struct {
	Request *http.Request
	Params  map[string]string
	Query   url.Values
}

// Redirect asks the adapter to redirect instead of rendering.
type Redirect struct {
	Destination string `json:"destination"`
	Permanent   bool   `json:"permanent,omitempty"`
}

// PropsResult is the output of a props function.
type PropsResult struct {
	Props    map[string]any `json:"props,omitempty"`
	Redirect *Redirect      `json:"redirect,omitempty"`
}

// PropsFunc fetches server-side props for a page.
type PropsFunc func(ctx context.Context, req PropsRequest) (PropsResult, error)

// Contract is the classification of a resolved leaf.
type Contract struct {
	IsAPI              bool
	HasServerSideProps bool

	// Props is set when HasServerSideProps is true.
	Props PropsFunc
}

// Classifier checks module contracts and loads modules with a bounded retry.
type Classifier struct {
	loader  Loader
	timeout time.Duration
	backoff time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithModuleTimeout bounds each load attempt. Zero keeps the default.
func WithModuleTimeout(d time.Duration) ClassifierOption {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryBackoff sets the pause before the single retry.
func WithRetryBackoff(d time.Duration) ClassifierOption {
	return func(c *Classifier) {
		c.backoff = d
	}
}

// WithClassifierLogger sets the logger.
func WithClassifierLogger(logger *slog.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// WithTracerProvider sets the tracer provider used for load spans.
func WithTracerProvider(tp trace.TracerProvider) ClassifierOption {
	return func(c *Classifier) {
		c.tracer = tp.Tracer(tracerName)
	}
}

const tracerName = "github.com/vango-dev/squid/pkg/routetree"

// NewClassifier creates a classifier backed by loader.
func NewClassifier(loader Loader, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		loader:  loader,
		timeout: DefaultModuleTimeout,
		backoff: 25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Classify reports whether leaf is an api module and whether it has a usable
// props module. A props module without a props function export yields a
// *MalformedPropsExportError.
func (c *Classifier) Classify(ctx context.Context, leaf *Leaf) (Contract, error) {
	if leaf == nil {
		return Contract{}, ErrRouteNotFound
	}

	contract := Contract{IsAPI: leaf.Kind == KindAPI}
	if contract.IsAPI || leaf.Props == nil {
		return contract, nil
	}

	mod, err := c.Load(ctx, leaf.Props)
	if err != nil {
		return Contract{}, err
	}

	fn, err := propsExport(mod)
	if err != nil {
		return Contract{}, err
	}

	contract.HasServerSideProps = true
	contract.Props = fn
	return contract, nil
}

// Handler loads an api leaf and returns its handler.
func (c *Classifier) Handler(ctx context.Context, leaf *Leaf) (APIHandler, error) {
	mod, err := c.Load(ctx, leaf)
	if err != nil {
		return nil, err
	}
	return apiExport(mod)
}

// Load loads leaf, retrying once on failure. Each attempt gets its own
// timeout. Cancellation of ctx is never retried.
func (c *Classifier) Load(ctx context.Context, leaf *Leaf) (*Module, error) {
	ctx, span := c.tracer.Start(ctx, "routetree.Load", trace.WithAttributes(
		attribute.String("squid.module.id", leaf.ID),
		attribute.String("squid.module.kind", leaf.Kind.String()),
	))
	defer span.End()

	const maxAttempts = 2
	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		mod, err := c.loadOnce(ctx, leaf)
		if err == nil {
			span.SetAttributes(attribute.Int("squid.module.attempts", attempts))
			return mod, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempts < maxAttempts {
			c.logger.Debug("retrying module load", "module", leaf.ID, "err", err)
			if !sleepCtx(ctx, c.backoff) {
				break
			}
		}
	}

	loadErr := &ModuleLoadError{Module: leaf.ID, Attempts: attempts, Err: lastErr}
	span.RecordError(loadErr)
	span.SetStatus(codes.Error, "module load failed")
	return nil, loadErr
}

func (c *Classifier) loadOnce(ctx context.Context, leaf *Leaf) (*Module, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	mod, err := c.loader.Load(ctx, leaf)
	if err != nil {
		return nil, err
	}
	if mod == nil {
		return nil, fmt.Errorf("loader returned no module for %s", leaf.ID)
	}
	return mod, nil
}

// propsExport extracts the props function from a props module.
func propsExport(mod *Module) (PropsFunc, error) {
	v, ok := mod.Exports[ExportServerSideProps]
	if !ok || v == nil {
		return nil, &MalformedPropsExportError{Module: mod.Leaf.ID, Export: ExportServerSideProps}
	}
	switch fn := v.(type) {
	case PropsFunc:
		return fn, nil
	case func(context.Context, PropsRequest) (PropsResult, error):
		return fn, nil
	default:
		return nil, &MalformedPropsExportError{
			Module: mod.Leaf.ID,
			Export: ExportServerSideProps,
			Got:    fmt.Sprintf("%T", v),
		}
	}
}

// apiExport extracts the handler from an api module.
func apiExport(mod *Module) (APIHandler, error) {
	v := mod.Exports[ExportDefault]
	switch h := v.(type) {
	case APIHandler:
		return h, nil
	case func(http.ResponseWriter, *http.Request, map[string]string):
		return h, nil
	case http.Handler:
		return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			h.ServeHTTP(w, r)
		}, nil
	case func(http.ResponseWriter, *http.Request):
		return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			h(w, r)
		}, nil
	}
	return nil, &MalformedModuleError{Module: mod.Leaf.ID, Kind: mod.Leaf.Kind, Got: fmt.Sprintf("%T", v)}
}

// RenderExport returns the page module's render function, if it has one.
func RenderExport(mod *Module) (RenderFunc, bool) {
	switch fn := mod.Exports[ExportDefault].(type) {
	case RenderFunc:
		return fn, true
	case func(context.Context, map[string]any) ([]byte, error):
		return fn, true
	}
	return nil, false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// IsBuildError reports whether err came from building a tree.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}
