// Package squid is the Go entry point of a squid project.
//
// A project's route modules are discovered from its pages directory. The
// modules that run on the server, API handlers and props functions, are
// implemented in Go and registered on an App under their route key:
//
//	func main() {
//	    app := squid.New()
//	    app.API("api/users/{id}", func(w http.ResponseWriter, r *http.Request, p map[string]string) {
//	        fmt.Fprintf(w, "user %s", p["id"])
//	    })
//	    app.Props("blog/{slug}", func(ctx context.Context, req squid.PropsRequest) (squid.PropsResult, error) {
//	        return squid.PropsResult{Props: map[string]any{"slug": req.Params["slug"]}}, nil
//	    })
//	    app.Main()
//	}
//
// API handlers stream updates to the browser with NewEventStream.
//
// Main runs the squid command line (build, dev, start, routes, version)
// with the registered modules.
package squid

import (
	"github.com/vango-dev/squid/pkg/routetree"
	"github.com/vango-dev/squid/pkg/server"
)

// RenderFunc renders a page to HTML.
type RenderFunc = routetree.RenderFunc

// PropsFunc fetches server-side props for a page.
type PropsFunc = routetree.PropsFunc

// PropsRequest is the input to a PropsFunc.
type PropsRequest = routetree.PropsRequest

// PropsResult is the output of a PropsFunc.
type PropsResult = routetree.PropsResult

// Redirect makes a PropsFunc redirect instead of rendering.
type Redirect = routetree.Redirect

// APIHandler handles requests routed to an api module.
type APIHandler = routetree.APIHandler

// Params returns the decoded route parameters of a request.
var Params = server.Params

// Param returns one decoded route parameter.
var Param = server.Param

// EventStream writes server-sent events from an API handler.
type EventStream = server.EventStream

// NewEventStream starts a server-sent event stream on w.
var NewEventStream = server.NewEventStream
