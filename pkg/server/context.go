package server

import (
	"context"
	"net/http"

	"github.com/vango-dev/squid/pkg/routetree"
)

type contextKey int

const (
	paramsKey contextKey = iota
	snapshotKey
)

// Params returns the decoded route parameters of the request. It returns an
// empty map outside a routed request.
func Params(r *http.Request) map[string]string {
	if p, ok := r.Context().Value(paramsKey).(map[string]string); ok {
		return p
	}
	return map[string]string{}
}

// Param returns one route parameter, or "".
func Param(r *http.Request, name string) string {
	return Params(r)[name]
}

// SnapshotFromContext returns the route tree snapshot the request was resolved
// against, or nil.
func SnapshotFromContext(ctx context.Context) *routetree.Snapshot {
	s, _ := ctx.Value(snapshotKey).(*routetree.Snapshot)
	return s
}

func withRoute(ctx context.Context, snap *routetree.Snapshot, params map[string]string) context.Context {
	ctx = context.WithValue(ctx, snapshotKey, snap)
	return context.WithValue(ctx, paramsKey, params)
}
