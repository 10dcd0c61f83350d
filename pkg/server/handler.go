package server

import (
	"bytes"
	stderrors "errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/vango-dev/squid/pkg/artifact"
	"github.com/vango-dev/squid/pkg/assets"
	"github.com/vango-dev/squid/pkg/middleware"
	"github.com/vango-dev/squid/pkg/routepath"
	"github.com/vango-dev/squid/pkg/routetree"
)

// Route kinds used as the metrics label.
const (
	kindPage     = "page"
	kindAPI      = "api"
	kindStatic   = "static"
	kindRedirect = "redirect"
	kindNotFound = "not_found"
)

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		raw += "?" + r.URL.RawQuery
	}
	clean, err := routepath.Clean(raw)
	if err != nil {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	if clean.Changed {
		middleware.SetRouteKind(r.Context(), kindRedirect)
		http.Redirect(w, r, clean.URL(), http.StatusPermanentRedirect)
		return
	}

	if s.static != nil && routepath.IsStatic(clean.Path) {
		middleware.SetRouteKind(r.Context(), kindStatic)
		s.serveStatic(w, r)
		return
	}

	snap := s.table.Snapshot()
	if snap == nil {
		http.Error(w, "No routes published", http.StatusServiceUnavailable)
		return
	}

	decoded, err := routepath.Decode(clean.Path)
	if err != nil {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	res := snap.Resolve(decoded)
	if !res.Found() {
		s.notFound(w, r)
		return
	}

	r = r.WithContext(withRoute(r.Context(), snap, res.Params))
	if res.Leaf.IsAPI() {
		middleware.SetRouteKind(r.Context(), kindAPI)
		s.cors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.serveAPI(w, r, res)
		})).ServeHTTP(w, r)
		return
	}

	middleware.SetRouteKind(r.Context(), kindPage)
	s.servePage(w, r, res)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if s.next != nil {
		s.next.ServeHTTP(w, r)
		return
	}
	middleware.SetRouteKind(r.Context(), kindNotFound)
	http.NotFound(w, r)
}

func (s *Server) serveAPI(w http.ResponseWriter, r *http.Request, res routetree.Resolved) {
	h, err := s.classifier.Handler(r.Context(), res.Leaf)
	if err != nil {
		s.fail(w, r, res.Leaf.ID, err)
		return
	}
	h(w, r, res.Params)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, res routetree.Resolved) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	contract, err := s.classifier.Classify(ctx, res.Leaf)
	if err != nil {
		s.fail(w, r, res.Leaf.ID, err)
		return
	}

	props := map[string]any{}
	if contract.HasServerSideProps {
		out, err := contract.Props(ctx, routetree.PropsRequest{
			Request: r,
			Params:  res.Params,
			Query:   r.URL.Query(),
		})
		if err != nil {
			s.fail(w, r, res.Leaf.Props.ID, err)
			return
		}
		if out.Redirect != nil {
			s.redirect(w, r, res.Leaf, out.Redirect)
			return
		}
		if out.Props != nil {
			props = out.Props
		}
	}

	mod, err := s.classifier.Load(ctx, res.Leaf)
	if err != nil {
		s.fail(w, r, res.Leaf.ID, err)
		return
	}

	html, err := s.renderer.Render(ctx, Page{
		Leaf:       res.Leaf,
		Module:     mod,
		Props:      props,
		Params:     res.Params,
		ModuleURL:  s.moduleURL(res.ArtifactPath),
		HydrateURL: s.assets.Asset(HydrateAsset),
		HeadExtra:  s.headExtra,
	})
	if err != nil {
		s.fail(w, r, res.Leaf.ID, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = w.Write(html)
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, leaf *routetree.Leaf, rd *routetree.Redirect) {
	dest, err := routepath.ValidateRedirect(rd.Destination)
	if err != nil {
		s.logger.Error("rejected redirect", "module", leaf.ID, "destination", rd.Destination, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	middleware.SetRouteKind(r.Context(), kindRedirect)
	code := http.StatusTemporaryRedirect
	if rd.Permanent {
		code = http.StatusPermanentRedirect
	}
	http.Redirect(w, r, dest, code)
}

// moduleURL is the browser import URL of a compiled page module.
func (s *Server) moduleURL(artifactPath string) string {
	parts := strings.Split(artifactPath, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimSuffix(s.modulePrefix, "/") + "/" + strings.Join(parts, "/")
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	key, err := artifact.CleanKey(r.URL.Path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	data, err := s.static.Fetch(r.Context(), key)
	if err != nil {
		if stderrors.Is(err, artifact.ErrNotFound) || stderrors.Is(err, artifact.ErrInvalidKey) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("static fetch failed", "key", key, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType(key))
	s.applyCacheHeaders(w, key)
	http.ServeContent(w, r, path.Base(key), time.Time{}, bytes.NewReader(data))
}

func (s *Server) applyCacheHeaders(w http.ResponseWriter, key string) {
	switch {
	case s.dev:
		w.Header().Set("Cache-Control", "no-store")
	case assets.IsFingerprinted(key):
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	default:
		w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")
	}
}

