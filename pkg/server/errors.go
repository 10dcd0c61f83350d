package server

import (
	"log/slog"
	"net/http"

	"github.com/vango-dev/squid/internal/errors"
	"github.com/vango-dev/squid/pkg/middleware"
)

// fail answers a request whose module could not be loaded or run.
// Module errors are counted; in dev mode the coded error is shown.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, leafID string, err error) {
	if s.metrics != nil {
		s.metrics.RecordModuleError(err)
	}

	se := errors.FromRequestError(err)
	attrs := []any{"module", leafID, "err", err}
	if se != nil {
		attrs = append(attrs, "code", se.Code)
	}
	s.logger.Log(r.Context(), slog.LevelError, "route failed", attrs...)
	middleware.SpanFromRequest(r).RecordError(err)

	msg := http.StatusText(http.StatusInternalServerError)
	if s.dev {
		if se != nil {
			msg = se.FormatCompact()
		} else {
			msg = err.Error()
		}
	}
	http.Error(w, msg, http.StatusInternalServerError)
}
