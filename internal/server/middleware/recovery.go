package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"saasgate/backend/internal/platform/errreport"
	"saasgate/backend/internal/platform/httpx"
)

// Recovery turns a handler panic into a 502 upstream failure and reports it.
func Recovery(reporter errreport.Reporter) func(http.Handler) http.Handler {
	if reporter == nil {
		reporter = errreport.Noop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				err := panicError{rec}
				reporter.Report(r.Context(), err, map[string]string{"path": r.URL.Path})
				httpx.WriteError(w, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type panicError struct{ v any }

func (p panicError) Error() string { return "panic: " + slog.AnyValue(p.v).String() }
