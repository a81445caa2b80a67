package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"loom/internal/httputil"
)

// Recovery recovers from handler panics, logs them with request context, and
// returns a 500 when the response has not started yet. Panics inside an
// in-flight SSE stream are logged but no status can be written; the client
// sees the stream drop.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &recoveryWriter{ResponseWriter: w}

			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						// net/http's sentinel for a deliberately aborted
						// response; let the server handle it.
						panic(err)
					}

					logger.Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"method", r.Method,
						"user_id", httputil.GetUserID(r),
						"stack", string(debug.Stack()),
					)

					if !rw.wrote {
						httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
					}
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// recoveryWriter tracks whether the response has started so a recovered panic
// does not write a second status line into a live stream.
type recoveryWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *recoveryWriter) WriteHeader(status int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *recoveryWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

// Flush passes through so SSE handlers keep working behind the middleware.
func (w *recoveryWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
