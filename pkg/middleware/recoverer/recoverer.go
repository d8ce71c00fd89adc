package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
)

// New returns a middleware that turns a handler panic into a JSON 500 response
// and records the panic on the request log entry. http.ErrAbortHandler is re-raised.
func New() func(http.Handler) http.Handler {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				httplog.LogEntrySetField(r.Context(), "panic", slog.GroupValue(
					slog.String("op", op),
					slog.Any("err", rvr),
					slog.String("stack", string(debug.Stack())),
				))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, map[string]string{
					"status":  "error",
					"message": "server error occurred",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
