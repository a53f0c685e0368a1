package middleware

import (
	"net/http"

	"github.com/go-errors/errors"
	"go.uber.org/zap"
)

// Recover turns a panic in next into a 500 with a generic message. The
// stack goes to the log only.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				err := errors.Wrap(v, 2)
				log.Error("handler_panic",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", RequestID(r.Context())),
					zap.String("error", err.Error()),
					zap.String("stack", string(err.Stack())),
				)
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
