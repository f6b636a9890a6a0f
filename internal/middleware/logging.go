package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/soaringjerry/awap/internal/utils"
)

// RequestLogger logs one line per request through the global zap logger.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			fields := []utils.Field{
				utils.String("method", r.Method),
				utils.String("path", r.URL.Path),
				utils.String("remote_addr", r.RemoteAddr),
				utils.Int("status", ww.Status()),
				utils.Int("bytes", ww.BytesWritten()),
				utils.Duration("duration", time.Since(start)),
				utils.String("request_id", chimw.GetReqID(r.Context())),
				utils.String("user_agent", r.UserAgent()),
			}
			switch {
			case ww.Status() >= 500:
				utils.Error("HTTP request", fields...)
			case ww.Status() >= 400:
				utils.Warn("HTTP request", fields...)
			default:
				utils.Info("HTTP request", fields...)
			}
		}()
		next.ServeHTTP(ww, r)
	})
}
