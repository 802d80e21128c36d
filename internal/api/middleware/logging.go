package middleware

import (
	"net/http"
	"time"

	"github.com/brandhub/deploycenter/pkg/logger"
	"go.uber.org/zap"
)

// Logging stores a request scoped logger in the context and logs one line
// per request once it completes.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.L().With(zap.String("request_id", GetRequestID(r.Context())))
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r.WithContext(logger.WithContext(r.Context(), log)))

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		}
		if actor := GetActor(r.Context()); actor != "" {
			fields = append(fields, zap.String("actor", actor))
		}
		if rw.status >= http.StatusInternalServerError {
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
