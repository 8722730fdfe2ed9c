package apihttp

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/chainbadge/internal/logger"
	"github.com/example/chainbadge/internal/types"
	"github.com/example/chainbadge/pkg/jsonutil"
)

// RequestID middleware injects a request id into context and response header.
// An incoming X-Request-ID is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" || len(reqID) > 64 {
			reqID = uuid.NewString()
		}
		r = r.WithContext(logger.NewContext(r.Context(), reqID))
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

// Logger middleware logs one structured line per request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rlw := &respLogger{ResponseWriter: w, status: 200}
		next.ServeHTTP(rlw, r)
		logger.WithContext(r.Context()).Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rlw.status),
			zap.Int64("dur_ms", time.Since(start).Milliseconds()),
			zap.String("remote", r.RemoteAddr))
	})
}

type respLogger struct {
	http.ResponseWriter
	status int
}

func (r *respLogger) WriteHeader(code int) { r.status = code; r.ResponseWriter.WriteHeader(code) }

// CORS middleware: badges and the query API are embedded cross-origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Recover turns a handler panic into a 500 and logs the stack.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.WithContext(r.Context()).Error("panic",
					zap.Any("value", v), zap.ByteString("stack", debug.Stack()))
				jsonutil.JSON(w, http.StatusInternalServerError, types.ErrorResponse{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
