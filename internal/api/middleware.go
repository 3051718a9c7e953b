package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/concepto/concepto-av/internal/apperr"
	"github.com/concepto/concepto-av/internal/logging"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// APIKeyConfigKey is the config-table key holding the service API key.
const APIKeyConfigKey = "api_key"

// KeyStore reads the stored API key.
type KeyStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
}

// AuthMiddleware accepts the API key in X-API-Key or as a Bearer token.
func AuthMiddleware(keys KeyStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-API-Key")
			if token == "" {
				auth := r.Header.Get("Authorization")
				if auth == "" {
					WriteError(w, http.StatusUnauthorized, "missing api key", string(apperr.CodeUnauthorized))
					return
				}
				if !strings.HasPrefix(auth, "Bearer ") {
					WriteError(w, http.StatusUnauthorized, "invalid authorization format", string(apperr.CodeUnauthorized))
					return
				}
				token = strings.TrimPrefix(auth, "Bearer ")
			}

			storedKey, err := keys.GetConfig(r.Context(), APIKeyConfigKey)
			if err != nil || storedKey == "" {
				logger.Error("failed to get api key from config", "error", err)
				WriteError(w, http.StatusInternalServerError, "auth configuration error", string(apperr.CodeInternal))
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(storedKey)) != 1 {
				logger.Warn("invalid api key", "provided", logging.SanitizeToken(token))
				WriteError(w, http.StatusUnauthorized, "invalid api key", string(apperr.CodeUnauthorized))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

var (
	corsAllowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, X-API-Key, X-Request-ID"
	corsExposeHeaders = "Content-Disposition, Content-Length, Content-Type, X-Request-ID, X-Export-ID"
)

// CORSAllowlist lets the browser editor on a loopback origin, or on one of
// the extra origins, call the API. Requests from other origins are still
// served but get no CORS headers; their preflights are rejected.
func CORSAllowlist(extra ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(extra))
	for _, o := range extra {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			ok := allowed[origin] || isAllowedOrigin(origin)

			if r.Method == http.MethodOptions {
				if !ok {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				setCORSHeaders(w, origin)
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if ok {
				setCORSHeaders(w, origin)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setCORSHeaders(w http.ResponseWriter, origin string) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
}

// isAllowedOrigin accepts http(s) origins on localhost or a loopback IP, with
// an optional numeric port and no path.
func isAllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Path != "" || u.RawQuery != "" || u.User != nil || u.Fragment != "" {
		return false
	}
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return false
		}
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			requestID, _ := r.Context().Value(RequestIDKey).(string)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"bytes", wrapped.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestID,
			)
		})
	}
}

func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID, _ := r.Context().Value(RequestIDKey).(string)
					logger.Error("panic recovered", "error", err, "request_id", requestID)
					WriteError(w, http.StatusInternalServerError, "internal server error", string(apperr.CodeInternal))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()[:8]
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func WriteError(w http.ResponseWriter, status int, message, code string) {
	WriteJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// WriteAppError writes err with the status and code it carries. Errors
// without a code are reported as internal errors.
func WriteAppError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := apperr.GetCode(err)
	if code == apperr.CodeUnknown {
		code = apperr.CodeInternal
	}
	status := code.HTTPStatus()

	resp := ErrorResponse{Error: err.Error(), Code: string(code)}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		resp.Details = ae.Details
	}
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "code", code, "error", err)
	}
	WriteJSON(w, status, resp)
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
