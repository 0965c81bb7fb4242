package middleware

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/obralink/importkit/pkg/composables"
	"github.com/obralink/importkit/pkg/httpapi"
)

const (
	tenantHeader = "X-Tenant-Id"
	userHeader   = "X-User-Id"
)

// ProvidePool puts the database pool into every request context so
// repositories can open transactions.
func ProvidePool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

// RequireTenant reads the tenant id header and rejects requests without one.
// An optional user id header is propagated for batch attribution.
func RequireTenant() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, err := uuid.Parse(r.Header.Get(tenantHeader))
			if err != nil {
				httpapi.WriteError(w, http.StatusBadRequest, "MISSING_TENANT", "missing or invalid "+tenantHeader+" header", nil)
				return
			}
			ctx := composables.WithTenantID(r.Context(), tenantID)
			if raw := r.Header.Get(userHeader); raw != "" {
				if userID, err := strconv.ParseUint(raw, 10, 32); err == nil {
					ctx = composables.WithUserID(ctx, uint(userID))
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// WithLogger logs request start and completion and converts handler panics
// into a stable 500 instead of dropping the connection.
func WithLogger(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			entry := log.WithFields(logrus.Fields{
				"request-id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			entry.Info("request started")
			w.Header().Set("X-Request-Id", requestID)

			sw := &statusWriter{ResponseWriter: w}
			defer func() {
				if recovered := recover(); recovered != nil {
					entry.WithFields(logrus.Fields{
						"panic": recovered,
						"stack": string(debug.Stack()),
					}).Error("panic recovered in request handler")
					if sw.status == 0 {
						httpapi.WriteError(sw, http.StatusInternalServerError, "INTERNAL", "internal server error",
							map[string]string{"request_id": requestID})
					}
					return
				}
				entry.WithFields(logrus.Fields{
					"status":   sw.Status(),
					"duration": time.Since(start).String(),
				}).Info("request completed")
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
