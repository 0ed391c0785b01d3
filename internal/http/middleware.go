package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	SessionIDHeader = "X-Session-ID"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	sessionKey   ctxKey = "session"
)

var errTrailingData = errors.New("unexpected data after JSON body")

// SessionProvider hands out the session for an id, opening it on first use.
type SessionProvider interface {
	Get(id string) (*session.Session, error)
}

// RequestIDMiddleware echoes the caller's request id, or the one chi's
// RequestID middleware generated, in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware resolves X-Session-ID to a session. A changing request
// without one starts a new session whose id is returned in the same header;
// a read without one reaches the handler with no session.
func SessionMiddleware(sessions SessionProvider, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionIDHeader)
			if id == "" {
				if r.Method == http.MethodGet || r.Method == http.MethodHead {
					next.ServeHTTP(w, r)
					return
				}
				id = uuid.NewString()
			}

			s, err := sessions.Get(id)
			if err != nil {
				if errors.Is(err, session.ErrInvalidSessionID) {
					respondError(w, http.StatusBadRequest, "invalid_session", "X-Session-ID must be 1-64 letters, digits, '-' or '_'")
					return
				}
				log.WithContext(r.Context()).Error("failed to open session", "session_id", id, "error", err)
				respondError(w, http.StatusServiceUnavailable, "session_unavailable", "cart is temporarily unavailable")
				return
			}

			w.Header().Set(SessionIDHeader, s.ID)
			ctx := context.WithValue(r.Context(), sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs one line per request through the structured logger.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.WithContext(r.Context()).Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", getRequestID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func MaxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func sessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}
