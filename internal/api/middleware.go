package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andy/invoicer/internal/auth"
	"github.com/andy/invoicer/internal/reqctx"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	sessionUserKey = "session_user"
	maxBodyBytes   = 4 << 20
)

// TokenVerifier resolves a bearer token to its session user
type TokenVerifier interface {
	Verify(raw string) (auth.SessionUser, error)
}

// PacketVerifier checks the signature of a request packet
type PacketVerifier interface {
	Verify(signature string, data []byte) error
}

// packet is the body of every POST request
type packet struct {
	Token string          `json:"token"`
	Data  json.RawMessage `json:"data"`
}

// accessLog writes one access log line per request, 4xx at WARN and 5xx at ERROR
func accessLog(logger *slog.Logger, ignorePaths ...string) gin.HandlerFunc {
	ignore := make(map[string]struct{}, len(ignorePaths))
	for _, path := range ignorePaths {
		ignore[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := ignore[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start).Milliseconds()
		status := c.Writer.Status()

		level := slog.LevelInfo
		if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		attributes := []slog.Attr{
			slog.Int("status", status),
			slog.Int64("latency", latency),
			slog.String("client_ip", c.ClientIP()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("user_agent", c.Request.UserAgent()),
		}
		if id, err := reqctx.Current(c.Request.Context()); err == nil {
			attributes = append(attributes,
				slog.String("request_id", id.RequestID),
				slog.Int64("user_id", id.UserID))
		}
		if len(c.Errors) > 0 {
			attributes = append(attributes, slog.String("error", c.Errors.String()))
		}
		logger.LogAttrs(c.Request.Context(), level, fmt.Sprintf("%s %s", c.Request.Method, path), attributes...)
	}
}

// httpMetrics counts requests per route and status
type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoicer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "invoicer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *httpMetrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// unwrapPacket replaces the body of POST requests by the packet data once its
// signature is checked
func unwrapPacket(packets PacketVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			fail(c, CodeInvalidRequest, "Unreadable body", nil)
			return
		}

		var p packet
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &p); err != nil {
				fail(c, CodeInvalidRequest, "Malformed packet", nil)
				return
			}
		}
		data := []byte(p.Data)
		if len(data) == 0 || string(data) == "null" {
			data = []byte("{}")
		}

		if presentError(c, packets.Verify(p.Token, data)) {
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(data))
		c.Request.ContentLength = int64(len(data))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Next()
	}
}

// identify attaches the request identity. Requests without a bearer run as
// the anonymous user, an invalid bearer is rejected.
func identify(tokens TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := reqctx.AnonymousUserID

		if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
			raw, _ := strings.CutPrefix(header, "Bearer ")
			user, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				_ = c.Error(err)
				fail(c, CodeBearerToken, "BEARER_TOKEN_ERROR", nil)
				return
			}
			c.Set(sessionUserKey, user)
			userID = user.ID
		}

		ctx := reqctx.With(c.Request.Context(), userID)
		requestID, _ := reqctx.RequestID(ctx)
		ctx = reqctx.WithLogger(ctx, logger.With("request_id", requestID, "user_id", userID))
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", requestID)
		c.Next()
	}
}

func sessionUser(c *gin.Context) (auth.SessionUser, bool) {
	v, ok := c.Get(sessionUserKey)
	if !ok {
		return auth.SessionUser{}, false
	}
	user, ok := v.(auth.SessionUser)
	return user, ok
}

// mustBeLogged rejects anonymous requests
func mustBeLogged(c *gin.Context) {
	if _, ok := sessionUser(c); !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.Next()
}

// mustBeAnonymous rejects requests carrying a session
func mustBeAnonymous(c *gin.Context) {
	if _, ok := sessionUser(c); ok {
		c.AbortWithStatusJSON(http.StatusForbidden, "Forbidden")
		return
	}
	c.Next()
}
