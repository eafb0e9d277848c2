package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxKeyUserID    = "user_id"
	ctxKeyRole      = "user_role"
	headerRequestID = "X-Request-ID"
)

// observe tags each request with an id, then logs and measures it.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, c.Request.Method, status, elapsed)
		}

		evt := s.log.Info()
		if status >= http.StatusInternalServerError {
			evt = s.log.Error()
		}
		evt.Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("http request")
	}
}

// requireAuth resolves the caller from the session cookie or a bearer
// token. allowQuery also accepts ?token=, for websocket clients that cannot
// set headers.
func (s *Server) requireAuth(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.tokenFromRequest(c, allowQuery)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}
		userID, role, err := s.auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}
		c.Set(ctxKeyUserID, userID)
		c.Set(ctxKeyRole, string(role))
		c.Next()
	}
}

func (s *Server) tokenFromRequest(c *gin.Context, allowQuery bool) string {
	if cookie, err := c.Cookie(s.opts.CookieName); err == nil && cookie != "" {
		return cookie
	}
	if header := c.GetHeader("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

func (s *Server) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.opts.CookieName, token, maxAge, "/", "", s.opts.SecureCookie, true)
}
