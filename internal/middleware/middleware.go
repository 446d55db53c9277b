package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/bashbay-client/internal/connect"
	"github.com/joshua-takyi/bashbay-client/internal/helpers"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
	refreshHeader = "X-Refresh-Token"

	// UserKey is the gin context key holding *helpers.CustomClaims.
	UserKey = "user"
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get("request_id")

		logger.Info("HTTP Request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// ErrorHandler turns errors attached with c.Error into the API envelope,
// choosing the status from the error kind.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		requestID, _ := c.Get("request_id")
		status := models.StatusFor(err)

		if status >= http.StatusInternalServerError {
			logger.Error("Request error",
				"request_id", requestID,
				"error", err.Error(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
		}

		if c.Writer.Written() {
			return
		}
		resp := models.ErrorResponse(err)
		if status == http.StatusInternalServerError {
			// Don't return error details for unexpected failures
			resp.Error = "internal server error"
		}
		c.JSON(status, resp)
	}
}

// AuthMiddleware reads the caller's backend tokens from the Authorization
// header or cookies, stores the claims under UserKey and puts the
// credentials on the request context for the backend client. Tokens the
// client rotates on a 401 are written back as cookies.
func AuthMiddleware(validator *helpers.TokenValidator, secureCookies bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.ErrorResponse(errors.New("access token not found")))
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			logger.Info("rejected token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse(err))
			return
		}

		refreshToken := c.GetHeader(refreshHeader)
		if refreshToken == "" {
			refreshToken, _ = c.Cookie(refreshCookie)
		}

		creds := connect.NewCredentials(token, refreshToken)
		var cookieMu sync.Mutex
		creds.OnRefresh(func(access, refresh string) {
			cookieMu.Lock()
			defer cookieMu.Unlock()
			c.SetCookie(accessCookie, access, 3600, "/", "", secureCookies, true)
			c.SetCookie(refreshCookie, refresh, 3600*24*30, "/", "", secureCookies, true)
			c.Header("X-Access-Token", access)
		})

		c.Set(UserKey, claims)
		c.Request = c.Request.WithContext(connect.ContextWithCredentials(c.Request.Context(), creds))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	token, _ := c.Cookie(accessCookie)
	return token
}
