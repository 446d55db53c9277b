package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/bashbay-client/internal/helpers"
	"github.com/joshua-takyi/bashbay-client/internal/messaging"
	"github.com/joshua-takyi/bashbay-client/internal/middleware"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

var errNoUser = errors.New("unauthorized")

// currentUser returns the claims AuthMiddleware stored, aborting with 401
// when they are missing.
func currentUser(c *gin.Context) (*helpers.CustomClaims, bool) {
	userClaims, exists := c.Get(middleware.UserKey)
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse(errNoUser))
		return nil, false
	}
	claims, ok := userClaims.(*helpers.CustomClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse(errors.New("invalid user claims")))
		return nil, false
	}
	return claims, true
}

func Profile() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"user_id":  claims.UserID(),
			"email":    claims.Email,
			"username": claims.Username,
			"role":     claims.GetSafeRole(),
		}, ""))
	}
}

// Logout clears the auth cookies and closes the user's realtime sessions.
func Logout(manager *messaging.Manager, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		closed := manager.CloseUser(claims.UserID())

		c.SetCookie("access_token", "", -1, "/", "", secureCookies, true)
		c.SetCookie("refresh_token", "", -1, "/", "", secureCookies, true)

		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"closed_sessions": closed}, "Logged out successfully"))
	}
}
