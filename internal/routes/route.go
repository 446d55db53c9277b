package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/bashbay-client/internal/container"
	"github.com/joshua-takyi/bashbay-client/internal/handlers"
	"github.com/joshua-takyi/bashbay-client/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container, allowedOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Refresh-Token"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Access-Token"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "bashbay-client",
			})
		})
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.TokenValidator, container.SecureCookies, container.Logger))

	protected.GET("/profile", handlers.Profile())
	protected.POST("/logout", handlers.Logout(container.Messaging, container.SecureCookies))

	venueRoutes := protected.Group("/venues")
	{
		venueRoutes.GET("/:id", handlers.GetVenue(container.VenueService))
		venueRoutes.DELETE("/:id/availability/cache", handlers.RefreshVenueWindows(container.VenueService))
		venueRoutes.GET("/:id/availability", handlers.GetAvailability(container.BookingService))
		venueRoutes.POST("/:id/selection", handlers.ToggleSlot(container.BookingService))
		venueRoutes.DELETE("/:id/selection", handlers.ClearSelection(container.BookingService))
		venueRoutes.POST("/:id/bookings", handlers.SubmitBooking(container.BookingService))
	}

	bookingRoutes := protected.Group("/bookings")
	{
		bookingRoutes.POST("/:booking_id/cancel", handlers.CancelBooking(container.BookingService))
	}

	chatRoutes := protected.Group("/chat/conversations")
	{
		chatRoutes.GET("", handlers.ListConversations(container.Messaging))
		chatRoutes.GET("/stream", handlers.StreamConversations(container.Messaging))
		chatRoutes.POST("/:conversation_id/open", handlers.OpenConversation(container.Messaging))
		chatRoutes.GET("/:conversation_id", handlers.GetConversation(container.Messaging))
		chatRoutes.DELETE("/:conversation_id", handlers.CloseConversation(container.Messaging))
		chatRoutes.GET("/:conversation_id/stream", handlers.StreamConversation(container.Messaging))
		chatRoutes.POST("/:conversation_id/older", handlers.LoadOlderMessages(container.Messaging))
		chatRoutes.POST("/:conversation_id/messages", handlers.SendMessage(container.Messaging))
		chatRoutes.PATCH("/:conversation_id/messages/:message_id", handlers.EditMessage(container.Messaging))
		chatRoutes.POST("/:conversation_id/messages/:message_id/reactions", handlers.AddReaction(container.Messaging))
		chatRoutes.DELETE("/:conversation_id/messages/:message_id/reactions", handlers.RemoveReaction(container.Messaging))
		chatRoutes.POST("/:conversation_id/typing", handlers.SetTyping(container.Messaging))
	}

	return r
}
