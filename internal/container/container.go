package container

import (
	"log/slog"

	"github.com/joshua-takyi/bashbay-client/internal/connect"
	"github.com/joshua-takyi/bashbay-client/internal/helpers"
	"github.com/joshua-takyi/bashbay-client/internal/messaging"
	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/joshua-takyi/bashbay-client/internal/services"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Logger         *slog.Logger
	SecureCookies  bool
	TokenValidator *helpers.TokenValidator

	// Optional stores, nil when not configured
	MongoDBClient *mongo.Client
	RedisClient   *redis.Client

	Backend        *connect.Client
	VenueService   *services.VenuesService
	BookingService *services.BookingService
	Messaging      *messaging.Manager
}

// Deps are the already-connected clients the container wires together.
type Deps struct {
	Logger         *slog.Logger
	SecureCookies  bool
	TokenValidator *helpers.TokenValidator
	Backend        *connect.Client
	Sockets        *connect.SocketDialer
	MongoDBClient  *mongo.Client
	RedisClient    *redis.Client
	Selections     models.SelectionRepo
	WindowCache    services.WindowCache
	Messaging      messaging.Options
}

// NewContainer creates a new dependency injection container
func NewContainer(deps Deps) *Container {
	venueService := services.NewVenuesService(deps.Backend, deps.WindowCache, deps.Logger)
	bookingService := services.NewBookingService(venueService, deps.Backend, deps.Selections, deps.Logger)
	manager := messaging.NewManager(deps.Sockets, deps.Backend, deps.Messaging, deps.Logger)

	return &Container{
		Logger:         deps.Logger,
		SecureCookies:  deps.SecureCookies,
		TokenValidator: deps.TokenValidator,
		MongoDBClient:  deps.MongoDBClient,
		RedisClient:    deps.RedisClient,
		Backend:        deps.Backend,
		VenueService:   venueService,
		BookingService: bookingService,
		Messaging:      manager,
	}
}
