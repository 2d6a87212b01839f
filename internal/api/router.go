package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/library-booking-backend/internal/auth"
	"github.com/nekogravitycat/library-booking-backend/internal/availability"
	availHttp "github.com/nekogravitycat/library-booking-backend/internal/availability/http"
	"github.com/nekogravitycat/library-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/library-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/library-booking-backend/internal/payment"
	paymentHttp "github.com/nekogravitycat/library-booking-backend/internal/payment/http"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
	timeslotHttp "github.com/nekogravitycat/library-booking-backend/internal/timeslot/http"
)

// Config holds the services and settings the router is assembled from.
type Config struct {
	IsProduction bool
	ProdOrigins  []string
	Logger       *slog.Logger

	TimeSlotService     timeslot.Service
	AvailabilityService availability.Service
	BookingService      booking.Service
	PaymentService      payment.Service
	JWTManager          *auth.JWTManager

	// Limiter may be nil, which disables rate limiting.
	Limiter   ratelimit.Limiter
	RateLimit ratelimit.Config
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: structured access log with a request id.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 envelope.
	r.Use(logging.Middleware(cfg.Logger), logging.Recovery(cfg.Logger))

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = cfg.ProdOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		response.OK(c, http.StatusOK, "ok", nil)
	})
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "not_found", "route not found")
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// writeLimit: token bucket on the endpoints that create bookings and gateway orders.
	writeLimit := ratelimit.Middleware(cfg.Limiter, cfg.RateLimit, cfg.Logger)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	timeslotHandler := timeslotHttp.NewHandler(cfg.TimeSlotService)
	availHandler := availHttp.NewHandler(cfg.AvailabilityService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	paymentHandler := paymentHttp.NewHandler(cfg.PaymentService)

	// Register API routes at the root; clients and the gateway callback use unversioned paths.
	root := r.Group("")
	{
		timeslotHttp.RegisterRoutes(root, timeslotHandler, authMiddleware)
		availHttp.RegisterRoutes(root, availHandler)
		bookingHttp.RegisterRoutes(root, bookingHandler, authMiddleware, writeLimit)
		paymentHttp.RegisterRoutes(root, paymentHandler, authMiddleware, writeLimit)
	}

	return r
}
