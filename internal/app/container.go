package app

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/library-booking-backend/internal/api"
	"github.com/nekogravitycat/library-booking-backend/internal/auth"
	"github.com/nekogravitycat/library-booking-backend/internal/availability"
	"github.com/nekogravitycat/library-booking-backend/internal/booking"
	"github.com/nekogravitycat/library-booking-backend/internal/config"
	"github.com/nekogravitycat/library-booking-backend/internal/db"
	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/events"
	"github.com/nekogravitycat/library-booking-backend/internal/payment"
	"github.com/nekogravitycat/library-booking-backend/internal/payment/razorpay"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/ratelimit"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	App    *config.Config
	Logger *slog.Logger
	DBPool *pgxpool.Pool
	// Redis may be nil, which disables rate limiting.
	Redis *redis.Client
	// Publisher defaults to a LogPublisher.
	Publisher events.Publisher
	// Gateway defaults to Razorpay built from App.Payment.
	Gateway payment.Gateway
	Now     func() time.Time
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	BookingService booking.Service
	PaymentService payment.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	logger := cfg.Logger
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	gateway := cfg.Gateway
	if gateway == nil {
		gateway = razorpay.New(cfg.App.Payment.RazorpayKeyID, cfg.App.Payment.RazorpayKeySecret)
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.App.JWTSecret)
	txRunner := db.NewTxRunner(cfg.DBPool, logger)

	// Directory Module
	dirService := directory.NewService(directory.NewPgxRepository(cfg.DBPool))

	// TimeSlot Module
	slotRepo := timeslot.NewPgxRepository(cfg.DBPool, txRunner)
	slotService := timeslot.NewService(slotRepo, dirService, cfg.Now)

	// Availability Module
	availRepo := availability.NewPgxRepository(cfg.DBPool)
	availService := availability.NewService(availRepo, dirService, cfg.Now)

	// Booking Module
	bookingStore := booking.NewPgxStore(cfg.DBPool, txRunner)
	bookingService := booking.NewService(bookingStore, dirService, publisher, logger, cfg.Now)

	// Payment Module
	paymentRepo := payment.NewPgxRepository(cfg.DBPool)
	paymentService := payment.NewService(paymentRepo, dirService, gateway, publisher, logger, payment.Config{
		PlatformFeePercent: cfg.App.Payment.PlatformFeePercent,
		Currency:           cfg.App.Payment.Currency,
		WebhookSecret:      cfg.App.Payment.WebhookSecret,
		PayoutLease:        cfg.App.Payment.PayoutLease,
	}, cfg.Now)

	// Rate limiter. The interface stays nil when Redis is off so the middleware passes through.
	rlConfig := ratelimit.Config{
		Prefix:         "rl:library",
		Capacity:       cfg.App.RateLimit.Capacity,
		RefillTokens:   1,
		RefillInterval: cfg.App.RateLimit.RefillInterval,
		TTL:            10 * time.Minute,
	}
	var limiter ratelimit.Limiter
	if cfg.Redis != nil {
		limiter = ratelimit.NewRedisLimiter(cfg.Redis, rlConfig)
	}

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:        cfg.App.IsProduction(),
		ProdOrigins:         cfg.App.Origins(),
		Logger:              logger,
		TimeSlotService:     slotService,
		AvailabilityService: availService,
		BookingService:      bookingService,
		PaymentService:      paymentService,
		JWTManager:          jwtManager,
		Limiter:             limiter,
		RateLimit:           rlConfig,
	})

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		BookingService: bookingService,
		PaymentService: paymentService,
	}
}
