package router

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/anonto42/goalsocial/backend/internal/handlers"
	"github.com/anonto42/goalsocial/backend/internal/middleware"
	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/anonto42/goalsocial/backend/internal/push"
	"github.com/anonto42/goalsocial/backend/internal/repositories"
	"github.com/anonto42/goalsocial/backend/internal/services"
	"github.com/anonto42/goalsocial/backend/pkg/config"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps carries the connections and settings the routes are built from.
// Redis and Messaging are optional.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Postgres  *gorm.DB
	Mongo     *mongo.Client
	Redis     *redis.Client
	Messaging push.Sender
}

// Services is the assembled service layer.
type Services struct {
	Notifications *services.NotificationService
	Follows       *services.FollowService
	Activities    *services.ActivityService
	Feed          *services.FeedService
}

// BuildServices wires repositories, the user cache and the push gateway into
// the service layer.
func BuildServices(deps Deps) *Services {
	mdb := deps.Mongo.Database(deps.Config.MongoDatabase)

	var users repositories.UserGoalGateway = repositories.NewPostgresUserGoalGateway(deps.Postgres)
	if deps.Redis != nil {
		users = repositories.NewCachedUserGoalGateway(users, deps.Redis, deps.Config.UserCacheTTL, deps.Logger)
		deps.Logger.Info("user lookups cached in Redis", zap.Duration("ttl", deps.Config.UserCacheTTL))
	}

	var gateway push.Gateway
	if deps.Messaging != nil {
		gateway = push.NewFCMGateway(deps.Messaging, deps.Logger)
		deps.Logger.Info("push delivery through FCM")
	} else {
		gateway = push.NewNoopGateway(deps.Logger)
	}

	followRepo := repositories.NewMongoFollowRepository(mdb)
	notificationRepo := repositories.NewMongoNotificationRepository(mdb)
	activityRepo := repositories.NewMongoActivityRepository(mdb)
	likeRepo := repositories.NewMongoLikeRepository(mdb)
	commentRepo := repositories.NewMongoCommentRepository(mdb)

	notifications := services.NewNotificationService(notificationRepo, followRepo, users, gateway, deps.Logger)
	return &Services{
		Notifications: notifications,
		Follows:       services.NewFollowService(followRepo, users, notifications, deps.Logger),
		Activities:    services.NewActivityService(activityRepo, likeRepo, commentRepo, followRepo, users, notifications, deps.Logger),
		Feed:          services.NewFeedService(activityRepo, followRepo, likeRepo, commentRepo, users, deps.Logger),
	}
}

// SetupRoutes migrates the stores, builds every dependency and registers the
// routes.
func SetupRoutes(ctx context.Context, e *echo.Echo, deps Deps) error {
	logger := deps.Logger

	if err := deps.Postgres.AutoMigrate(&models.User{}, &models.Goal{}, &models.Achievement{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("PostgreSQL auto-migrations completed")

	if err := repositories.EnsureIndexes(ctx, deps.Mongo.Database(deps.Config.MongoDatabase)); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("MongoDB indexes ensured")

	svc := BuildServices(deps)

	checks := map[string]handlers.Pinger{
		"postgres": handlers.PingerFunc(func(ctx context.Context) error {
			sqlDB, err := deps.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
		"mongo": handlers.PingerFunc(func(ctx context.Context) error {
			return deps.Mongo.Ping(ctx, nil)
		}),
	}
	if deps.Redis != nil {
		checks["redis"] = handlers.PingerFunc(func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}
	e.GET("/health", handlers.NewHealthHandler(checks).HealthCheck)

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.Config.JWTSecret))
	api.Use(writeRateLimiter(deps.Config.RateLimitRPS))
	logger.Info("JWT authentication and rate limiting applied to /api/v1 group")

	handlers.NewFollowHandler(svc.Follows).RegisterFollowRoutes(api)
	logger.Info("follow routes configured")

	handlers.NewNotificationHandler(svc.Notifications).RegisterNotificationRoutes(api)
	logger.Info("notification routes configured")

	handlers.NewActivityHandler(svc.Activities).RegisterActivityRoutes(api)
	logger.Info("activity routes configured")

	handlers.NewFeedHandler(svc.Feed).RegisterFeedRoutes(api)
	logger.Info("feed routes configured")

	logger.Info("all routes configured")
	return nil
}

// writeRateLimiter limits non-GET requests per authenticated user.
func writeRateLimiter(rps float64) echo.MiddlewareFunc {
	return eMiddleware.RateLimiterWithConfig(eMiddleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodGet
		},
		Store: eMiddleware.NewRateLimiterMemoryStore(rate.Limit(rps)),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if claims, ok := c.Get(middleware.ContextUserKey).(*models.JwtCustomClaims); ok && claims != nil {
				return "user:" + strconv.FormatUint(uint64(claims.UserID), 10), nil
			}
			return "ip:" + c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}
