package routes

import (
	"log/slog"
	"time"

	"wish-service/internal/adapters/kafka"
	"wish-service/internal/api/handlers"
	"wish-service/internal/api/middleware"
	"wish-service/internal/config"
	"wish-service/internal/database"
	"wish-service/internal/realtime"
	"wish-service/internal/repositories/postgres"
	"wish-service/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Router struct {
	engine      *gin.Engine
	wsHandler   *handlers.WSHandler
	authHandler *handlers.AuthHandler
	userHandler *handlers.UserHandler
	wishHandler *handlers.WishHandler
	rateLimitMW *middleware.RateLimitMiddleware
	authMW      *middleware.AuthMiddleware
}

func NewRouter(
	core *realtime.Core,
	redisService *services.RedisService,
	db *gorm.DB,
	jwtCfg config.JWTConfig,
	publisher *kafka.EventPublisher,
	storage *database.MinIOClient,
	logger *slog.Logger,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi(logger))

	userRepo := postgres.NewUserRepository(db)
	wishRepo := postgres.NewWishRepository(db)

	userService := services.NewUserService(userRepo, core, jwtCfg.Secret, jwtCfg.ExpirationTime)
	wishService := services.NewWishService(wishRepo, core, publisher)

	return &Router{
		engine:      engine,
		wsHandler:   handlers.NewWSHandler(core, logger),
		authHandler: handlers.NewAuthHandler(userService),
		userHandler: handlers.NewUserHandler(userService, core, storage),
		wishHandler: handlers.NewWishHandler(wishService),
		rateLimitMW: middleware.NewRateLimitMiddleware(redisService),
		authMW:      middleware.NewAuthMiddleware(jwtCfg.Secret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// Public auth routes, throttled by client IP
	authRoutes := api.Group("/auth")
	authRoutes.Use(r.rateLimitMW.RateLimitIP(20, time.Minute))
	{
		authRoutes.POST("/register", r.authHandler.Register)
		authRoutes.POST("/login", r.authHandler.Login)
	}

	// WebSocket endpoint authenticates via the token query parameter
	api.GET("/ws",
		r.authMW.RequireAuth(),
		r.rateLimitMW.WebSocketRateLimit(5, time.Minute),
		r.wsHandler.HandleWebSocket,
	)

	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			users.GET("/profile", r.userHandler.GetProfile)
			users.PUT("/profile", r.userHandler.UpdateProfile)
			users.POST("/avatar", r.userHandler.UploadAvatar)
			users.GET("/online", r.userHandler.GetOnlineUsers)
			users.GET("/energy", r.userHandler.GetWishEnergy)
			users.POST("/energy", r.userHandler.GrantEnergy)
			users.GET("/search", r.userHandler.SearchUsers)
		}

		wishes := auth.Group("/wishes")
		wishes.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			wishes.GET("/", r.wishHandler.GetWishes)
			wishes.POST("/", r.wishHandler.CreateWish)
			wishes.GET("/:id", r.wishHandler.GetWishByID)
			wishes.PUT("/:id", r.wishHandler.UpdateWish)
			wishes.DELETE("/:id", r.wishHandler.DeleteWish)
			wishes.POST("/:id/interactions", r.wishHandler.AddInteraction)
			wishes.GET("/:id/stats", r.wishHandler.GetWishStats)
		}
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
