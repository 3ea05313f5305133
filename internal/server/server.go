package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/config"
	"runtoyou.app/runtoyou/internal/jobs"
	"runtoyou.app/runtoyou/internal/middleware"
	"runtoyou.app/runtoyou/pkg/database"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/ratelimiter"
	"runtoyou.app/runtoyou/pkg/storage"

	achievementHttp "runtoyou.app/runtoyou/internal/modules/achievement/delivery/http"
	achievementRepo "runtoyou.app/runtoyou/internal/modules/achievement/repository"
	achievementService "runtoyou.app/runtoyou/internal/modules/achievement/service"

	adminHttp "runtoyou.app/runtoyou/internal/modules/admin/delivery/http"

	challengeHttp "runtoyou.app/runtoyou/internal/modules/challenge/delivery/http"
	challengeRepo "runtoyou.app/runtoyou/internal/modules/challenge/repository"
	challengeService "runtoyou.app/runtoyou/internal/modules/challenge/service"

	leaderboardHttp "runtoyou.app/runtoyou/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "runtoyou.app/runtoyou/internal/modules/leaderboard/repository"
	leaderboardService "runtoyou.app/runtoyou/internal/modules/leaderboard/service"

	likeRepo "runtoyou.app/runtoyou/internal/modules/like/repository"
	likeService "runtoyou.app/runtoyou/internal/modules/like/service"

	presenceHttp "runtoyou.app/runtoyou/internal/modules/presence/delivery/http"
	presenceService "runtoyou.app/runtoyou/internal/modules/presence/service"

	profileHttp "runtoyou.app/runtoyou/internal/modules/profile/delivery/http"
	profileService "runtoyou.app/runtoyou/internal/modules/profile/service"

	routeHttp "runtoyou.app/runtoyou/internal/modules/route/delivery/http"
	routeRepo "runtoyou.app/runtoyou/internal/modules/route/repository"
	routeService "runtoyou.app/runtoyou/internal/modules/route/service"

	runHttp "runtoyou.app/runtoyou/internal/modules/run/delivery/http"
	runRepo "runtoyou.app/runtoyou/internal/modules/run/repository"
	runService "runtoyou.app/runtoyou/internal/modules/run/service"

	searchService "runtoyou.app/runtoyou/internal/modules/search/service"

	statHttp "runtoyou.app/runtoyou/internal/modules/stat/delivery/http"
	statRepo "runtoyou.app/runtoyou/internal/modules/stat/repository"
	statService "runtoyou.app/runtoyou/internal/modules/stat/service"

	uploadHttp "runtoyou.app/runtoyou/internal/modules/upload/delivery/http"
	uploadService "runtoyou.app/runtoyou/internal/modules/upload/service"

	userHttp "runtoyou.app/runtoyou/internal/modules/user/delivery/http"
	userRepo "runtoyou.app/runtoyou/internal/modules/user/repository"
	userService "runtoyou.app/runtoyou/internal/modules/user/service"
)

const shutdownTimeout = 15 * time.Second

// Deps are the external clients the server runs on. Redis, Meili and
// ImageStorage are optional; the features behind them degrade when nil.
type Deps struct {
	Config       *config.Config
	DB           *gorm.DB
	Redis        *redis.Client
	Meili        meilisearch.ServiceManager
	ImageStorage storage.ImageStorage
}

type Server struct {
	engine    *gin.Engine
	scheduler *jobs.Scheduler
	cfg       *config.Config
}

func NewServer(deps Deps) (*Server, error) {
	cfg := deps.Config
	db := deps.DB
	redisClient := deps.Redis
	transactor := database.NewTransactor(db)

	var meiliSvc searchService.MeiliSearchService
	if deps.Meili != nil {
		meiliSvc = searchService.NewMeiliSearchService(deps.Meili)
	}

	publisher := presenceService.NewPublisher(redisClient)

	userRepo := userRepo.NewUserRepository(db)
	authSvc := userService.NewAuthService(userRepo, meiliSvc, userService.AuthConfig{
		Secret:             cfg.JWTSecret,
		TokenTTL:           cfg.JWTTTL,
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GoogleRedirectURL:  cfg.GoogleRedirectURL,
	})
	authHandler := userHttp.NewAuthHandler(authSvc, cfg.FrontendURL)

	profileSvc := profileService.NewProfileService(userRepo, deps.ImageStorage, meiliSvc)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	likeSvc := likeService.NewLikeService(likeRepo.NewLikeRepository(db), redisClient)

	runRepo := runRepo.NewRunRepository(db)
	runSvc := runService.NewRunService(runRepo, userRepo, likeSvc, ratelimiter.New(redisClient), cfg.RateLimitRun, transactor)
	runHandler := runHttp.NewRunHandler(runSvc)

	routeSvc := routeService.NewRouteService(routeRepo.NewRouteRepository(db), likeSvc, meiliSvc, redisClient, transactor)
	routeHandler := routeHttp.NewRouteHandler(routeSvc)

	achievementSvc := achievementService.NewAchievementService(achievementRepo.NewRepository(db), transactor, publisher)
	achievementHandler := achievementHttp.NewAchievementHandler(achievementSvc)

	challengeSvc := challengeService.NewChallengeService(challengeRepo.NewRepository(db), runRepo, achievementSvc, transactor, publisher)
	challengeHandler := challengeHttp.NewChallengeHandler(challengeSvc)

	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboardRepo.NewLeaderboardRepository(db), redisClient)
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)

	statSvc := statService.NewStatService(statRepo.NewStatRepository(db), userRepo)
	statHandler := statHttp.NewStatHandler(statSvc, routeSvc)

	uploadHandler := uploadHttp.NewUploadHandler(uploadService.NewUploadService(deps.ImageStorage))
	presenceHandler := presenceHttp.NewPresenceHandler(redisClient, challengeSvc, cfg.AllowedOrigins)

	scheduler := jobs.NewScheduler()
	for _, job := range []jobs.Job{
		jobs.NewRouteUsageSync(routeSvc, cfg.UsageSyncSchedule),
		jobs.NewChallengeExpiry(challengeSvc, cfg.ChallengeExpirySchedule),
	} {
		if err := scheduler.Register(job); err != nil {
			return nil, err
		}
	}

	adminHandler := adminHttp.NewAdminHandler(scheduler)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.AccessLog("/api/health", "/metrics"))
	router.Use(middleware.Metrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)
	ipLimiter := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute)

	api := router.Group("/api")
	api.GET("/health", healthHandler(db, redisClient))
	api.Use(ipLimiter.Middleware())

	// Public routes (no auth required)
	users := api.Group("/users")
	{
		users.POST("/register", authHandler.Register)
		users.POST("/login", authHandler.Login)
		users.GET("/auth/google", authHandler.GoogleLogin)
		users.GET("/auth/google/callback", authHandler.GoogleCallback)
	}
	api.GET("/stats", statHandler.GetCommunityStats)
	api.GET("/stats/trending-routes", statHandler.GetTrendingRoutes)

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protectedUsers := protected.Group("/users")
		protectedUsers.GET("/me", profileHandler.Me)
		protectedUsers.PUT("/profile", profileHandler.UpdateProfile)
		protectedUsers.PUT("/preferences", profileHandler.UpdatePreferences)
		protectedUsers.POST("/follow/:id", profileHandler.Follow)
		protectedUsers.GET("/search", profileHandler.Search)
		protectedUsers.GET("/:id", profileHandler.GetByID)

		runs := protected.Group("/runs")
		runs.POST("", runHandler.Create)
		runs.GET("/me", runHandler.ListForUser)
		runs.GET("/feed", runHandler.Feed)
		runs.GET("/user/:userId", runHandler.ListForUser)
		runs.GET("/:id", runHandler.Get)
		runs.PUT("/:id", runHandler.Update)
		runs.DELETE("/:id", runHandler.Delete)
		runs.PUT("/like/:id", runHandler.Like)
		runs.POST("/comment/:id", runHandler.Comment)
		runs.DELETE("/comment/:id/:commentId", runHandler.DeleteComment)

		routes := protected.Group("/routes")
		routes.POST("", routeHandler.Create)
		routes.GET("", routeHandler.List)
		routes.GET("/me", routeHandler.Mine)
		routes.GET("/:id", routeHandler.Get)
		routes.PUT("/:id", routeHandler.Update)
		routes.DELETE("/:id", routeHandler.Delete)
		routes.PUT("/like/:id", routeHandler.Like)
		routes.POST("/review/:id", routeHandler.Review)

		challenges := protected.Group("/challenges")
		challenges.POST("", challengeHandler.Create)
		challenges.GET("", challengeHandler.List)
		challenges.GET("/me", challengeHandler.Mine)
		challenges.GET("/:id", challengeHandler.Get)
		challenges.PUT("/:id", challengeHandler.Update)
		challenges.DELETE("/:id", challengeHandler.Delete)
		challenges.POST("/join/:id", challengeHandler.Join)
		challenges.DELETE("/leave/:id", challengeHandler.Leave)
		challenges.POST("/invite/:id", challengeHandler.Invite)
		challenges.POST("/progress/:id", challengeHandler.UpdateProgress)

		achievements := protected.Group("/achievements")
		achievements.GET("", achievementHandler.List)
		achievements.GET("/me", achievementHandler.Mine)
		achievements.GET("/user/:userId", achievementHandler.ForUser)
		achievements.GET("/:id", achievementHandler.Get)
		achievements.POST("/check", achievementHandler.Check)
		achievements.POST("", authMiddleware.RequireAdmin(), achievementHandler.Create)

		protected.GET("/leaderboard", leaderboardHandler.Get)
		protected.POST("/upload", uploadHandler.Upload)
		protected.GET("/ws", presenceHandler.HandleWebSocket)

		admin := protected.Group("/admin")
		admin.Use(authMiddleware.RequireAdmin())
		admin.GET("/jobs", adminHandler.ListJobs)
		admin.POST("/jobs/:name/run", adminHandler.RunJob)
	}

	return &Server{
		engine:    router,
		scheduler: scheduler,
		cfg:       cfg,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP and the job scheduler until ctx is cancelled, then shuts both down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.scheduler.Stop(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.scheduler.Stop(shutdownCtx)
	return err
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
