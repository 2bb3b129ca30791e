package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/typeracer-api/internal/config"
	"github.com/yourusername/typeracer-api/internal/handler"
	"github.com/yourusername/typeracer-api/internal/middleware"
	pgRepo "github.com/yourusername/typeracer-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/typeracer-api/internal/repository/redis"
	"github.com/yourusername/typeracer-api/internal/service"
	"github.com/yourusername/typeracer-api/internal/service/competitionmanager"
	ws "github.com/yourusername/typeracer-api/internal/websocket"
	"github.com/yourusername/typeracer-api/pkg/auth"
	"github.com/yourusername/typeracer-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	competitionRepo := pgRepo.NewCompetitionRepo(db)
	resultRepo := pgRepo.NewResultRepo(db)
	eventRepo := pgRepo.NewEventRepo(db)
	notificationRepo := pgRepo.NewNotificationRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Контекст жизненного цикла фоновых горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// JWT и вебсокет-тикеты
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs, cfg.JWT.WSTicketExpirySec, cacheRepo)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// WebSocket Hub и менеджер
	hub := ws.NewHub()
	go hub.Run(ctx)
	wsManager := ws.NewManager(hub)

	// Сервисы
	authService, err := service.NewAuthService(userRepo, jwtService)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}
	userService := service.NewUserService(userRepo, resultRepo)
	notificationService := service.NewNotificationService(eventRepo, notificationRepo, resultRepo, wsManager)

	managerConfig := competitionmanager.DefaultConfig()
	if cfg.Competition.DefaultDuration > 0 {
		managerConfig.CompetitionDuration = cfg.Competition.DefaultDuration
	}
	competitionManager := service.NewCompetitionManager(&competitionmanager.Dependencies{
		CompetitionRepo: competitionRepo,
		ResultRepo:      resultRepo,
		Broadcaster:     wsManager,
		Notifier:        notificationService,
		Config:          managerConfig,
	})

	// Восстанавливаем кеш открытых соревнований до начала приема запросов
	if err := competitionManager.Restore(ctx); err != nil {
		log.Printf("Failed to restore open competitions: %v", err)
		os.Exit(1)
	}

	// Обработчики
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	competitionHandler := handler.NewCompetitionHandler(competitionRepo, resultRepo, competitionManager, cfg.Competition.DefaultDuration)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	wsHandler := handler.NewWSHandler(hub, wsManager, jwtService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(cacheRepo)

	// Роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Маршруты API
	api := router.Group("/api")
	{
		// Аутентификация
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", rateLimiter.Limit(middleware.StrictAuthRateLimitConfig()), authHandler.Register)
			authGroup.POST("/login", rateLimiter.Limit(middleware.StrictAuthRateLimitConfig()), authHandler.Login)
			authGroup.POST("/ws-ticket", authMiddleware.RequireAuth(), authHandler.WSTicket)
		}

		// Пользователи
		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			userWithID := users.Group("/:id")
			userWithID.Use(middleware.ExtractUintParam("id", "userID"))
			{
				userWithID.GET("", userHandler.GetUser)
				userWithID.DELETE("", userHandler.DeleteUser)
				userWithID.GET("/results", userHandler.GetUserResults)
			}
		}

		// Соревнования
		competitions := api.Group("/competitions")
		{
			competitions.GET("", competitionHandler.ListCompetitions)

			competitionWithID := competitions.Group("/:id")
			competitionWithID.Use(middleware.ExtractUintParam("id", "competitionID"))
			{
				competitionWithID.GET("/results", competitionHandler.GetResults)

				authedCompetitions := competitionWithID.Group("")
				authedCompetitions.Use(authMiddleware.RequireAuth())
				{
					authedCompetitions.GET("/content", competitionHandler.GetContent)
					authedCompetitions.POST("/results",
						rateLimiter.Limit(middleware.SubmitRateLimitConfig()),
						competitionHandler.SubmitResult)
				}

				adminCompetitions := competitionWithID.Group("")
				adminCompetitions.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
				{
					adminCompetitions.POST("/close", competitionHandler.CloseCompetition)
					adminCompetitions.GET("/results/export", competitionHandler.ExportResults)
				}
			}

			adminCreate := competitions.Group("")
			adminCreate.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
			{
				adminCreate.POST("", competitionHandler.CreateCompetition)
			}
		}

		// Уведомления
		notifications := api.Group("/notifications")
		notifications.Use(authMiddleware.RequireAuth())
		{
			notifications.GET("", notificationHandler.ListUnacknowledged)
			notifications.PUT("/:id/ack",
				middleware.ExtractUintParam("id", "notificationID"),
				notificationHandler.Acknowledge)
		}
	}

	// WebSocket маршрут
	router.GET("/ws", wsHandler.HandleConnection)

	// HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Завершаем фоновые горутины и таймеры закрытия
	cancel()
	competitionManager.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
