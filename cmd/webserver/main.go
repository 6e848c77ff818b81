package main

import (
	"os"
	"time"

	"game-server-tracker/configs"
	"game-server-tracker/internal/cache"
	"game-server-tracker/internal/database"
	"game-server-tracker/internal/handlers"
	"game-server-tracker/internal/logging"
	"game-server-tracker/internal/middleware"
	"game-server-tracker/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment configuration")
	}

	if err := configs.LoadConfig(); err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	cfg := configs.AppConfig

	logging.Setup(cfg.LogFile, cfg.LogLevel)

	conn, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(conn); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}
	log.WithField("dialect", database.DialectName(conn)).Info("database connection established")

	cacheMgr := cache.NewManager(cfg.RedisURL)

	authService, err := services.NewAuthService(conn, cfg.PSKFormat)
	if err != nil {
		log.WithError(err).Fatal("auth configuration error")
	}

	gameHandler := handlers.NewGameHandler(conn)
	serverHandler := handlers.NewServerHandler(conn, cacheMgr)
	playerHandler := handlers.NewPlayerHandler(conn)
	leaderboardHandler := handlers.NewLeaderboardHandler(conn, cacheMgr)
	wsHandler := handlers.NewWebSocketHandler(cacheMgr)

	if os.Getenv("GIN_MODE") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.ValidateJSON())

	required := middleware.RequireAuth(authService)
	optional := middleware.OptionalAuth(authService)
	rateLimit := middleware.RateLimit(cacheMgr)

	router.GET("/auth-test", required, handlers.AuthTest)
	router.POST("/auth-test", required, handlers.AuthTest)

	router.GET("/game", optional, gameHandler.ListGames)

	router.GET("/server", optional, serverHandler.ListServers)
	router.POST("/server", required, rateLimit, serverHandler.Ping)
	router.DELETE("/server", required, serverHandler.RemoveServer)

	router.GET("/game-player", optional, playerHandler.ListPlayers)
	router.POST("/game-player", required, rateLimit, playerHandler.AddPlayer)

	router.GET("/leaderboard", optional, leaderboardHandler.GetLeaderboard)
	router.POST("/game-player/stats", required, rateLimit, leaderboardHandler.AddStats)
	router.POST("/register-kill", required, rateLimit, leaderboardHandler.RegisterKill)

	if cfg.EnableWebSocket {
		go wsHandler.RunHub()
		router.GET("/ws", wsHandler.HandleConnections)
	}

	router.GET("/health", func(c *gin.Context) {
		redisStatus := "local_cache_only"
		if cacheMgr.IsAvailable() {
			redisStatus = "connected"
		}
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"services": map[string]string{
				"database": "connected",
				"redis":    redisStatus,
			},
		})
	})

	log.Infof("Server starting on port :%s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}
