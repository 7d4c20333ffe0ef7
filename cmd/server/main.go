package main

import (
	"collaborative-notes/auth"
	"collaborative-notes/internal/config"
	"collaborative-notes/internal/db"
	"collaborative-notes/internal/middleware"
	"collaborative-notes/internal/note"
	"collaborative-notes/internal/user"
	"collaborative-notes/internal/worker"
	"collaborative-notes/pkg/logger"
	appRedis "collaborative-notes/redis"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()
	logger.Init()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Seed database with initial data (for development)
	if config.AppConfig.Environment == "development" {
		db.SeedData()
	}

	// Initialize Redis
	appRedis.InitRedis()
	cache := appRedis.NewCache(appRedis.RedisClient)

	// Background workers for cache maintenance
	workers := worker.NewWorkerPool(4)
	defer workers.Shutdown()

	// Initialize repositories
	userRepo := user.NewRepository(db.AppDb)
	noteRepo := note.NewRepository(db.AppDb)
	// Initialize services
	userService := user.NewService(userRepo)
	noteService := note.NewService(noteRepo, userService, cache, workers)
	// Initialize handlers
	userHandler := user.NewHandler(userService)
	noteHandler := note.NewHandler(noteService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())
	middleware.SetupPrometheus(router)

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	// User routes
	router.POST("/register", userHandler.Register)
	router.POST("/login", userHandler.Login)
	router.DELETE("/logout", auth.AuthMiddleWare(), userHandler.Logout)
	router.GET("/profile", auth.AuthMiddleWare(), userHandler.GetProfile)
	router.GET("/users", auth.AuthMiddleWare(), userHandler.SearchUsers)

	// Note routes
	router.POST("/notes", auth.AuthMiddleWare(), noteHandler.Create)
	router.GET("/notes", auth.AuthMiddleWare(), noteHandler.ShowOwnNotes)
	router.GET("/notes/shared", auth.AuthMiddleWare(), noteHandler.ShowSharedNotes)
	router.GET("/notes/:id", auth.AuthMiddleWare(), noteHandler.ShowNote)
	router.PUT("/notes/:id", auth.AuthMiddleWare(), noteHandler.Edit)
	router.DELETE("/notes/:id", auth.AuthMiddleWare(), noteHandler.Delete)
	router.POST("/notes/:id/share", auth.AuthMiddleWare(), noteHandler.Share)
	router.DELETE("/notes/:id/share/:userId", auth.AuthMiddleWare(), noteHandler.Unshare)
	router.POST("/notes/:id/versions/:versionId/restore", auth.AuthMiddleWare(), noteHandler.Restore)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
