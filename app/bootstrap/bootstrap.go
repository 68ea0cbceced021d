package bootstrap

import (
	"log"

	"github.com/aihub/ragbot-go/app/controllers"
	"github.com/aihub/ragbot-go/internal/config"
	"github.com/aihub/ragbot-go/internal/database"
	"github.com/aihub/ragbot-go/internal/di"
	"github.com/aihub/ragbot-go/internal/logger"
	"github.com/aihub/ragbot-go/internal/services"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error

	Metrics *services.MetricsService
}

// Init bootstraps configuration, logger, cache connections and the service
// graph required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	app := &App{}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		// stderr的Sync错误无关紧要
		_ = logger.Sync()
		return nil
	})

	// Build the service graph via dig.
	container := di.InitContainer()
	if err := di.RegisterProviders(container); err != nil {
		return nil, err
	}

	err := di.Invoke(func(
		rag *services.RAGService,
		vision *services.VisionService,
		cache *services.CacheService,
		metrics *services.MetricsService,
		redisClient *redis.Client,
	) {
		controllers.SetServices(rag, vision, cache)
		app.Metrics = metrics
		if redisClient != nil {
			app.cleanupTasks = append(app.cleanupTasks, database.CloseRedis)
		}
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Application bootstrap complete",
		zap.String("index_path", config.AppConfig.Knowledge.IndexPath),
		zap.Int("chunk_size", config.AppConfig.Knowledge.ChunkSize))

	return app, nil
}

// Shutdown runs registered cleanup tasks in reverse order.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("cleanup task failed: %v", err)
		}
	}
}
