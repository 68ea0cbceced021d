package di

import (
	"fmt"
	"time"

	"github.com/aihub/ragbot-go/internal/config"
	"github.com/aihub/ragbot-go/internal/database"
	"github.com/aihub/ragbot-go/internal/knowledge"
	"github.com/aihub/ragbot-go/internal/logger"
	"github.com/aihub/ragbot-go/internal/ollama"
	"github.com/aihub/ragbot-go/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	// 注册配置
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.GetAppConfig()
		if cfg == nil {
			return nil, fmt.Errorf("config not loaded")
		}
		return cfg, nil
	}); err != nil {
		return err
	}

	// 注册Redis客户端。连接失败返回nil客户端：缓存降级为禁用，不阻断启动
	if err := container.Provide(func(cfg *config.Config) *redis.Client {
		client, err := database.InitRedis()
		if err != nil {
			logger.Warn("Redis cache disabled", zap.Error(err))
			return nil
		}
		logger.Info("Redis cache connected",
			zap.String("host", cfg.Redis.Host), zap.String("port", cfg.Redis.Port))
		return client
	}); err != nil {
		return err
	}

	// 注册Ollama客户端
	if err := container.Provide(func(cfg *config.Config) *ollama.Client {
		return ollama.NewClient(cfg.Ollama.BaseURL, time.Duration(cfg.Ollama.Timeout)*time.Second)
	}); err != nil {
		return err
	}

	// 注册Embedder（按配置选择提供方）
	if err := container.Provide(func(cfg *config.Config, client *ollama.Client) knowledge.Embedder {
		if cfg.AI.Provider == "openai" && cfg.AI.OpenAIAPIKey != "" {
			return knowledge.NewOpenAIEmbedder(cfg.AI.OpenAIAPIKey, cfg.AI.EmbeddingModel,
				cfg.AI.BaseURL, time.Duration(cfg.AI.Timeout)*time.Second)
		}
		return knowledge.NewOllamaEmbedder(client, cfg.Ollama.EmbeddingModel)
	}); err != nil {
		return err
	}

	// 注册Generator
	if err := container.Provide(func(cfg *config.Config, client *ollama.Client) knowledge.Generator {
		if cfg.AI.Provider == "openai" && cfg.AI.OpenAIAPIKey != "" {
			return knowledge.NewOpenAIGenerator(cfg.AI.OpenAIAPIKey, cfg.AI.ChatModel,
				cfg.AI.BaseURL, time.Duration(cfg.AI.Timeout)*time.Second)
		}
		return knowledge.NewOllamaGenerator(client, cfg.Ollama.LLMModel, cfg.Ollama.Temperature)
	}); err != nil {
		return err
	}

	// 注册文档加载器和分块器
	if err := container.Provide(knowledge.NewDocumentLoader); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config) *knowledge.Chunker {
		return knowledge.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	}); err != nil {
		return err
	}

	// 注册向量索引（构造时加载持久化状态）
	if err := container.Provide(func(cfg *config.Config, embedder knowledge.Embedder) *knowledge.VectorIndex {
		return knowledge.NewVectorIndex(cfg.Knowledge.IndexPath, embedder,
			cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	}); err != nil {
		return err
	}

	// 注册缓存服务
	if err := container.Provide(func(cfg *config.Config, client *redis.Client) *services.CacheService {
		return services.NewCacheService(client, time.Duration(cfg.Redis.TTL)*time.Second)
	}); err != nil {
		return err
	}

	// 注册指标服务
	if err := container.Provide(services.NewMetricsService); err != nil {
		return err
	}

	// 注册RAG服务
	if err := container.Provide(func(
		cfg *config.Config,
		index *knowledge.VectorIndex,
		loader *knowledge.DocumentLoader,
		chunker *knowledge.Chunker,
		generator knowledge.Generator,
		cache *services.CacheService,
		metrics *services.MetricsService,
	) *services.RAGService {
		return services.NewRAGService(index, loader, chunker, generator, cache, metrics, cfg.Knowledge.TopK)
	}); err != nil {
		return err
	}

	// 注册图片描述服务
	if err := container.Provide(func(cfg *config.Config, client *ollama.Client, cache *services.CacheService) *services.VisionService {
		return services.NewVisionService(client, cfg.Ollama.VisionModel, cache)
	}); err != nil {
		return err
	}

	return nil
}
