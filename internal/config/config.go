package config

import (
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Ollama     OllamaConfig
	AI         AIConfig
	Knowledge  KnowledgeConfig
	FileUpload FileUploadConfig
	Prometheus PrometheusConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Host     string
	Port     string
	DB       int
	Password string
	TTL      int // 缓存默认TTL（秒）
}

// OllamaConfig 本地Ollama服务配置（embedding、生成、视觉共用一个端点）
type OllamaConfig struct {
	BaseURL        string
	EmbeddingModel string
	LLMModel       string
	VisionModel    string
	Timeout        int // 请求超时（秒）
	Temperature    float64
}

// AIConfig 可选的OpenAI兼容提供方配置
type AIConfig struct {
	Provider       string // ollama | openai
	OpenAIAPIKey   string
	BaseURL        string // 为空时使用官方端点
	EmbeddingModel string
	ChatModel      string
	Timeout        int // 请求超时（秒）
}

type KnowledgeConfig struct {
	ChunkSize           int
	ChunkOverlap        int
	TopK                int
	IndexPath           string
	SimilarityThreshold float64 // 预留配置项，检索不做过滤
}

type FileUploadConfig struct {
	MaxSize      int64
	AllowedTypes []string
	UploadPath   string
}

type PrometheusConfig struct {
	Enabled bool
}

var AppConfig *Config

// LoadConfig 加载配置：默认值 + 环境变量覆盖
func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.ttl", 3600)

	viper.SetDefault("ollama.base_url", "http://localhost:11434")
	viper.SetDefault("ollama.embedding_model", "nomic-embed-text")
	viper.SetDefault("ollama.llm_model", "llama3")
	viper.SetDefault("ollama.vision_model", "llava")
	viper.SetDefault("ollama.timeout", 60)
	viper.SetDefault("ollama.temperature", 0.1)

	viper.SetDefault("ai.provider", "ollama")
	viper.SetDefault("ai.base_url", "")
	viper.SetDefault("ai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("ai.chat_model", "gpt-4o-mini")
	viper.SetDefault("ai.timeout", 60)

	// 知识库配置默认值
	viper.SetDefault("knowledge.chunk_size", 512)
	viper.SetDefault("knowledge.chunk_overlap", 64)
	viper.SetDefault("knowledge.top_k", 5)
	viper.SetDefault("knowledge.index_path", "./data/vector_index")
	viper.SetDefault("knowledge.similarity_threshold", 0.0)

	// 文件上传配置默认值
	viper.SetDefault("file_upload.max_size", 15728640) // 15MB
	viper.SetDefault("file_upload.allowed_types", []string{".txt", ".md", ".pdf", ".docx", ".xlsx"})
	viper.SetDefault("file_upload.upload_path", "./uploads")

	viper.SetDefault("prometheus.enabled", true)

	// 读取环境变量
	viper.SetEnvPrefix("RAGBOT")
	viper.AutomaticEnv()

	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		viper.Set("redis.host", redisHost)
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		viper.Set("redis.port", redisPort)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		viper.Set("redis.password", redisPassword)
	}
	if ollamaURL := os.Getenv("OLLAMA_URL"); ollamaURL != "" {
		viper.Set("ollama.base_url", ollamaURL)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("ai.openai_api_key", apiKey)
		viper.Set("ai.provider", "openai")
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		viper.Set("ai.base_url", baseURL)
	}
	if indexPath := os.Getenv("VECTOR_INDEX_PATH"); indexPath != "" {
		viper.Set("knowledge.index_path", indexPath)
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetString("redis.port"),
			DB:       viper.GetInt("redis.db"),
			Password: viper.GetString("redis.password"),
			TTL:      viper.GetInt("redis.ttl"),
		},
		Ollama: OllamaConfig{
			BaseURL:        viper.GetString("ollama.base_url"),
			EmbeddingModel: viper.GetString("ollama.embedding_model"),
			LLMModel:       viper.GetString("ollama.llm_model"),
			VisionModel:    viper.GetString("ollama.vision_model"),
			Timeout:        viper.GetInt("ollama.timeout"),
			Temperature:    viper.GetFloat64("ollama.temperature"),
		},
		AI: AIConfig{
			Provider:       viper.GetString("ai.provider"),
			OpenAIAPIKey:   viper.GetString("ai.openai_api_key"),
			BaseURL:        viper.GetString("ai.base_url"),
			EmbeddingModel: viper.GetString("ai.embedding_model"),
			ChatModel:      viper.GetString("ai.chat_model"),
			Timeout:        viper.GetInt("ai.timeout"),
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:           viper.GetInt("knowledge.chunk_size"),
			ChunkOverlap:        viper.GetInt("knowledge.chunk_overlap"),
			TopK:                viper.GetInt("knowledge.top_k"),
			IndexPath:           viper.GetString("knowledge.index_path"),
			SimilarityThreshold: viper.GetFloat64("knowledge.similarity_threshold"),
		},
		FileUpload: FileUploadConfig{
			MaxSize:      viper.GetInt64("file_upload.max_size"),
			AllowedTypes: viper.GetStringSlice("file_upload.allowed_types"),
			UploadPath:   viper.GetString("file_upload.upload_path"),
		},
		Prometheus: PrometheusConfig{
			Enabled: viper.GetBool("prometheus.enabled"),
		},
	}

	return nil
}

// GetAppConfig 获取全局配置
func GetAppConfig() *Config {
	return AppConfig
}
