package knowledge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aihub/ragbot-go/internal/ollama"
	openai "github.com/sashabaranov/go-openai"
)

// Embedder 定义文本向量化接口
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Ready() bool
}

// NoopEmbedder 默认占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder 使用OpenAI Embedding API
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	limiter    sync.Mutex
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器。
// baseURL为空时使用官方端点；timeout限制单次API调用时长。
func NewOpenAIEmbedder(apiKey, model, baseURL string, timeout time.Duration) Embedder {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	// 所有外部调用都要有界超时，默认HTTP客户端没有
	config.HTTPClient = &http.Client{Timeout: timeout}

	client := openai.NewClientWithConfig(config)
	dims, ok := embeddingDimensions[model]
	if !ok {
		dims = 1536
	}

	return &OpenAIEmbedder{
		client:     client,
		model:      model,
		dimensions: dims,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	if e.client == nil {
		return nil, errors.New("openai client not initialized")
	}

	e.limiter.Lock()
	defer e.limiter.Unlock()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response empty")
	}

	embedding := resp.Data[0].Embedding
	result := make([]float32, len(embedding))
	copy(result, embedding)
	return result, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}

// OllamaEmbedder 使用本地Ollama服务生成向量。
// 向量维度由模型决定，首次调用后记录。
type OllamaEmbedder struct {
	client *ollama.Client
	model  string

	mu         sync.Mutex
	dimensions int
}

// NewOllamaEmbedder 创建Ollama嵌入向量生成器
func NewOllamaEmbedder(client *ollama.Client, model string) Embedder {
	if client == nil {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaEmbedder{
		client: client,
		model:  model,
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}

	embedding, err := e.client.Embeddings(ctx, e.model, text)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.dimensions == 0 {
		e.dimensions = len(embedding)
	}
	e.mu.Unlock()

	return embedding, nil
}

func (e *OllamaEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

func (e *OllamaEmbedder) Ready() bool {
	return e.client != nil && e.client.Ready()
}
