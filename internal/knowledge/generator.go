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

// Generator 定义答案生成接口（LLM端点）
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Ready() bool
}

// NoopGenerator 默认占位实现
type NoopGenerator struct{}

func (n *NoopGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("llm provider not configured")
}

func (n *NoopGenerator) Ready() bool {
	return false
}

// OllamaGenerator 使用本地Ollama服务生成答案
type OllamaGenerator struct {
	client      *ollama.Client
	model       string
	temperature float64
}

// NewOllamaGenerator 创建Ollama生成器
func NewOllamaGenerator(client *ollama.Client, model string, temperature float64) Generator {
	if client == nil {
		return &NoopGenerator{}
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is empty")
	}
	return g.client.Generate(ctx, ollama.GenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Options: map[string]interface{}{
			"temperature": g.temperature,
		},
	})
}

func (g *OllamaGenerator) Ready() bool {
	return g.client != nil && g.client.Ready()
}

// OpenAIGenerator 使用OpenAI Chat Completion API生成答案
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	limiter sync.Mutex
}

// NewOpenAIGenerator 创建OpenAI生成器。
// baseURL为空时使用官方端点；timeout限制单次API调用时长。
func NewOpenAIGenerator(apiKey, model, baseURL string, timeout time.Duration) Generator {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopGenerator{}
	}
	if model == "" {
		model = "gpt-4o-mini"
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

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is empty")
	}
	if g.client == nil {
		return "", errors.New("openai client not initialized")
	}

	g.limiter.Lock()
	defer g.limiter.Unlock()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion response empty")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Ready() bool {
	return g.client != nil
}
