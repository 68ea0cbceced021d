package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aihub/ragbot-go/internal/logger"
	"go.uber.org/zap"
)

// Client Ollama HTTP客户端，支持Embedding、文本生成和视觉描述
type Client struct {
	baseURL string
	client  *http.Client
}

// EmbeddingRequest 向量化请求
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbeddingResponse 向量化响应
type EmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// GenerateRequest 文本生成请求。Images携带base64编码的图片（视觉模型）。
type GenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Images  []string               `json:"images,omitempty"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// GenerateResponse 文本生成响应
type GenerateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
}

// apiError Ollama API错误
type apiError struct {
	Error string `json:"error"`
}

// NewClient 创建Ollama客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second // 生成可能需要较长时间
	}

	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Embeddings 调用向量化接口
func (c *Client) Embeddings(ctx context.Context, model, text string) ([]float32, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("ollama client not initialized")
	}

	var resp EmbeddingResponse
	if err := c.post(ctx, "/api/embeddings", EmbeddingRequest{Model: model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response empty")
	}

	result := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		result[i] = float32(v)
	}
	return result, nil
}

// Generate 调用文本生成接口
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("ollama client not initialized")
	}
	req.Stream = false

	var resp GenerateResponse
	if err := c.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}

	logger.Debug("Ollama generate success",
		zap.String("model", req.Model),
		zap.Int("eval_count", resp.EvalCount))

	return resp.Response, nil
}

// post 发送JSON请求并解析响应
func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("API调用失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("Ollama API错误: %s (HTTP %d)", errResp.Error, resp.StatusCode)
		}
		return fmt.Errorf("Ollama API错误: HTTP %d - %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// Ready 检查客户端是否可用
func (c *Client) Ready() bool {
	return c != nil && c.client != nil
}
