package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	apperrors "github.com/aihub/ragbot-go/internal/errors"
	"github.com/aihub/ragbot-go/internal/logger"
	"github.com/aihub/ragbot-go/internal/ollama"
	"go.uber.org/zap"
)

// 默认的图片描述提示词
const defaultVisionPrompt = "Describe this image very precisely and in detail"

// ImageCache 图片描述缓存的窄接口
type ImageCache interface {
	GetImageDescription(ctx context.Context, key string) (string, bool)
	SetImageDescription(ctx context.Context, key, description string) bool
}

// VisionService 图片描述服务。相同图片（按内容哈希判定）的
// 描述结果会被缓存。
type VisionService struct {
	client *ollama.Client
	model  string
	cache  ImageCache
}

// NewVisionService 创建图片描述服务
func NewVisionService(client *ollama.Client, model string, cache ImageCache) *VisionService {
	if model == "" {
		model = "llava"
	}
	return &VisionService{
		client: client,
		model:  model,
		cache:  cache,
	}
}

// DescribeImage 描述图片。先查缓存，未命中时调用视觉模型，
// 成功后写回缓存。
func (s *VisionService) DescribeImage(ctx context.Context, imageData []byte, prompt string) (string, error) {
	if len(imageData) == 0 {
		return "", apperrors.NewInputError(apperrors.ErrCodeEmptyInput, "image data is empty")
	}
	if s.client == nil || !s.client.Ready() {
		return "", fmt.Errorf("vision model not configured")
	}

	key := ImageKey(imageData)
	if cached, ok := s.cache.GetImageDescription(ctx, key); ok {
		return cached, nil
	}

	if strings.TrimSpace(prompt) == "" {
		prompt = defaultVisionPrompt
	}

	encoded := base64.StdEncoding.EncodeToString(imageData)
	description, err := s.client.Generate(ctx, ollama.GenerateRequest{
		Model:  s.model,
		Prompt: prompt,
		Images: []string{encoded},
	})
	if err != nil {
		return "", fmt.Errorf("vision model call failed: %w", err)
	}

	s.cache.SetImageDescription(ctx, key, description)
	logger.Info("Image described", zap.String("key", truncateKey(key)))
	return description, nil
}
