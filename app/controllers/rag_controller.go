package controllers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/aihub/ragbot-go/internal/config"
	"github.com/aihub/ragbot-go/internal/logger"
	"github.com/aihub/ragbot-go/internal/services"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// RAGController 问答与文档摄取控制器
type RAGController struct {
	BaseController
	rag *services.RAGService
}

func (c *RAGController) Prepare() {
	if c.rag == nil {
		c.rag = ragService
	}
}

// QueryRequest 问答请求
type QueryRequest struct {
	Question       string `json:"question" validate:"required"`
	TopK           int    `json:"top_k" validate:"gte=0,lte=50"`
	IncludeSources bool   `json:"include_sources"`
}

// IngestTextRequest 文本摄取请求
type IngestTextRequest struct {
	Text     string            `json:"text" validate:"required"`
	Metadata map[string]string `json:"metadata"`
}

// POST /api/rag/query
func (c *RAGController) Query() {
	if c.rag == nil {
		c.JSONError(http.StatusServiceUnavailable, "RAG service not ready")
		return
	}

	var req QueryRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "请求参数错误")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, "question is required")
		return
	}

	result := c.rag.Query(c.Ctx.Request.Context(), req.Question, req.TopK, req.IncludeSources)
	c.JSONSuccess(result)
}

// POST /api/rag/text
func (c *RAGController) IngestText() {
	if c.rag == nil {
		c.JSONError(http.StatusServiceUnavailable, "RAG service not ready")
		return
	}

	var req IngestTextRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "请求参数错误")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, "text is required")
		return
	}

	ok := c.rag.IngestText(c.Ctx.Request.Context(), req.Text, req.Metadata)
	c.JSONSuccess(map[string]interface{}{"ingested": ok})
}

// POST /api/rag/upload
func (c *RAGController) Upload() {
	if c.rag == nil {
		c.JSONError(http.StatusServiceUnavailable, "RAG service not ready")
		return
	}

	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	cfg := config.GetAppConfig()
	if header.Size > cfg.FileUpload.MaxSize {
		c.JSONError(http.StatusRequestEntityTooLarge, "文件过大")
		return
	}

	// 先落到临时目录再摄取，摄取完成后清理
	if err := os.MkdirAll(cfg.FileUpload.UploadPath, 0o755); err != nil {
		c.JSONError(http.StatusInternalServerError, "上传目录创建失败")
		return
	}
	dst := filepath.Join(cfg.FileUpload.UploadPath, filepath.Base(header.Filename))
	if err := c.SaveToFile("file", dst); err != nil {
		logger.Error("Failed to save uploaded file", zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "文件保存失败")
		return
	}
	defer os.Remove(dst)

	ok := c.rag.IngestFile(c.Ctx.Request.Context(), dst, map[string]string{
		"uploaded_as": header.Filename,
	})
	c.JSONSuccess(map[string]interface{}{
		"ingested": ok,
		"filename": header.Filename,
	})
}

// GET /api/rag/stats
func (c *RAGController) Stats() {
	if c.rag == nil {
		c.JSONError(http.StatusServiceUnavailable, "RAG service not ready")
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"index":             c.rag.GetIndexStats(),
		"supported_formats": c.rag.SupportedFormats(),
	})
}

// POST /api/rag/clear
func (c *RAGController) Clear() {
	if c.rag == nil {
		c.JSONError(http.StatusServiceUnavailable, "RAG service not ready")
		return
	}

	if !c.rag.ClearIndex() {
		c.JSONError(http.StatusInternalServerError, "清空索引失败")
		return
	}
	c.JSONSuccess(map[string]interface{}{"cleared": true})
}
