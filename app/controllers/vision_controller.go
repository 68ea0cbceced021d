package controllers

import (
	"io"
	"net/http"

	apperrors "github.com/aihub/ragbot-go/internal/errors"
)

// VisionController 图像描述控制器
type VisionController struct {
	BaseController
}

// POST /api/vision/describe
// multipart 字段: image (必填), prompt (可选)
func (c *VisionController) Describe() {
	if visionService == nil {
		c.JSONError(http.StatusServiceUnavailable, "vision service not ready")
		return
	}

	file, header, err := c.GetFile("image")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "缺少 image 文件字段")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "读取图像数据失败")
		return
	}

	prompt := c.GetString("prompt")

	description, err := visionService.DescribeImage(c.Ctx.Request.Context(), data, prompt)
	if err != nil {
		// 类型化错误携带自己的HTTP状态码
		if appErr, ok := apperrors.GetAppError(err); ok {
			c.JSONError(appErr.HTTPCode, appErr.Message)
			return
		}
		c.JSONError(http.StatusInternalServerError, err.Error())
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"filename":    header.Filename,
		"description": description,
	})
}
