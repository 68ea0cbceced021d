package controllers

import "time"

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

func (c *HealthController) Health() {
	status := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}
	if ragService != nil {
		status["index"] = ragService.GetIndexStats()
	}
	if cacheService != nil {
		status["cache_enabled"] = cacheService.Enabled()
	}
	c.JSONSuccess(status)
}

func (c *HealthController) Root() {
	c.JSONSuccess(map[string]interface{}{
		"service": "ragbot-go",
		"message": "retrieval augmented generation service",
	})
}
