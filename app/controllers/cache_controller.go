package controllers

import (
	"net/http"

	"github.com/aihub/ragbot-go/internal/services"
)

// CacheController 缓存管理控制器
type CacheController struct {
	BaseController
	cache *services.CacheService
}

func (c *CacheController) Prepare() {
	if c.cache == nil {
		c.cache = cacheService
	}
}

// GET /api/cache/stats
func (c *CacheController) Stats() {
	if c.cache == nil {
		c.JSONError(http.StatusServiceUnavailable, "cache service not ready")
		return
	}
	c.JSONSuccess(c.cache.Stats(c.Ctx.Request.Context()))
}

// POST /api/cache/clear?scope=all|images|queries
func (c *CacheController) Clear() {
	if c.cache == nil {
		c.JSONError(http.StatusServiceUnavailable, "cache service not ready")
		return
	}

	scope := services.CacheScope(c.GetString("scope", string(services.ScopeAll)))
	ok := c.cache.Clear(c.Ctx.Request.Context(), scope)
	c.JSONSuccess(map[string]interface{}{"cleared": ok})
}
