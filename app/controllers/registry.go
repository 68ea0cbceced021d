package controllers

import (
	"github.com/aihub/ragbot-go/internal/services"
)

// 控制器通过包级注册表获取服务实例（beego按请求反射创建控制器，
// 无法直接注入字段）。由bootstrap在启动时填充。
var (
	ragService    *services.RAGService
	visionService *services.VisionService
	cacheService  *services.CacheService
)

// SetServices 注册控制器依赖的服务实例
func SetServices(rag *services.RAGService, vision *services.VisionService, cache *services.CacheService) {
	ragService = rag
	visionService = vision
	cacheService = cache
}
