package router

import (
	"github.com/aihub/ragbot-go/app/controllers"
	"github.com/aihub/ragbot-go/internal/services"
	"github.com/beego/beego/v2/server/web"
)

// Init 注册所有路由，必须在配置加载后调用
func Init(metrics *services.MetricsService) {
	web.Router("/", &controllers.HealthController{}, "get:Root")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	// 知识库问答路由
	ragController := &controllers.RAGController{}
	web.Router("/api/rag/query", ragController, "post:Query")
	web.Router("/api/rag/text", ragController, "post:IngestText")
	web.Router("/api/rag/upload", ragController, "post:Upload")
	web.Router("/api/rag/stats", ragController, "get:Stats")
	web.Router("/api/rag/clear", ragController, "post:Clear")

	// 缓存管理路由
	cacheController := &controllers.CacheController{}
	web.Router("/api/cache/stats", cacheController, "get:Stats")
	web.Router("/api/cache/clear", cacheController, "post:Clear")

	// 图像描述路由
	web.Router("/api/vision/describe", &controllers.VisionController{}, "post:Describe")

	// Prometheus 指标
	if metrics != nil {
		web.Handler("/metrics", metrics.Handler(), true)
	}
}
