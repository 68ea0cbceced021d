package main

import (
	"log"
	"os"
	"strconv"

	"github.com/aihub/ragbot-go/app/bootstrap"
	"github.com/aihub/ragbot-go/app/router"
	"github.com/aihub/ragbot-go/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	// 在bootstrap之前设置端口
	port := 8001
	if raw := os.Getenv("PORT"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil {
			port = p
		}
	}
	web.BConfig.Listen.HTTPPort = port

	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	// 初始化路由
	router.Init(app.Metrics)

	// 配置Beego全局设置
	web.BConfig.AppName = "RAG Service"
	web.BConfig.CopyRequestBody = true

	logger.Info("🚀 Starting RAG Service", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
