package main

import (
	"fmt"
	"log"

	"github.com/hunter-console/internal/api/history"
	"github.com/hunter-console/internal/api/router"
	"github.com/hunter-console/internal/api/ws"
	"github.com/hunter-console/pkg/config"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// 开发后端：实现控制台消费的外部契约（预览/执行端点 + 实时通道），
// 用模拟的扫描进度代替真实的任务队列，让控制台可以脱离真实平台联调。
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	if err := logger.InitLogger(&cfg.Logger, "mockserver", "log/mockserver.log"); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}

	hist, err := history.Open(cfg.MockServer.DBPath)
	if err != nil {
		// 历史库只是开发便利，打不开就不记录
		logger.Logger.Warn("扫描历史库不可用", zap.Error(err))
		hist = nil
	} else {
		defer hist.Close()
	}

	hub := ws.NewHub()
	r := router.SetupRouter(hub, hist)

	addr := fmt.Sprintf(":%s", cfg.MockServer.Port)
	logger.Logger.Info("开发后端已启动", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Logger.Error("开发后端退出", zap.Error(err))
	}
}
