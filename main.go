package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-parser/internal/api/handler"
	"resume-parser/internal/api/router"
	"resume-parser/internal/bootstrap"
	"resume-parser/internal/logger"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "配置文件路径，为空时按默认路径查找")
	pflag.Parse()

	ctx := context.Background()

	// 1. 加载配置并初始化所有组件
	rt, err := bootstrap.Setup(ctx, *configPath, "resume-parser-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("启动失败")
	}
	defer rt.Close()
	logger.BridgeHertz()

	// 成功的解析通过发件箱发布事件
	if rt.EnableParsedEventOutbox() {
		relay, err := rt.StartOutboxRelay(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("启动发件箱中继失败")
		}
		defer relay.Stop()
	}

	// 2. 创建HTTP服务器并注册路由
	cfg := rt.Config
	h := router.NewServer(cfg.Server, cfg.Tracing.Enabled)
	router.RegisterRoutes(h, handler.NewParseHandler(rt.Service, cfg.Server.MaxUploadMB), cfg.Server)

	// 3. 启动HTTP服务器
	go func() {
		logger.Info().Str("address", cfg.Server.Address).Bool("auth", len(cfg.Server.APIKeys) > 0).Msg("HTTP服务器正在启动")
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	// 4. 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	// 5. 优雅关闭HTTP服务器
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}

	logger.Info().Msg("优雅退出完成")
}
