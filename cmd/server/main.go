package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/palemoky/impostor-party/internal/config"
	"github.com/palemoky/impostor-party/internal/logger"
	"github.com/palemoky/impostor-party/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("读取 .env 失败: %v", err)
	}

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
		cfg.ApplyEnv()
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Close()

	// 创建服务器
	srv, err := server.NewServer(cfg, server.LogNotifier)
	if err != nil {
		logger.LogError("创建服务器失败: %v", err)
		return
	}

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-quit
		logger.LogInfo("正在关闭服务器...")
		srv.GracefulShutdown(cfg.Server.DrainTimeoutDuration())
	}()

	logger.LogInfo("🎮 大厅服务启动中...")
	if err := srv.Start(); err != nil {
		logger.LogError("服务器启动失败: %v", err)
		srv.Shutdown()
		return
	}
	<-done
}
