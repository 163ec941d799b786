package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"siemadmin/cache"
	"siemadmin/config"
	"siemadmin/database"
	"siemadmin/logger"
	"siemadmin/middleware"
	"siemadmin/router"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// @title SIEM 管理后台 API
// @version 1.0
// @description 菜单导航、权限解析与部门层级管理
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		log.Println("siemadmin v1.0.0")
		return
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
		log.Printf("命令行指定端口: %s", port)
	}

	config.PrintConfig(cfg)

	lm, err := logger.InitLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer lm.Close()

	db, err := database.Init(cfg)
	if err != nil {
		logger.Fatalf("数据库初始化失败: %v", err)
	}

	// Redis 不可用时导航直接查库
	var store cache.Store
	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warnf("Redis 连接失败，导航缓存已停用: %v", err)
	} else if redisClient != nil {
		store = cache.NewRedisStore(redisClient)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	navCache := cache.NewNavigationCache(store, cfg.Cache.KeyPrefix, cfg.Cache.NavigationTTL, cache.NewMetrics(registry))

	middleware.InitJWT(&cfg.JWT)

	r := router.SetupRouter(router.Dependencies{
		Config:   cfg,
		DB:       db,
		Cache:    navCache,
		Gatherer: registry,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("siemadmin 已启动: http://localhost%s/api/v1/ (Swagger: /swagger/index.html)", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("服务关闭超时: %v", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Errorf("关闭 Redis 失败: %v", err)
		}
	}
	if err := database.Close(db); err != nil {
		logger.Errorf("关闭数据库失败: %v", err)
	}
	logger.Info("服务已退出")
}
