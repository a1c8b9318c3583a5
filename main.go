package main

import (
	"log"
	"os"

	"rewear_go/config"
	"rewear_go/middleware"
	"rewear_go/routes"
	"rewear_go/websocket"

	"github.com/joho/godotenv"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 设置环境
	env := os.Getenv("GIN_MODE")
	if env == "" {
		os.Setenv("GIN_MODE", "debug")
	}

	// 初始化日志系统
	if err := middleware.InitLogger(env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer middleware.FlushLogger()

	// 初始化数据库
	if err := config.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer config.CloseDatabase()

	// 执行迁移
	if err := config.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化Redis（失败则降级为无缓存运行）
	if config.GetServerConfig().RedisEnabled {
		if err := config.InitializeRedis(); err != nil {
			log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
			log.Println("Continuing without Redis caching...")
			config.RedisClient = nil
		}
		defer config.CloseRedis()
	} else {
		log.Println("ℹ️  Redis is disabled in configuration")
	}

	// 初始化通知服务
	if err := websocket.InitWebSocket(); err != nil {
		log.Fatalf("Failed to initialize notification service: %v", err)
	}
	defer websocket.CloseWebSocket()

	// 设置路由
	r := config.SetupRouter()

	// 注册业务路由
	routes.SetupRoutes(r)

	// 启动服务器
	if err := config.StartServer(r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
