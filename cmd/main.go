package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"jiancai_surplus_v1/internal/controller"
	"jiancai_surplus_v1/internal/middleware"
	"jiancai_surplus_v1/internal/model"
	"jiancai_surplus_v1/internal/repository"
	"jiancai_surplus_v1/internal/router"
	"jiancai_surplus_v1/internal/service"
	"jiancai_surplus_v1/internal/task"
	"jiancai_surplus_v1/internal/workflow"
	"jiancai_surplus_v1/pkg/database"
	"jiancai_surplus_v1/pkg/marketplace"
)

func main() {
	// 1. 初始化数据库与 Redis
	db := initDatabase()
	rdb := initRedis()

	// 2. 初始化依赖
	deps := initDependencies(db, rdb)

	// 3. 启动定时任务
	tm := initTasks(deps)
	defer tm.Stop()

	// 4. 初始化路由
	r := gin.Default()
	router.SetupRouter(r, deps.Controllers.Workflow, deps.Controllers.Category)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Redis       redis.UniversalClient
	Repos       *Repositories
	Services    *Services
	Controllers *Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Listing  repository.ListingRepository
	Category repository.CategoryRepository
	Draft    repository.DraftStore
}

// Services 服务集合
type Services struct {
	Workflow *service.WorkflowService
	Category *service.CategoryService
}

// Controllers 控制器集合
type Controllers struct {
	Workflow *controller.WorkflowController
	Category *controller.CategoryController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=postgres password=postgres dbname=jiancai_surplus port=5432 sslmode=disable")
	return database.InitDB(dsn,
		&model.SubmittedListing{},
		&model.Category{},
	)
}

// initRedis 初始化 Redis
func initRedis() redis.UniversalClient {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	return database.InitRedis(&database.RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	})
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB, rdb redis.UniversalClient) *Dependencies {
	// -------- JWT 配置 --------
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		cfg := middleware.DefaultJWTConfig()
		cfg.SecretKey = secret
		middleware.SetJWTConfig(cfg)
	}

	// -------- Repo 层 --------
	repos := &Repositories{
		Listing:  repository.NewListingRepository(db),
		Category: repository.NewCategoryRepository(db),
		Draft:    repository.NewRedisDraftStore(rdb, 0),
	}

	// -------- 主站客户端 --------
	client := marketplace.NewClient(&marketplace.Config{
		BaseURL: getEnv("MARKETPLACE_BASE_URL", "https://api.jiancai-mart.com"),
		APIKey:  getEnv("MARKETPLACE_API_KEY", ""),
		Debug:   getEnv("MARKETPLACE_DEBUG", "") == "true",
	})

	// -------- 存储 --------
	blobs := initBlobStore()

	// -------- 业务服务 --------
	autosaveSec, _ := strconv.Atoi(getEnv("AUTOSAVE_INTERVAL_SECONDS", "30"))
	services := &Services{
		Workflow: service.NewWorkflowService(
			repos.Draft, repos.Listing, client, blobs,
			time.Duration(autosaveSec)*time.Second,
		),
		Category: service.NewCategoryService(repos.Category, client, 0),
	}

	// -------- Controller 层 --------
	controllers := &Controllers{
		Workflow: controller.NewWorkflowController(services.Workflow),
		Category: controller.NewCategoryController(services.Category),
	}

	return &Dependencies{
		DB:          db,
		Redis:       rdb,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initBlobStore 初始化图片暂存后端
func initBlobStore() workflow.BlobStore {
	blobs, err := service.NewBlobStore(&service.StorageConfig{
		Provider:  getEnv("STORAGE_PROVIDER", "local"),
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", "jiancai-surplus"),
		BaseURL:   getEnv("STORAGE_BASE_URL", ""),
	})
	if err != nil {
		log.Printf("警告: 存储服务初始化失败，图片只保留内存预览: %v", err)
		return nil
	}
	return blobs
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) *task.TaskManager {
	maxIdleHours, _ := strconv.Atoi(getEnv("SESSION_MAX_IDLE_HOURS", "24"))

	tm := task.NewTaskManager(deps.Services.Workflow, deps.Services.Category, &task.TaskManagerConfig{
		CleanupEnabled:  true,
		SessionMaxIdle:  time.Duration(maxIdleHours) * time.Hour,
		CategoryEnabled: true,
	})
	tm.Start()
	return tm
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
