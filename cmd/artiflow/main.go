// =============================================================================
// Artiflow 主入口
// =============================================================================
// 文物修复 AI 编排服务的完整入口点
//
// 使用方法:
//
//	artiflow serve                       # 启动服务
//	artiflow serve --config config.yaml  # 指定配置文件
//	artiflow migrate --config config.yaml # 建表并写入种子数据
//	artiflow version                     # 显示版本信息
//	artiflow health                      # 健康检查
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/artiflow/ai"
	"github.com/BaSui01/artiflow/ai/registry"
	"github.com/BaSui01/artiflow/api/handlers"
	"github.com/BaSui01/artiflow/config"
	"github.com/BaSui01/artiflow/internal/assetcache"
	"github.com/BaSui01/artiflow/internal/server"
	"github.com/BaSui01/artiflow/internal/store"
)

// 版本信息（构建时注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting Artiflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	st := store.New(db, logger)
	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		logger.Fatal("Database migration failed", zap.Error(err))
	}
	if err := st.Seed(ctx); err != nil {
		logger.Fatal("Database seeding failed", zap.Error(err))
	}

	resolver := registry.NewResolver(st, logger)
	cache := assetcache.New(cfg.Assets.Dir, cfg.Assets.PublicPrefix, logger)

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to access database pool", zap.Error(err))
	}

	router := handlers.Router{
		Health:   handlers.NewHealthHandler(sqlDB.PingContext, logger),
		Project:  handlers.NewProjectHandler(st, logger),
		Artifact: handlers.NewArtifactHandler(st, resolver, cache, ai.Poller{Logger: logger}, cfg.Assets.WatchTimeout, logger),
		Asset:    handlers.NewAssetHandler(cfg.Assets.Dir, cfg.Assets.AllowedHostSuffix, logger),
		Admin:    handlers.NewAdminHandler(st, logger),
		Store:    st,
		Identity: handlers.HeaderIdentity(cfg.Server.IdentityHeader),
		Logger:   logger,
	}

	manager := server.NewManager(router.Build(), server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	if err := manager.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
	manager.WaitForShutdown()

	logger.Info("Artiflow stopped")
}

// =============================================================================
// 🗄️ migrate 命令
// =============================================================================

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}

	st := store.New(db, logger)
	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		logger.Fatal("Database migration failed", zap.Error(err))
	}
	if err := st.Seed(ctx); err != nil {
		logger.Fatal("Database seeding failed", zap.Error(err))
	}
	logger.Info("Migration complete")
}

// =============================================================================
// 🔧 基础设施
// =============================================================================

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch cfg.Driver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("OK")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("Artiflow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Artiflow - artifact restoration AI orchestration service

Usage:
  artiflow serve [--config config.yaml]    Start the service
  artiflow migrate [--config config.yaml]  Create schema and seed data
  artiflow health [--addr URL]             Check a running instance
  artiflow version                         Print version info
  artiflow help                            Show this help`)
}
