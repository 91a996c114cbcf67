// ZhouPai 周排班核心服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhoupai/zhoupai/internal/config"
	"github.com/zhoupai/zhoupai/internal/database"
	"github.com/zhoupai/zhoupai/internal/handler"
	"github.com/zhoupai/zhoupai/internal/loader"
	"github.com/zhoupai/zhoupai/internal/metrics"
	"github.com/zhoupai/zhoupai/pkg/logger"
	"github.com/zhoupai/zhoupai/pkg/scheduler/generator"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("ZhouPai 周排班核心启动")

	// 数据库连接可选：无数据库时仅支持内联上下文请求
	var contextLoader *loader.Loader
	if db, err := database.New(&cfg.Database); err != nil {
		logger.Warn().Err(err).Msg("数据库不可用，仅支持内联上下文请求")
	} else {
		defer db.Close()
		contextLoader = loader.New(db)
	}

	gen := generator.New(cfg.Scheduler.SolverOptions())
	scheduleHandler := handler.NewScheduleHandler(gen, contextLoader, cfg.Scheduler.Strategy())

	mux := http.NewServeMux()

	// 系统端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"zhoupai"}`))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// API v1 端点
	mux.HandleFunc("/api/v1/schedule/generate", withRequestMetrics("/api/v1/schedule/generate", scheduleHandler.HandleGenerate))
	mux.HandleFunc("/api/v1/schedule/validate", withRequestMetrics("/api/v1/schedule/validate", scheduleHandler.HandleValidate))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
	}

	// 优雅关闭
	done := make(chan struct{})
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info().Msg("收到退出信号，开始关闭服务")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("服务关闭失败")
		}
		close(done)
	}()

	logger.Info().Int("port", cfg.App.Port).Msg("HTTP服务开始监听")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("HTTP服务异常退出")
	}

	<-done
	logger.Info().Msg("服务已退出")
}

// withRequestMetrics 包装请求指标采集
func withRequestMetrics(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r)
		metrics.RecordRequestMetrics(r.Method, path, recorder.status, time.Since(start))
	}
}

// statusRecorder 捕获响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
