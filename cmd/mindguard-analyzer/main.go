package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindguard-analyzer/internal/baseline"
	"mindguard-analyzer/internal/classifier"
	"mindguard-analyzer/internal/common/database"
	"mindguard-analyzer/internal/common/logger"
	"mindguard-analyzer/internal/common/mqtt"
	commonredis "mindguard-analyzer/internal/common/redis"
	"mindguard-analyzer/internal/config"
	"mindguard-analyzer/internal/consumer"
	"mindguard-analyzer/internal/evaluator"
	httpapi "mindguard-analyzer/internal/http"
	"mindguard-analyzer/internal/notifier"
	"mindguard-analyzer/internal/policy"
	"mindguard-analyzer/internal/repository"
	"mindguard-analyzer/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "mindguard-analyzer")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 加载分析策略
	p, err := policy.Load(cfg.Analysis.PolicyFile)
	if err != nil {
		log.Fatal("Failed to load policy", zap.Error(err))
	}
	log.Info("Policy loaded",
		zap.String("file", cfg.Analysis.PolicyFile),
		zap.String("weights_version", p.Weights.Version),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. 可选依赖：连接失败时降级为只计算
	var deps service.Dependencies

	var db *sql.DB
	if cfg.Enabled.Database {
		if d, err := database.NewPostgresDB(ctx, &cfg.Database); err == nil {
			repo := repository.NewAssessmentRepository(d, log)
			if err := repo.EnsureSchema(ctx); err != nil {
				log.Warn("Failed to ensure schema, assessments will not be persisted", zap.Error(err))
				_ = d.Close()
			} else {
				db = d
				deps.Store = repo
				log.Info("DB enabled for mindguard-analyzer")
			}
		} else {
			log.Warn("DB enabled but connection failed, assessments will not be persisted", zap.Error(err))
		}
	}

	var redisClient *commonredis.Client
	if cfg.Enabled.Redis {
		c := commonredis.NewRedisClient(&cfg.Redis)
		if err := commonredis.Ping(ctx, c); err == nil {
			redisClient = c
			deps.Cache = consumer.NewCacheManager(cfg, c, log)
			deps.Snapshots = consumer.NewStateManager(cfg, c, log)
			deps.Publisher = consumer.NewStreamPublisher(cfg, c, log)
			log.Info("Redis enabled for mindguard-analyzer")
		} else {
			log.Warn("Redis enabled but ping failed, cache and stream disabled", zap.Error(err))
			_ = commonredis.Close(c)
		}
	}

	var mqttClient *mqtt.Client
	if cfg.Enabled.MQTT {
		if c, err := mqtt.NewClient(&cfg.MQTT, log); err == nil {
			mqttClient = c
			deps.Notifier = notifier.NewNotifier(c, cfg.Analysis.AlertTopicPrefix, log)
			log.Info("MQTT enabled for guardian alerts")
		} else {
			log.Warn("MQTT enabled but connection failed, guardian alerts disabled", zap.Error(err))
		}
	}

	if cfg.Classifier.BaseURL != "" {
		deps.Classifier = classifier.NewClient(cfg.Classifier.BaseURL, time.Duration(cfg.Classifier.Timeout)*time.Second, log)
	}

	// 5. 评估器与服务
	eval := evaluator.NewEvaluator(p, baseline.NewMemoryStore(cfg.Analysis.BaselineCacheSize), log)
	analysis := service.NewAnalysisService(cfg, eval, deps, log)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterAnalysisRoutes(httpapi.NewAnalysisHandler(analysis, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	// 6. 启动 HTTP 服务
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 7. 等待信号（优雅关闭）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server error", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = commonredis.Close(redisClient)
	if db != nil {
		_ = database.Close(db)
	}

	log.Info("mindguard-analyzer stopped")
}
