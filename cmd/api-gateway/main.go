package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/studyplan-api/api/swagger"
	"github.com/noah-isme/studyplan-api/internal/handler"
	internalmiddleware "github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
	"github.com/noah-isme/studyplan-api/internal/scheduling"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/pkg/cache"
	"github.com/noah-isme/studyplan-api/pkg/config"
	"github.com/noah-isme/studyplan-api/pkg/database"
	"github.com/noah-isme/studyplan-api/pkg/export"
	"github.com/noah-isme/studyplan-api/pkg/jobs"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
	"github.com/noah-isme/studyplan-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studyplan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studyplan-api/pkg/middleware/requestid"
	"github.com/noah-isme/studyplan-api/pkg/observability"
)

// @title Study Plan API
// @version 1.0.0
// @description Study schedule generation, spaced review and conflict repair.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	shutdownTracing, err := observability.InitTracing(cfg.Tracing, cfg.Env, os.Stdout)
	if err != nil {
		logr.Fatal("failed to init tracing", zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := database.EnsureSchema(context.Background(), db); err != nil {
		logr.Fatal("failed to apply schema", zap.Error(err))
	}

	var redisClient redis.Cmdable
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		redisClient = client
		defer client.Close()
	}

	calc, err := localdate.NewCalculator(cfg.Planner.TimeZone)
	if err != nil {
		logr.Warn("unknown planner timezone, falling back to UTC", zap.String("timezone", cfg.Planner.TimeZone), zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()

	planRepo := repository.NewStudyPlanRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	sessionRepo := repository.NewStudySessionRepository(db)
	exclusionRepo := repository.NewExclusionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Planner.SummaryCacheTTL, logr, redisClient != nil)
	persister := service.NewSchedulePersister(topicRepo, sessionRepo, exclusionRepo, cfg.Planner.InsertChunkSize, logr)
	engine := scheduling.NewEngine(calc, logr)

	scheduleSvc := service.NewStudyScheduleService(
		planRepo, topicRepo, sessionRepo, exclusionRepo, persister, engine, db,
		cacheSvc, metricsSvc, validator.New(), logr,
		service.StudyScheduleConfig{SummaryTTL: cfg.Planner.SummaryCacheTTL},
	)
	conflictSvc := service.NewScheduleConflictService(
		planRepo, sessionRepo, calc, db, cacheSvc, metricsSvc, logr,
		service.ScheduleConflictConfig{
			DailyCeilingMinutes:  cfg.Audit.DailyCeilingMinutes,
			GapWarningDays:       cfg.Audit.GapWarningDays,
			GapCriticalDays:      cfg.Audit.GapCriticalDays,
			RelocationWindowDays: cfg.Audit.RelocationWindowDays,
			CacheTTL:             cfg.Audit.CacheTTL,
		},
	)
	exportSvc := service.NewScheduleExportService(scheduleSvc, export.NewCSVExporter(), export.NewPDFExporter())
	tokens := service.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)

	var auditQueue *jobs.Queue
	if cfg.Audit.AsyncEnabled {
		auditQueue = jobs.NewQueue(service.AuditJobType, conflictSvc.HandleAuditJob, jobs.QueueConfig{
			Workers:    cfg.Audit.Workers,
			MaxRetries: 1,
			JobTimeout: time.Minute,
			Logger:     logr,
		})
		conflictSvc.UseQueue(auditQueue)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if auditQueue != nil {
		auditQueue.Start(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
		"postgres": dbPinger{db: db},
		"redis":    cacheRepo,
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	scheduleHandler := handler.NewStudyScheduleHandler(scheduleSvc, exportSvc)
	conflictHandler := handler.NewScheduleConflictHandler(conflictSvc)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokens))
	api.Use(internalmiddleware.RequireRoles(models.RoleStudent, models.RoleAdmin))
	{
		plans := api.Group("/study-plans/:id")
		plans.POST("/schedule", scheduleHandler.Generate)
		plans.POST("/schedule/preview", scheduleHandler.Preview)
		plans.GET("/schedule/summary", scheduleHandler.Summary)
		plans.GET("/sessions", scheduleHandler.Sessions)
		plans.GET("/sessions/export", scheduleHandler.Export)
		plans.GET("/exclusions", scheduleHandler.Exclusions)

		plans.POST("/conflicts/audit", conflictHandler.Audit)
		plans.GET("/conflicts/audit", conflictHandler.LatestAudit)
		plans.POST("/conflicts/resolve", conflictHandler.Resolve)
	}

	admin := api.Group("/admin", internalmiddleware.RequireRoles(models.RoleAdmin))
	admin.GET("/metrics", metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if auditQueue != nil {
		auditQueue.Stop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracer shutdown failed", zap.Error(err))
	}
}

type dbPinger struct {
	db *sqlx.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
