package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-arrangement-api/api/swagger"
	"github.com/noah-isme/sma-arrangement-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-arrangement-api/internal/middleware"
	"github.com/noah-isme/sma-arrangement-api/internal/models"
	"github.com/noah-isme/sma-arrangement-api/internal/repository"
	"github.com/noah-isme/sma-arrangement-api/internal/service"
	"github.com/noah-isme/sma-arrangement-api/pkg/cache"
	"github.com/noah-isme/sma-arrangement-api/pkg/config"
	"github.com/noah-isme/sma-arrangement-api/pkg/database"
	"github.com/noah-isme/sma-arrangement-api/pkg/jobs"
	"github.com/noah-isme/sma-arrangement-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-arrangement-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-arrangement-api/pkg/middleware/requestid"
)

// @title SMA Arrangement API
// @version 1.0.0
// @description Substitute teacher arrangements: attendance, automatic cover planning and workload tracking.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to apply schema", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache and distributed locks", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	app := buildApp(cfg, db, redisClient, logr)

	app.queue.Start(ctx)
	defer app.queue.Stop()
	app.autoMarker.Start(ctx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(app.metrics))

	registerRoutes(r, cfg, app)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "workload_window", cfg.Arrangement.WorkloadWindow)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	metrics      *service.MetricsService
	auth         *service.AuthService
	teachers     *service.TeacherService
	schedules    *service.ScheduleService
	attendance   *service.AttendanceService
	arrangements *service.ArrangementService
	workload     *service.WorkloadService
	settings     *service.SettingsService
	queue        *jobs.Queue
	autoMarker   *service.AutoMarker
	pingers      map[string]handler.Pinger
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *application {
	validate := validator.New()
	loc := cfg.Location()
	metrics := service.NewMetricsService()

	teacherRepo := repository.NewTeacherRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	arrangementRepo := repository.NewArrangementRepository(db)
	workloadRepo := repository.NewWorkloadRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	suspensionRepo := repository.NewSuspensionRepository(db)

	var cacheSvc *service.CacheService
	pingers := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, "arrangements:", logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Arrangement.RosterCacheTTL, logr, true)
		pingers["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	locker := cache.NewLocker(redisClient, "arrangements:lock:", cfg.Arrangement.LockTTL)

	workloadSvc := service.NewWorkloadService(workloadRepo, cfg.Arrangement.WorkloadWindow, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, teacherRepo, db, cacheSvc, cfg.Arrangement.RosterCacheTTL, validate, logr)
	arrangementSvc := service.NewArrangementService(service.ArrangementDeps{
		Store:       arrangementRepo,
		Teachers:    teacherRepo,
		Schedules:   scheduleSvc,
		Absences:    attendanceRepo,
		Suspensions: suspensionRepo,
		Workload:    workloadSvc,
		Locker:      locker,
		LockWait:    cfg.Arrangement.LockWait,
		Tx:          db,
		Metrics:     metrics,
		Location:    loc,
	}, validate, logr)

	worker := service.NewPlanningWorker(arrangementSvc, metrics, logr)
	queue := jobs.NewQueue("arrangement-planning", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Arrangement.QueueWorkers,
		BufferSize: cfg.Arrangement.QueueBuffer,
		MaxRetries: cfg.Arrangement.QueueRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})

	attendanceSvc := service.NewAttendanceService(attendanceRepo, teacherRepo, arrangementSvc, queue, metrics, loc, validate, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, suspensionRepo, attendanceRepo, queue, cfg.AutoMark, validate, logr)
	autoMarker := service.NewAutoMarker(settingsSvc, attendanceSvc, locker, cfg.AutoMark.PollInterval, loc, logr)

	return &application{
		metrics: metrics,
		auth: service.NewAuthService(logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			Issuer:            cfg.JWT.Issuer,
		}),
		teachers:     service.NewTeacherService(teacherRepo, validate, logr),
		schedules:    scheduleSvc,
		attendance:   attendanceSvc,
		arrangements: arrangementSvc,
		workload:     workloadSvc,
		settings:     settingsSvc,
		queue:        queue,
		autoMarker:   autoMarker,
		pingers:      pingers,
	}
}

func registerRoutes(r *gin.Engine, cfg *config.Config, app *application) {
	metricsHandler := handler.NewMetricsHandler(app.metrics, app.pingers)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler()
	teacherHandler := handler.NewTeacherHandler(app.teachers)
	scheduleHandler := handler.NewScheduleHandler(app.schedules, app.arrangements)
	attendanceHandler := handler.NewAttendanceHandler(app.attendance, app.arrangements)
	arrangementHandler := handler.NewArrangementHandler(app.arrangements)
	workloadHandler := handler.NewWorkloadHandler(app.workload, app.arrangements)
	settingsHandler := handler.NewSettingsHandler(app.settings, app.arrangements)

	staff := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	anyone := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)
	staffOrSelf := internalmiddleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), "SELF")

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(app.auth))

	api.GET("/auth/me", authHandler.Me)

	teachers := api.Group("/teachers")
	teachers.GET("", anyone, teacherHandler.List)
	teachers.POST("", staff, teacherHandler.Create)
	teachers.GET("/:id", staffOrSelf, teacherHandler.Get)
	teachers.PUT("/:id", staff, teacherHandler.Update)
	teachers.DELETE("/:id", staff, teacherHandler.Delete)
	teachers.GET("/:id/schedule/:weekday", staffOrSelf, scheduleHandler.GetDay)
	teachers.PUT("/:id/schedule/:weekday", staff, scheduleHandler.UpsertDay)
	teachers.DELETE("/:id/schedule/:weekday", staff, scheduleHandler.DeleteDay)

	schedules := api.Group("/schedules")
	schedules.POST("/import", staff, scheduleHandler.Import)
	schedules.GET("/free", anyone, scheduleHandler.ListFree)

	attendance := api.Group("/attendance")
	attendance.POST("", staff, attendanceHandler.Mark)
	attendance.GET("", anyone, attendanceHandler.List)

	arrangements := api.Group("/arrangements")
	arrangements.GET("", anyone, arrangementHandler.List)
	arrangements.POST("/plan", staff, arrangementHandler.Plan)
	arrangements.GET("/uncovered", anyone, arrangementHandler.Uncovered)
	arrangements.POST("/manual", staff, arrangementHandler.Manual)
	arrangements.GET("/replacement", staff, arrangementHandler.Replacement)
	arrangements.GET("/coverage", anyone, arrangementHandler.Coverage)
	arrangements.GET("/export", anyone, arrangementHandler.Export)

	api.GET("/workloads", anyone, workloadHandler.List)

	settings := api.Group("/settings")
	settings.GET("/auto-mark", staff, settingsHandler.GetAutoMark)
	settings.PUT("/auto-mark", staff, settingsHandler.UpdateAutoMark)

	suspensions := api.Group("/suspensions")
	suspensions.GET("", anyone, settingsHandler.ListSuspensions)
	suspensions.POST("/:date", staff, settingsHandler.Suspend)
	suspensions.DELETE("/:date", staff, settingsHandler.Resume)
}
