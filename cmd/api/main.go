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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/attendance-ease-api/api/swagger"
	"github.com/noah-isme/attendance-ease-api/internal/handler"
	internalmiddleware "github.com/noah-isme/attendance-ease-api/internal/middleware"
	"github.com/noah-isme/attendance-ease-api/internal/repository"
	"github.com/noah-isme/attendance-ease-api/internal/service"
	"github.com/noah-isme/attendance-ease-api/pkg/cache"
	"github.com/noah-isme/attendance-ease-api/pkg/config"
	"github.com/noah-isme/attendance-ease-api/pkg/database"
	"github.com/noah-isme/attendance-ease-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-ease-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-ease-api/pkg/middleware/requestid"
	"github.com/noah-isme/attendance-ease-api/pkg/observability"
)

// @title AttendanceEase API
// @version 1.0.0
// @description Course rosters, daily attendance marking and attendance reports
// @BasePath /api/v1
// @schemes http https
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

	flush, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Sentry.Release)
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, login throttling and caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	userRepo := repository.NewUserRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	attemptRepo := repository.NewLoginAttemptRepository(redisClient)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, cfg.Cache.Prefix), metrics, cfg.Cache.DashboardTTL, logr)
	}

	authSvc := service.NewAuthService(userRepo, studentRepo, attemptRepo, validate, logr, metrics, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		MaxLoginAttempts:  cfg.LoginGuard.MaxAttempts,
		LockoutWindow:     cfg.LoginGuard.Window,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr, service.StudentServiceConfig{MaxImportRows: cfg.StudentCSV.MaxRows})
	enrollmentSvc := service.NewEnrollmentService(courseRepo, enrollmentRepo, studentRepo, validate, logr, metrics, service.EnrollmentConfig{BatchSize: cfg.Roster.BatchSize})
	attendanceSvc := service.NewAttendanceService(courseRepo, attendanceRepo, enrollmentSvc, cacheSvc, validate, logr)
	reportSvc := service.NewReportService(courseRepo, enrollmentSvc, attendanceRepo, logr)
	exportSvc := service.NewExportService(reportSvc, logr, metrics, service.ExportConfig{Title: cfg.ReportTitle})
	credentialSvc := service.NewCredentialService(studentRepo, logr, metrics, service.CredentialConfig{})
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, logr)

	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userSvc.EnsureBootstrapAdmin(bootstrapCtx, service.BootstrapAdmin{
		Email:    cfg.Bootstrap.AdminEmail,
		Password: cfg.Bootstrap.AdminPassword,
		FullName: cfg.Bootstrap.AdminName,
	}); err != nil {
		logr.Error("failed to bootstrap administrator", zap.Error(err))
	}
	cancelBootstrap()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(observability.GinMiddleware())
	r.Use(internalmiddleware.Metrics(metrics))

	ops := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Courses:    handler.NewCourseHandler(courseSvc),
		Students:   handler.NewStudentHandler(studentSvc, credentialSvc, cfg.StudentCSV.MaxFileSizeBytes),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Reports:    handler.NewReportHandler(reportSvc, exportSvc),
		Me:         handler.NewMeHandler(enrollmentSvc, reportSvc),
		Users:      handler.NewUserHandler(userSvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.CaptureErr(err)
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
