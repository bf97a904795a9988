package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"stl311/internal/client/geoserver"
	"stl311/internal/client/stl311"
	"stl311/internal/config"
	"stl311/internal/db"
	"stl311/internal/handler"
	"stl311/internal/logger"
	gormrepository "stl311/internal/repository/gorm"
	"stl311/internal/scheduler"
	"stl311/internal/service"
	"stl311/internal/validate"

	_ "stl311/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("STL311_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("STL311_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	apiHTTP := &http.Client{Timeout: cfg.API.Timeout}
	apiClient := stl311.NewClient(apiHTTP, cfg.API.BaseURL, cfg.API.APIKey, cfg.API.RequestsPerS)

	geoHTTP := &http.Client{Timeout: cfg.GeoServer.Timeout}
	geoClient := geoserver.NewClient(geoHTTP, cfg.GeoServer.BaseURL,
		cfg.GeoServer.Workspace, cfg.GeoServer.Datastore,
		cfg.GeoServer.Username, cfg.GeoServer.Password)
	geoClient.DBHost = cfg.GeoServer.DBHost
	geoClient.DBPort = cfg.GeoServer.DBPort
	geoClient.DBName = cfg.GeoServer.DBName
	geoClient.DBSchema = cfg.GeoServer.DBSchema
	geoClient.DBUser = cfg.GeoServer.DBUser
	geoClient.DBPassword = cfg.GeoServer.DBPassword

	syncService := service.NewSyncService(
		store,
		apiClient,
		geoClient,
		validate.New(cfg.Bounds),
		cfg.API,
		cfg.Sync,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(syncService, store, cfg.Cron, logger, ctx)
	if cfg.Cron.Enabled {
		if err := sched.Start(); err != nil {
			logger.Fatal("scheduler start failed", zap.Error(err))
		}
		defer sched.Stop()
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	syncHandler := &handler.SyncHandler{Scheduler: sched, Store: store, Logger: logger}
	syncHandler.Register(engine)
	requestsHandler := &handler.RequestsHandler{Store: store}
	requestsHandler.Register(engine)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
