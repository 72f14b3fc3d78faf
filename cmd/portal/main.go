package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"partner-portal/internal/MinIO"
	"partner-portal/internal/config"
	"partner-portal/internal/handler/portalHandler"
	"partner-portal/internal/refdata"
	"partner-portal/internal/repository/downloadRepo"
	"partner-portal/internal/repository/entitlementRepo"
	"partner-portal/internal/repository/sessionRepo"
	"partner-portal/internal/service/entitlement"
	"partner-portal/internal/service/fileService"
	"partner-portal/pkg/database/postgres"
	"partner-portal/pkg/database/redis"
	"partner-portal/pkg/logger"
	"partner-portal/pkg/middleware"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Minute // extract downloads can be slow links
	idleTimeout  = 60 * time.Second
)

func main() {
	ctx := context.Background()

	ctx, _ = logger.New(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := config.LoadPortalConfig()
	if err != nil {
		logger.GetLogger(ctx).Fatal("Failed to load config", zap.Error(err))
	}

	conn, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		logger.GetLogger(ctx).Fatal("Failed to connect to database", zap.Error(err))
	}
	defer conn.Close(ctx)

	redisClient := redis.New(cfg.Redis)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.GetLogger(ctx).Fatal("cannot connect to Redis", zap.Error(err))
	}

	extractStore, err := MinIO.New(cfg.MinIO)
	if err != nil {
		logger.GetLogger(ctx).Fatal("Failed to connect to object storage", zap.Error(err))
	}

	tables := refdata.Default()
	entitlementRep := entitlementRepo.New(conn)
	downloadRep := downloadRepo.New(conn)
	sessionRep := sessionRepo.New(redisClient)

	entitlementSvc := entitlement.New(tables, entitlementRep)
	fileSvc := fileService.New(extractStore, downloadRep, entitlementSvc, tables)

	handler := portalHandler.New(fileSvc, entitlementRep, sessionRep, tables, cfg.JWTSecret, cfg.SessionTTL)
	router := setupRouter(ctx, handler, sessionRep, cfg.JWTSecret)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	go func() {
		logger.GetLogger(ctx).Info("portal started", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger(ctx).Error("failed to serve", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.GetLogger(ctx).Info("portal stopped")
}

func setupRouter(ctx context.Context, handler *portalHandler.PortalHandler, sessions middleware.SessionChecker, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		// carry the process logger into request contexts
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(mergeLogger(ctx, req.Context())))
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", handler.CreateSession)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtSecret, sessions))
			r.Delete("/session", handler.DeleteSession)
			r.Get("/files", handler.ListFiles)
			r.Get("/files/{code}/{year}/{month}", handler.DownloadFile)
		})
	})
	return r
}

// mergeLogger grafts the startup logger onto a request context.
func mergeLogger(appCtx, reqCtx context.Context) context.Context {
	l := logger.GetLogger(appCtx)
	return logger.With(reqCtx, l)
}
