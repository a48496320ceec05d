package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/config"
	"github.com/xxxsen/pdfqa/internal/handler"
	"github.com/xxxsen/pdfqa/internal/middleware"
)

func runServer(cfg *config.Config, a *app) error {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	deps := handler.RouterDeps{
		QA:              handler.NewQAHandler(a.qa, cfg.Upload.MaxBytes),
		UploadRateLimit: time.Duration(cfg.Upload.RateLimitSeconds) * time.Second,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
