package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/pdfqa/internal/middleware"
)

type RouterDeps struct {
	QA              *QAHandler
	UploadRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/upload", middleware.RateLimit(deps.UploadRateLimit), deps.QA.Upload)
	api.POST("/ingest", deps.QA.Ingest)
	api.POST("/ask", deps.QA.Ask)
	api.GET("/documents/:id", deps.QA.Stat)
}
