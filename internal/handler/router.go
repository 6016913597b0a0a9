package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carenest/carenest/internal/middleware"
)

type RouterDeps struct {
	Documents       *DocumentHandler
	Retrieve        *RetrieveHandler
	RetrieveLimiter time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/documents/ingest", deps.Documents.Ingest)
	api.POST("/documents/note", deps.Documents.CreateNote)
	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id", deps.Documents.Get)
	api.PUT("/documents/:id", deps.Documents.Update)
	api.PUT("/documents/:id/active", deps.Documents.SetActive)
	api.GET("/documents/:id/file", deps.Documents.DownloadFile)

	retrieve := api.Group("")
	retrieve.Use(middleware.RateLimit(deps.RetrieveLimiter))
	retrieve.POST("/retrieve", deps.Retrieve.Retrieve)
}
