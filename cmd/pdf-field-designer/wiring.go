package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"

	"github.com/a3tai/pdf-field-designer/internal/api"
	"github.com/a3tai/pdf-field-designer/internal/config"
	"github.com/a3tai/pdf-field-designer/internal/document"
	"github.com/a3tai/pdf-field-designer/internal/mcp"
	"github.com/a3tai/pdf-field-designer/internal/store"
)

// newLogger builds the process logger. Stdio mode writes to stderr only,
// since stdout carries the MCP protocol.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.IsDebug() {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.OutputPaths = []string{"stdout"}
	if cfg.IsStdioMode() {
		zc.OutputPaths = []string{"stderr"}
	}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build(zap.Fields(zap.String("service", cfg.ServerName)))
}

// gormLogLevel maps the configured level onto gorm's logger, which writes
// to stdout and is therefore silenced in stdio mode.
func gormLogLevel(cfg *config.Config) gormlogger.LogLevel {
	switch {
	case cfg.IsStdioMode():
		return gormlogger.Silent
	case cfg.IsDebug():
		return gormlogger.Info
	case cfg.LogLevel == "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

// openRepository returns the configured store and a function releasing it.
func openRepository(cfg *config.Config) (store.Repository, func() error, error) {
	if cfg.DBDriver == config.DriverMemory {
		return store.NewMemoryRepository(), func() error { return nil }, nil
	}

	db, err := store.Open(cfg.DBDriver, cfg.DBDSN, gormLogLevel(cfg))
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database handle: %w", err)
	}
	return store.NewGormRepository(db), sqlDB.Close, nil
}

// newDocumentLoader wires the fetchers and the two renderers. s3:// sources
// are only served when credentials are configured.
func newDocumentLoader(cfg *config.Config, logger *zap.Logger) (*document.Loader, error) {
	files, err := document.NewFileFetcher(cfg.DocumentDirectory, cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	router := &document.Router{
		File: files,
		HTTP: document.NewHTTPFetcher(cfg.FetchTimeout, cfg.MaxFileSize),
	}
	if cfg.UsesS3() {
		client := document.NewS3Client(document.S3Options{
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3PathStyle,
		})
		router.S3 = document.NewS3Fetcher(client, cfg.MaxFileSize)
	}

	return document.NewLoader(router,
		document.PDFCPURenderer{},
		document.LedongthucRenderer{},
		logger.Named("document"),
	), nil
}

// newHTTPHandler serves the persistence API and the designer tools over SSE.
func newHTTPHandler(cfg *config.Config, repo store.Repository, loader api.DocumentLoader, server *mcp.Server, logger *zap.Logger) http.Handler {
	router := api.NewRouter(api.NewHandler(repo, loader, logger.Named("api")), logger.Named("http"), cfg.IsDebug())

	sse := gin.WrapH(server.SSEHandler())
	router.GET("/sse", sse)
	router.POST("/message", sse)
	return router
}
