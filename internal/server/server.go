package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"docintel/internal/domain"
	"docintel/internal/port"
	"docintel/internal/usecase"
)

// State is what handlers need. Credentials are the server's own keys, used
// when a request does not carry X-Embedding-Key or X-Chat-Key.
type State struct {
	Ingest         *usecase.IngestUseCase
	Retrieve       *usecase.RetrieveUseCase
	Answer         *usecase.AnswerUseCase
	Store          port.DocumentStore
	Credentials    domain.Credentials
	UploadDir      string
	MaxUploadBytes int64
}

func NewRouter(st *State) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	h := &handlers{state: st}
	router.GET("/healthz", h.health)

	api := router.Group("/api")
	{
		api.POST("/documents", h.uploadDocuments)
		api.GET("/documents/:id", h.getDocument)
		api.DELETE("/documents/:id", h.deleteDocument)
		api.GET("/orphans", h.listOrphans)
		api.POST("/search", h.search)
		api.POST("/ask", h.ask)
	}
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

// Run serves handler on addr until ctx is canceled, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
