package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"courtsync/internal/app"
	"courtsync/internal/database"
	"courtsync/internal/handlers"
	"courtsync/internal/metrics"
	"courtsync/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthFunc reports database health for /health.
type HealthFunc func(ctx context.Context) database.HealthCheck

// Server представляет HTTP сервер API
type Server struct {
	router *gin.Engine
	app    *app.App
	http   *http.Server
	logger *slog.Logger
}

// NewServer создает новый экземпляр сервера
func NewServer(a *app.App) *Server {
	gin.SetMode(a.Config.GinMode)

	var runs handlers.RunHistory
	if a.Search != nil {
		runs = a.Search
	}
	h := handlers.NewHandlers(a.Services.Courts, a.Services.Bookings, runs, a.Logger)

	router := NewRouter(h, a.DB.HealthCheck, a.Config.AdminToken, a.Logger)

	return &Server{
		router: router,
		app:    a,
		logger: a.Logger,
		http: &http.Server{
			Addr:              ":" + a.Config.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// A sync can take a while; the vendor calls carry their own timeout.
			WriteTimeout: a.Config.RequestTimeout,
		},
	}
}

// NewRouter настраивает все API роуты
func NewRouter(h *handlers.Handlers, health HealthFunc, adminToken string, log *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(log))

	api := router.Group("/api")
	api.Use(middleware.AdminToken(adminToken))
	{
		sync := api.Group("/sync")
		{
			sync.POST("/courts", h.SyncCourts)
			sync.GET("/courts/preview", h.PreviewCourts)
			sync.POST("/bookings", h.SyncBookings)
			sync.GET("/runs", h.ListRuns)
		}

		courts := api.Group("/courts")
		{
			courts.GET("/:id/ayo", h.GetCourtAyoLink)
			courts.GET("/by-ayo-field/:field_id", h.GetCourtByAyoField)
		}
	}

	router.GET("/health", healthCheck(health))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	return router
}

// healthCheck обрабатывает health check запросы
func healthCheck(health HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := health(c.Request.Context())
		code := http.StatusOK
		if db.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":   db.Status,
			"service":  "courtsync-api",
			"database": db,
		})
	}
}

// Run запускает HTTP сервер и блокируется до его остановки
func (s *Server) Run() error {
	s.logger.Info("Starting server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown останавливает прием запросов и закрывает соединения
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if cerr := s.app.Close(); cerr != nil {
		s.logger.Error("Error closing resources", "error", cerr)
	}
	return err
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
