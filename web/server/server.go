package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	attendance "axiapac.com/backoffice/attendance/core"
	attendancehandlers "axiapac.com/backoffice/attendance/web/handlers"
	"axiapac.com/backoffice/config"
	"axiapac.com/backoffice/core"
	"axiapac.com/backoffice/infrastructure/metrics"
	notificationhandlers "axiapac.com/backoffice/notification/web/handlers"
	"axiapac.com/backoffice/utils"
	"axiapac.com/backoffice/web/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type Deps struct {
	Config     *config.Config
	Dm         *core.DatabaseManager
	Attendance *attendance.Service
	Clock      utils.Clock
	JWTSecret  []byte
	// Archive is nil when exports are not archived.
	Archive attendancehandlers.Archiver
	Logger  *slog.Logger
}

// New builds the gin engine with every route mounted under /api.
func New(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestID(), middlewares.RequestLogger(logger))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", metrics.Handler())

	authCache := cache.New(d.Config.Auth.CacheTTL, 2*d.Config.Auth.CacheTTL)

	protected := r.Group("/api")
	protected.Use(
		middlewares.Authentication(d.JWTSecret),
		middlewares.Authorization(d.Dm, authCache, d.Config.Auth.CacheTTL),
	)
	{
		attendancehandlers.Register(protected, d.Dm, d.Attendance, attendancehandlers.Options{
			MarkLimiter: middlewares.RateLimiter(rate.Limit(d.Config.Server.RateLimitPerSec), d.Config.Server.RateLimitBurst),
			Archive:     d.Archive,
		})
		notificationhandlers.Register(protected, d.Dm, d.Clock, d.Config.Push.PublicKey)
	}

	return r
}

// Run serves handler on port until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, handler http.Handler, port int, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
