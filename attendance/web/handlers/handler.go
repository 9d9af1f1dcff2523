package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/core"
	"axiapac.com/backoffice/core/models"
	"axiapac.com/backoffice/security"
	web "axiapac.com/backoffice/web/common"
	"axiapac.com/backoffice/web/middlewares"
	"github.com/gin-gonic/gin"
)

// Archiver keeps a copy of every generated export.
type Archiver interface {
	Key(tenant, name string) string
	WriteFile(ctx context.Context, key, contentType string, data []byte) error
}

type Options struct {
	// MarkLimiter guards POST /attendance/mark. Nil disables it.
	MarkLimiter gin.HandlerFunc
	// Archive is optional.
	Archive Archiver
}

type Endpoint struct {
	base    web.Handler
	service *attendance.Service
	archive Archiver
}

// Register mounts the attendance and report routes. r must already run the
// Authentication and Authorization middlewares.
func Register(r *gin.RouterGroup, dm *core.DatabaseManager, service *attendance.Service, opts Options) {
	endpoint := &Endpoint{
		base:    web.Handler{Dm: dm},
		service: service,
		archive: opts.Archive,
	}

	mark := []gin.HandlerFunc{endpoint.Mark}
	if opts.MarkLimiter != nil {
		mark = append([]gin.HandlerFunc{opts.MarkLimiter}, mark...)
	}
	r.POST("/attendance/mark", mark...)
	r.GET("/attendance/today", endpoint.Today)
	r.GET("/attendance", endpoint.List)
	r.GET("/attendance/:id", endpoint.Get)
	r.PUT("/attendance/:id", middlewares.RequirePermission(models.PermissionAttendanceManage), endpoint.Update)
	r.DELETE("/attendance/records/:id", middlewares.RequirePermission(models.PermissionAttendanceManage), endpoint.DeleteRecord)

	r.GET("/reports/attendance", middlewares.RequirePermission(models.PermissionReportsView), endpoint.Report)
	r.GET("/reports/attendance/export", middlewares.RequirePermission(models.PermissionReportsExport), endpoint.Export)
}

func caller(c *gin.Context) (*security.AuthorizationContext, bool) {
	ac := middlewares.CurrentAuthorization(c)
	if ac == nil {
		c.JSON(http.StatusUnauthorized, web.NewErrorResponse("authentication required"))
		return nil, false
	}
	return ac, true
}

// respondError maps the attendance errors onto status codes. Anything unrecognised is a
// 500 carrying generic and the error text.
func respondError(c *gin.Context, err error, generic string) {
	switch {
	case errors.Is(err, attendance.ErrInvalidMarkType):
		c.JSON(http.StatusUnprocessableEntity, web.NewFieldErrorResponse("type", err.Error()))
	case errors.Is(err, attendance.ErrInvalidStatus):
		c.JSON(http.StatusUnprocessableEntity, web.NewFieldErrorResponse("status", err.Error()))
	case errors.Is(err, attendance.ErrInvalidLateMinutes):
		c.JSON(http.StatusUnprocessableEntity, web.NewFieldErrorResponse("late_minutes", err.Error()))
	case errors.Is(err, attendance.ErrInvalidDateRange):
		c.JSON(http.StatusUnprocessableEntity, web.NewFieldErrorResponse("start_date", err.Error()))
	case errors.Is(err, attendance.ErrAttendanceNotFound),
		errors.Is(err, attendance.ErrRecordNotFound),
		errors.Is(err, attendance.ErrUserNotFound):
		c.JSON(http.StatusNotFound, web.NewErrorResponse(err.Error()))
	case errors.Is(err, attendance.ErrForbidden):
		c.JSON(http.StatusForbidden, web.NewErrorResponse("you are not allowed to access this attendance"))
	default:
		slog.Error(generic, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(generic+": "+err.Error()))
	}
}
