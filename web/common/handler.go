package common

import (
	"net"
	"strconv"

	"axiapac.com/backoffice/core"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	Dm *core.DatabaseManager
}

func GetHostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// GetDB opens the session of the tenant addressed by the request host. The caller must
// call release when done.
func (h *Handler) GetDB(r *gin.Context) (*gorm.DB, core.Release, error) {
	hostname := GetHostname(r.Request.Host)
	return h.Dm.GetDB(r.Request.Context(), hostname)
}

// ParamID parses a positive numeric path parameter.
func ParamID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
