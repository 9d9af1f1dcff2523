package middlewares

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"axiapac.com/backoffice/core"
	"axiapac.com/backoffice/security"
	"axiapac.com/backoffice/web/common"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const authorizationKey = "authorization"

// Authorization resolves the caller's roles and permissions once per request. Results are
// cached per tenant and user for ttl. Must run after Authentication.
func Authorization(dm *core.DatabaseManager, store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	base := common.Handler{Dm: dm}
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("authentication required"))
			return
		}

		key := fmt.Sprintf("%s:%d", common.GetHostname(c.Request.Host), claims.Identity.ID)
		if v, found := store.Get(key); found {
			c.Set(authorizationKey, v.(*security.AuthorizationContext))
			c.Next()
			return
		}

		db, release, err := base.GetDB(c)
		if err != nil {
			slog.Error("authorization: tenant connection failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, common.NewErrorResponse("internal server error"))
			return
		}
		ac, err := security.LoadAuthorizationContext(db, claims.Identity.ID)
		release()

		if errors.Is(err, security.ErrUnknownUser) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse(err.Error()))
			return
		}
		if err != nil {
			slog.Error("authorization: failed to load roles", "user_id", claims.Identity.ID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, common.NewErrorResponse("internal server error"))
			return
		}

		store.Set(key, ac, ttl)
		c.Set(authorizationKey, ac)
		c.Next()
	}
}

// CurrentAuthorization returns the context stored by Authorization, or nil.
func CurrentAuthorization(c *gin.Context) *security.AuthorizationContext {
	v, ok := c.Get(authorizationKey)
	if !ok {
		return nil
	}
	ac, _ := v.(*security.AuthorizationContext)
	return ac
}

// RequirePermission rejects callers lacking permission. Super-admins always pass.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac := CurrentAuthorization(c)
		if ac == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("authentication required"))
			return
		}
		if !ac.Can(permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("permission denied: "+permission))
			return
		}
		c.Next()
	}
}
