package handlers

import (
	"errors"
	"net/http"

	"axiapac.com/backoffice/core"
	notification "axiapac.com/backoffice/notification/core"
	"axiapac.com/backoffice/security"
	"axiapac.com/backoffice/utils"
	web "axiapac.com/backoffice/web/common"
	"axiapac.com/backoffice/web/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Endpoint struct {
	base      web.Handler
	clock     utils.Clock
	publicKey string
}

// Register mounts the inbox and push subscription routes. vapidPublicKey may be empty
// when web push is not configured.
func Register(r *gin.RouterGroup, dm *core.DatabaseManager, clock utils.Clock, vapidPublicKey string) {
	endpoint := &Endpoint{
		base:      web.Handler{Dm: dm},
		clock:     clock,
		publicKey: vapidPublicKey,
	}
	r.GET("/notifications", endpoint.List)
	r.POST("/notifications/read-all", endpoint.ReadAll)
	r.POST("/notifications/:id/read", endpoint.Read)

	r.PUT("/push/subscriptions", endpoint.PutSubscription)
	r.DELETE("/push/subscriptions", endpoint.DeleteSubscription)
	r.GET("/push/vapid-public-key", endpoint.VAPIDPublicKey)
}

func caller(c *gin.Context) (*security.AuthorizationContext, bool) {
	ac := middlewares.CurrentAuthorization(c)
	if ac == nil {
		c.JSON(http.StatusUnauthorized, web.NewErrorResponse("authentication required"))
		return nil, false
	}
	return ac, true
}

type ListQuery struct {
	Unread  bool `form:"unread" json:"unread"`
	Page    int  `form:"page" json:"page" binding:"omitempty,gte=1"`
	PerPage int  `form:"per_page" json:"per_page" binding:"omitempty,gte=1"`
}

// ListResponse is a page of the inbox plus the caller's unread total.
type ListResponse struct {
	web.SearchResponse
	Unread int64 `json:"unread"`
}

func (ep *Endpoint) List(c *gin.Context) {
	ac, ok := caller(c)
	if !ok {
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusUnprocessableEntity, web.NewValidationErrorResponse(err))
		return
	}

	db, release, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer release()

	rows, meta, err := notification.ListForUser(db, ac.UserID, q.Unread, q.Page, q.PerPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	unread, err := notification.UnreadCount(db, ac.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		SearchResponse: *web.NewSearchResponse(rows, meta),
		Unread:         unread,
	})
}

func (ep *Endpoint) Read(c *gin.Context) {
	ac, ok := caller(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, web.NewFieldErrorResponse("id", "Invalid id"))
		return
	}

	db, release, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer release()

	n, err := notification.MarkRead(db, ac.UserID, id, ep.clock.Now())
	if errors.Is(err, notification.ErrNotificationNotFound) {
		c.JSON(http.StatusNotFound, web.NewErrorResponse(err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(n))
}

func (ep *Endpoint) ReadAll(c *gin.Context) {
	ac, ok := caller(c)
	if !ok {
		return
	}

	db, release, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer release()

	updated, err := notification.MarkAllRead(db, ac.UserID, ep.clock.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(gin.H{"updated": updated}))
}
