package handlers

import (
	"net/http"

	notification "axiapac.com/backoffice/notification/core"
	"axiapac.com/backoffice/notification/model"
	web "axiapac.com/backoffice/web/common"
	"github.com/gin-gonic/gin"
)

type SubscriptionKeys struct {
	P256DH string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

// PutSubscriptionRequest mirrors the browser's PushSubscription.toJSON().
type PutSubscriptionRequest struct {
	Endpoint string           `json:"endpoint" binding:"required,url,max=500"`
	Keys     SubscriptionKeys `json:"keys" binding:"required"`
}

type DeleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// PutSubscription creates the caller's subscription or re-points an existing endpoint at them.
func (ep *Endpoint) PutSubscription(c *gin.Context) {
	ac, ok := caller(c)
	if !ok {
		return
	}

	var req PutSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, web.NewValidationErrorResponse(err))
		return
	}

	db, release, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer release()

	sub := model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   ac.UserID,
		P256DH:   req.Keys.P256DH,
		Auth:     req.Keys.Auth,
	}
	if err := notification.SaveSubscription(db, &sub); err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(sub))
}

func (ep *Endpoint) DeleteSubscription(c *gin.Context) {
	ac, ok := caller(c)
	if !ok {
		return
	}

	var req DeleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, web.NewValidationErrorResponse(err))
		return
	}

	db, release, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer release()

	if err := notification.DeleteSubscription(db, ac.UserID, req.Endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.Status(http.StatusNoContent)
}

// VAPIDPublicKey returns the key browsers need to subscribe.
func (ep *Endpoint) VAPIDPublicKey(c *gin.Context) {
	if ep.publicKey == "" {
		c.JSON(http.StatusServiceUnavailable, web.NewErrorResponse("vapid keys are not configured"))
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(gin.H{"public_key": ep.publicKey}))
}
