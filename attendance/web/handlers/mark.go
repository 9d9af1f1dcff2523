package handlers

import (
	"net/http"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/attendance/model"
	web "axiapac.com/backoffice/web/common"
	"github.com/gin-gonic/gin"
)

type MarkRequest struct {
	Type       string  `json:"type" binding:"required,oneof=check_in check_out"`
	MarkReason string  `json:"mark_reason" binding:"max=255"`
	Location   *string `json:"location" binding:"omitempty,max=255"`
	Notes      *string `json:"notes" binding:"omitempty,max=1000"`
}

// TodayResponse adds the suggested next punch to the envelope.
type TodayResponse struct {
	web.SuccessResponse
	NextMarkType model.MarkType `json:"next_mark_type"`
}

func (ep *Endpoint) Mark(c *gin.Context) {
	ac, ok := caller(c)
	if !ok {
		return
	}

	var req MarkRequest
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

	ip := c.ClientIP()
	result, err := ep.service.Mark(c.Request.Context(), db, ac.UserID, attendance.MarkInput{
		Type:      model.MarkType(req.Type),
		Reason:    req.MarkReason,
		Location:  req.Location,
		Notes:     req.Notes,
		IPAddress: &ip,
	})
	if err != nil {
		respondError(c, err, "failed to register attendance")
		return
	}

	c.JSON(http.StatusCreated, web.NewMessageResponse("attendance registered", result))
}

func (ep *Endpoint) Today(c *gin.Context) {
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

	today, next, err := ep.service.TodayFor(c.Request.Context(), db, ac.UserID)
	if err != nil {
		respondError(c, err, "failed to load today's attendance")
		return
	}

	c.JSON(http.StatusOK, TodayResponse{
		SuccessResponse: web.SuccessResponse{Success: true, Data: today},
		NextMarkType:    next,
	})
}
