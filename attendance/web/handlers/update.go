package handlers

import (
	"net/http"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/attendance/model"
	web "axiapac.com/backoffice/web/common"
	"github.com/gin-gonic/gin"
)

type UpdateRequest struct {
	Status      *string `json:"status" binding:"omitempty,oneof=pending completed absent late"`
	IsAbsent    *bool   `json:"is_absent"`
	LateMinutes *int    `json:"late_minutes" binding:"omitempty,gte=0"`
	Notes       *string `json:"notes" binding:"omitempty,max=1000"`
}

func (ep *Endpoint) Update(c *gin.Context) {
	id, ok := web.ParamID(c, "id")
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, web.NewFieldErrorResponse("id", "Invalid id"))
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, web.NewValidationErrorResponse(err))
		return
	}

	in := attendance.UpdateInput{
		IsAbsent:    req.IsAbsent,
		LateMinutes: req.LateMinutes,
		Notes:       req.Notes,
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		in.Status = &status
	}

	db, release, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer release()

	row, err := ep.service.Update(c.Request.Context(), db, id, in)
	if err != nil {
		respondError(c, err, "failed to update attendance")
		return
	}

	c.JSON(http.StatusOK, web.NewMessageResponse("attendance updated", row))
}

// DeleteRecord removes one punch and returns the recomputed attendance.
func (ep *Endpoint) DeleteRecord(c *gin.Context) {
	ac, ok := caller(c)
	if !ok {
		return
	}

	id, ok := web.ParamID(c, "id")
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, web.NewFieldErrorResponse("id", "Invalid id"))
		return
	}

	db, release, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer release()

	row, err := ep.service.DeleteRecord(c.Request.Context(), db, ac.UserID, id)
	if err != nil {
		respondError(c, err, "failed to delete time record")
		return
	}

	c.JSON(http.StatusOK, web.NewMessageResponse("time record deleted", row))
}
