package handlers

import (
	"net/http"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/attendance/model"
	"axiapac.com/backoffice/core/models"
	web "axiapac.com/backoffice/web/common"
	"github.com/gin-gonic/gin"
)

type ListQuery struct {
	StartDate *web.DateOnly `form:"start_date" json:"start_date"`
	EndDate   *web.DateOnly `form:"end_date" json:"end_date"`
	UserID    *uint         `form:"user_id" json:"user_id"`
	AreaID    *uint         `form:"area_id" json:"area_id"`
	Status    string        `form:"status" json:"status" binding:"omitempty,oneof=pending completed absent late"`
	Page      int           `form:"page" json:"page" binding:"omitempty,gte=1"`
	PerPage   int           `form:"per_page" json:"per_page" binding:"omitempty,gte=1"`
}

// List returns attendances newest first. Callers without attendance.manage only see
// their own rows whatever user_id says.
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

	filter := attendance.ListFilter{
		StartDate: q.StartDate.String(),
		EndDate:   q.EndDate.String(),
		UserID:    q.UserID,
		AreaID:    q.AreaID,
	}
	if q.Status != "" {
		status := model.Status(q.Status)
		filter.Status = &status
	}
	if !ac.Can(models.PermissionAttendanceManage) {
		filter.UserID = &ac.UserID
	}

	db, release, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer release()

	rows, meta, err := ep.service.List(c.Request.Context(), db, filter, q.Page, q.PerPage)
	if err != nil {
		respondError(c, err, "failed to list attendances")
		return
	}

	c.JSON(http.StatusOK, web.NewSearchResponse(rows, meta))
}

func (ep *Endpoint) Get(c *gin.Context) {
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

	row, err := ep.service.Get(c.Request.Context(), db, id)
	if err != nil {
		respondError(c, err, "failed to load attendance")
		return
	}
	if !ac.CanManageAttendanceOf(row.UserID) {
		respondError(c, attendance.ErrForbidden, "")
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(row))
}
