package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/attendance/export"
	"axiapac.com/backoffice/core"
	"axiapac.com/backoffice/utils"
	web "axiapac.com/backoffice/web/common"
	"github.com/gin-gonic/gin"
)

type ReportQuery struct {
	GroupBy   string        `form:"group_by" json:"group_by"`
	StartDate *web.DateOnly `form:"start_date" json:"start_date"`
	EndDate   *web.DateOnly `form:"end_date" json:"end_date"`
	UserID    *uint         `form:"user_id" json:"user_id"`
	AreaID    *uint         `form:"area_id" json:"area_id"`
	Page      int           `form:"page" json:"page" binding:"omitempty,gte=1"`
	PerPage   int           `form:"per_page" json:"per_page" binding:"omitempty,gte=1"`
}

func (q ReportQuery) filter() attendance.ReportFilter {
	return attendance.ReportFilter{
		StartDate: q.StartDate.String(),
		EndDate:   q.EndDate.String(),
		UserID:    q.UserID,
		AreaID:    q.AreaID,
	}
}

// buckets binds the query and runs the report. It writes the error response itself.
func (ep *Endpoint) buckets(c *gin.Context) (ReportQuery, attendance.PeriodType, []attendance.PeriodBucket, attendance.ReportFilter, bool) {
	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusUnprocessableEntity, web.NewValidationErrorResponse(err))
		return q, "", nil, attendance.ReportFilter{}, false
	}
	pt := attendance.ParsePeriodType(q.GroupBy)

	db, release, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return q, pt, nil, attendance.ReportFilter{}, false
	}
	defer release()

	buckets, filter, err := ep.service.Report(c.Request.Context(), db, q.filter(), pt)
	if err != nil {
		respondError(c, err, "failed to build attendance report")
		return q, pt, nil, filter, false
	}
	return q, pt, buckets, filter, true
}

// Report returns one page of period buckets. An unknown group_by falls back to day.
func (ep *Endpoint) Report(c *gin.Context) {
	q, _, buckets, _, ok := ep.buckets(c)
	if !ok {
		return
	}

	page, meta := utils.Paginate(buckets, q.Page, q.PerPage)
	c.JSON(http.StatusOK, web.NewSearchResponse(page, meta))
}

// Export streams every bucket of the report as a spreadsheet and archives a copy when an
// archive is configured.
func (ep *Endpoint) Export(c *gin.Context) {
	_, pt, buckets, filter, ok := ep.buckets(c)
	if !ok {
		return
	}

	buf, err := export.Render(buckets)
	if err != nil {
		respondError(c, err, "failed to render attendance export")
		return
	}
	name := export.FileName(pt, filter.StartDate, filter.EndDate)

	if ep.archive != nil {
		tenant := core.TenantSchema(web.GetHostname(c.Request.Host))
		key := ep.archive.Key(tenant, name)
		if err := ep.archive.WriteFile(c.Request.Context(), key, export.ContentType, buf.Bytes()); err != nil {
			slog.Warn("attendance export archive failed", "key", key, "error", err)
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
