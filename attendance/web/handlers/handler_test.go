package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	attendance "axiapac.com/backoffice/attendance/core"
	"axiapac.com/backoffice/attendance/export"
	"axiapac.com/backoffice/attendance/model"
	"axiapac.com/backoffice/core"
	"axiapac.com/backoffice/core/models"
	"axiapac.com/backoffice/core/testdb"
	"axiapac.com/backoffice/security"
	"axiapac.com/backoffice/utils"
	"axiapac.com/backoffice/web/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeArchive struct {
	keys []string
	data [][]byte
	err  error
}

func (a *fakeArchive) Key(tenant, name string) string {
	return tenant + "/" + name
}

func (a *fakeArchive) WriteFile(ctx context.Context, key, contentType string, data []byte) error {
	a.keys = append(a.keys, key)
	a.data = append(a.data, data)
	return a.err
}

type fixture struct {
	db      *gorm.DB
	svc     *attendance.Service
	archive *fakeArchive
	router  *gin.Engine
	worker  models.User
	manager models.User
	admin   models.User
}

func clockAt(hhmm string) utils.Clock {
	t, _ := time.Parse("2006-01-02 15:04", "2024-03-04 "+hhmm)
	return utils.FixedClock{T: t}
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t)
	testdb.Role(t, db, models.RoleManager,
		models.PermissionAttendanceManage,
		models.PermissionReportsView,
		models.PermissionReportsExport)
	ops := testdb.Area(t, db, "Operaciones")

	f := &fixture{
		db:      db,
		svc:     attendance.NewService(clockAt("08:00"), nil, nil, attendance.StandardDayMinutes),
		archive: &fakeArchive{},
		worker:  testdb.User(t, db, "Ana Diaz", &ops.ID),
		manager: testdb.User(t, db, "Bruno Paz", &ops.ID, models.RoleManager),
		admin:   testdb.User(t, db, "Carla Sol", nil, models.RoleSuperAdmin),
	}

	dm := core.NewFromGorm(db)
	f.router = gin.New()
	api := f.router.Group("/api",
		middlewares.Authentication(secret),
		middlewares.Authorization(dm, cache.New(time.Minute, time.Minute), time.Minute))
	Register(api, dm, f.svc, Options{Archive: f.archive})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, userID uint, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, err := security.CreateIdentityToken(security.Identity{ID: userID, UniqueName: "user"}, secret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) mark(t *testing.T, userID uint, typ model.MarkType, hhmm string) *attendance.MarkResult {
	t.Helper()
	f.svc.Clock = clockAt(hhmm)
	res, err := f.svc.Mark(context.Background(), f.db, userID, attendance.MarkInput{Type: typ})
	require.NoError(t, err)
	return res
}

func (f *fixture) seed(t *testing.T, userID uint, date string, total, overtime int) {
	t.Helper()
	row := model.Attendance{
		UserID:          userID,
		Date:            date,
		TotalMinutes:    total,
		OvertimeMinutes: overtime,
		Status:          model.StatusCompleted,
	}
	require.NoError(t, f.db.Create(&row).Error)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestMark(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/attendance/mark", f.worker.ID, gin.H{
		"type":        "check_in",
		"mark_reason": "inicio de jornada",
		"location":    "Planta 1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "check_out", data["next_mark_type"])
	assert.Equal(t, "pending", data["attendance"].(map[string]any)["status"])

	record := data["record"].(map[string]any)
	assert.Equal(t, "check_in", record["type"])
	assert.Equal(t, "inicio de jornada", record["mark_reason"])
	assert.Equal(t, "Planta 1", record["location"])
	assert.Equal(t, "192.0.2.1", record["ip_address"])
}

func TestMark_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"unknown type", gin.H{"type": "lunch"}, "type"},
		{"missing type", gin.H{"mark_reason": "x"}, "type"},
		{"empty body", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/attendance/mark", f.worker.ID, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
			if tt.field != "" {
				assert.Contains(t, body["errors"], tt.field)
			}
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&model.Attendance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMark_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/attendance/mark", bytes.NewBufferString(`{"type":"check_in"}`))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestToday(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/attendance/today", f.worker.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":null,"next_mark_type":"check_in"}`, w.Body.String())

	f.mark(t, f.worker.ID, model.CheckIn, "08:00")
	w = f.do(t, http.MethodGet, "/api/attendance/today", f.worker.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "check_out", body["next_mark_type"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "2024-03-04", data["date"])
	assert.Len(t, data["records"], 1)
}

func TestToday_HealsStaleTotals(t *testing.T) {
	f := newFixture(t)
	f.mark(t, f.worker.ID, model.CheckIn, "08:00")
	res := f.mark(t, f.worker.ID, model.CheckOut, "12:00")
	require.NoError(t, f.db.Model(&model.Attendance{}).
		Where("id = ?", res.Attendance.ID).
		Update("total_minutes", 0).Error)

	w := f.do(t, http.MethodGet, "/api/attendance/today", f.worker.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.EqualValues(t, 240, data["total_minutes"])
}

func TestDeleteRecord(t *testing.T) {
	f := newFixture(t)
	f.mark(t, f.worker.ID, model.CheckIn, "08:00")
	f.mark(t, f.worker.ID, model.CheckOut, "12:00")
	f.mark(t, f.worker.ID, model.CheckIn, "13:00")
	last := f.mark(t, f.worker.ID, model.CheckOut, "17:00")

	path := fmt.Sprintf("/api/attendance/records/%d", last.Record.ID)

	w := f.do(t, http.MethodDelete, path, f.worker.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, path, f.manager.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.EqualValues(t, 240, data["total_minutes"])
	assert.Equal(t, "pending", data["status"])

	w = f.do(t, http.MethodDelete, path, f.admin.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/api/attendance/records/abc", f.admin.ID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.worker.ID, "2024-03-01", 480, 0)
	f.seed(t, f.worker.ID, "2024-03-02", 500, 20)
	f.seed(t, f.manager.ID, "2024-03-01", 240, 0)

	tests := []struct {
		name     string
		userID   uint
		query    string
		expected int
	}{
		{"worker sees own rows", f.worker.ID, "", 2},
		{"worker cannot widen to others", f.worker.ID, fmt.Sprintf("?user_id=%d", f.manager.ID), 2},
		{"manager sees everyone", f.manager.ID, "", 3},
		{"manager filters by user", f.manager.ID, fmt.Sprintf("?user_id=%d", f.manager.ID), 1},
		{"date range", f.admin.ID, "?start_date=2024-03-02&end_date=2024-03-31", 1},
		{"status", f.admin.ID, "?status=pending", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/attendance"+tt.query, tt.userID, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Len(t, body["data"], tt.expected)
			assert.EqualValues(t, tt.expected, body["meta"].(map[string]any)["total"])
		})
	}

	w := f.do(t, http.MethodGet, "/api/attendance?status=gone", f.admin.ID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodGet, "/api/attendance?start_date=03/01/2024", f.admin.ID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	res := f.mark(t, f.manager.ID, model.CheckIn, "08:00")
	path := fmt.Sprintf("/api/attendance/%d", res.Attendance.ID)

	w := f.do(t, http.MethodGet, path, f.manager.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "Bruno Paz", data["user"].(map[string]any)["name"])
	assert.Len(t, data["records"], 1)

	w = f.do(t, http.MethodGet, path, f.worker.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/api/attendance/999", f.admin.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	res := f.mark(t, f.worker.ID, model.CheckIn, "08:20")
	path := fmt.Sprintf("/api/attendance/%d", res.Attendance.ID)

	w := f.do(t, http.MethodPut, path, f.worker.ID, gin.H{"status": "late"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, path, f.manager.ID, gin.H{"status": "late", "late_minutes": 20, "notes": "tráfico"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "late", data["status"])
	assert.EqualValues(t, 20, data["late_minutes"])
	assert.Equal(t, "tráfico", data["notes"])

	w = f.do(t, http.MethodPut, path, f.manager.ID, gin.H{"status": "vacation"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodPut, path, f.manager.ID, gin.H{"late_minutes": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "late_minutes")

	w = f.do(t, http.MethodPut, "/api/attendance/999", f.manager.ID, gin.H{"is_absent": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (f *fixture) seedReport(t *testing.T) {
	f.seed(t, f.worker.ID, "2024-03-04", 480, 0)
	f.seed(t, f.worker.ID, "2024-03-05", 500, 20)
	f.seed(t, f.manager.ID, "2024-03-04", 240, 0)
	f.seed(t, f.worker.ID, "2024-02-28", 480, 0)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	f.seedReport(t)

	w := f.do(t, http.MethodGet, "/api/reports/attendance?group_by=month", f.manager.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)

	rows := body["data"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "Ana Diaz", first["user_name"])
	assert.Equal(t, "2024-03", first["period_key"])
	assert.EqualValues(t, 980, first["total_minutes"])
	assert.EqualValues(t, 20, first["overtime_minutes"])
	assert.Equal(t, "Bruno Paz", rows[1].(map[string]any)["user_name"])

	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 1, meta["current_page"])
	assert.EqualValues(t, 2, meta["total"])
}

func TestReport_UnknownGroupByFallsBackToDay(t *testing.T) {
	f := newFixture(t)
	f.seedReport(t)

	w := f.do(t, http.MethodGet, "/api/reports/attendance?group_by=fortnight&per_page=1&page=2", f.admin.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	rows := body["data"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "day", rows[0].(map[string]any)["period_type"])

	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 3, meta["total"])
	assert.EqualValues(t, 3, meta["last_page"])
	assert.EqualValues(t, 2, meta["current_page"])
}

func TestReport_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		userID   uint
		query    string
		expected int
	}{
		{"worker lacks reports.view", f.worker.ID, "", http.StatusForbidden},
		{"start after end", f.manager.ID, "?start_date=2024-03-10&end_date=2024-03-01", http.StatusUnprocessableEntity},
		{"malformed date", f.manager.ID, "?start_date=2024-13-01", http.StatusUnprocessableEntity},
		{"page below one", f.manager.ID, "?page=0", http.StatusOK},
		{"negative page", f.manager.ID, "?page=-2", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/reports/attendance"+tt.query, tt.userID, nil)
			assert.Equal(t, tt.expected, w.Code, w.Body.String())
		})
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.seedReport(t)

	w := f.do(t, http.MethodGet, "/api/reports/attendance/export?group_by=day", f.manager.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="asistencia_day_2024-03-01_2024-03-31.xlsx"`, w.Header().Get("Content-Disposition"))

	file, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer file.Close()
	rows, err := file.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, export.Headers, rows[0])
	assert.Equal(t, "Ana Diaz", rows[1][0])

	require.Equal(t, []string{"example/asistencia_day_2024-03-01_2024-03-31.xlsx"}, f.archive.keys)
	assert.Equal(t, w.Body.Bytes(), f.archive.data[0])
}

func TestExport_ArchiveFailureStillServesFile(t *testing.T) {
	f := newFixture(t)
	f.seedReport(t)
	f.archive.err = errors.New("bucket unavailable")

	w := f.do(t, http.MethodGet, "/api/reports/attendance/export", f.manager.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())
	assert.Len(t, f.archive.keys, 1)

	w = f.do(t, http.MethodGet, "/api/reports/attendance/export", f.worker.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
