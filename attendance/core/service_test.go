package core

import (
	"context"
	"errors"
	"testing"

	"axiapac.com/backoffice/attendance/model"
	"axiapac.com/backoffice/core/models"
	"axiapac.com/backoffice/core/testdb"
	notification "axiapac.com/backoffice/notification/core"
	nmodel "axiapac.com/backoffice/notification/model"
	"axiapac.com/backoffice/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	messages []notification.Message
	err      error
	panics   bool
}

func (n *recordingNotifier) Notify(ctx context.Context, db *gorm.DB, msg notification.Message) error {
	if n.panics {
		panic("notifier exploded")
	}
	n.messages = append(n.messages, msg)
	return n.err
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	notifier *recordingNotifier
	worker   models.User
	manager  models.User
	admin    models.User
	outsider models.User
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t)
	ops := testdb.Area(t, db, "Operaciones")
	sales := testdb.Area(t, db, "Ventas")

	f := &fixture{
		db:       db,
		notifier: &recordingNotifier{},
		worker:   testdb.User(t, db, "Ana Diaz", &ops.ID),
		manager:  testdb.User(t, db, "Bruno Paz", &ops.ID, models.RoleManager),
		admin:    testdb.User(t, db, "Carla Sol", nil, models.RoleSuperAdmin),
		outsider: testdb.User(t, db, "Dario Luz", &sales.ID, models.RoleManager),
	}
	f.svc = NewService(utils.FixedClock{T: at("08:00")}, f.notifier, nil, StandardDayMinutes)
	return f
}

func (f *fixture) markAt(t *testing.T, userID uint, typ model.MarkType, hhmm string) *MarkResult {
	t.Helper()
	f.svc.Clock = utils.FixedClock{T: at(hhmm)}
	res, err := f.svc.Mark(context.Background(), f.db, userID, MarkInput{Type: typ, Reason: "test"})
	require.NoError(t, err)
	return res
}

func TestMark_FullDay(t *testing.T) {
	f := newFixture(t)

	res := f.markAt(t, f.worker.ID, model.CheckIn, "08:00")
	assert.Equal(t, model.StatusPending, res.Attendance.Status)
	assert.Equal(t, 0, res.Attendance.TotalMinutes)
	assert.Equal(t, model.CheckOut, res.NextMarkType)
	assert.Equal(t, "2024-03-04", res.Attendance.Date)
	assert.Equal(t, model.CheckIn, res.Record.Type)
	assert.NotZero(t, res.Record.ID)

	res = f.markAt(t, f.worker.ID, model.CheckOut, "12:00")
	assert.Equal(t, model.StatusCompleted, res.Attendance.Status)
	assert.Equal(t, 240, res.Attendance.TotalMinutes)
	assert.Equal(t, model.CheckIn, res.NextMarkType)

	res = f.markAt(t, f.worker.ID, model.CheckIn, "13:00")
	assert.Equal(t, model.StatusPending, res.Attendance.Status)
	assert.Equal(t, 240, res.Attendance.TotalMinutes)

	res = f.markAt(t, f.worker.ID, model.CheckOut, "17:00")
	assert.Equal(t, model.StatusCompleted, res.Attendance.Status)
	assert.Equal(t, 480, res.Attendance.TotalMinutes)
	assert.Equal(t, 0, res.Attendance.OvertimeMinutes)
	assert.Len(t, res.Attendance.Records, 4)

	var rows []model.Attendance
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 480, rows[0].TotalMinutes)
	assert.Equal(t, model.StatusCompleted, rows[0].Status)
}

func TestMark_Overtime(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.worker.ID, model.CheckIn, "07:00")
	res := f.markAt(t, f.worker.ID, model.CheckOut, "15:20")

	assert.Equal(t, 500, res.Attendance.TotalMinutes)
	assert.Equal(t, 20, res.Attendance.OvertimeMinutes)
}

func TestMark_StoresRecordDetails(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Mark(context.Background(), f.db, f.worker.ID, MarkInput{
		Type:      model.CheckIn,
		Reason:    "inicio de turno",
		Location:  utils.Ptr("Planta 2"),
		Notes:     utils.Ptr("llegó en bus"),
		IPAddress: utils.Ptr("10.0.0.7"),
	})
	require.NoError(t, err)

	var record model.TimeRecord
	require.NoError(t, f.db.First(&record, res.Record.ID).Error)
	assert.Equal(t, "inicio de turno", record.Reason)
	assert.Equal(t, "Planta 2", *record.Location)
	assert.Equal(t, "llegó en bus", *record.Notes)
	assert.Equal(t, "10.0.0.7", *record.IPAddress)
	assert.True(t, record.Timestamp.Equal(at("08:00")))
}

func TestMark_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Mark(context.Background(), f.db, f.worker.ID, MarkInput{Type: "lunch"})
	assert.ErrorIs(t, err, ErrInvalidMarkType)

	_, err = f.svc.Mark(context.Background(), f.db, 9999, MarkInput{Type: model.CheckIn})
	assert.ErrorIs(t, err, ErrUserNotFound)

	var count int64
	require.NoError(t, f.db.Model(&model.Attendance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMark_NotifiesAreaManagersAndSuperAdmins(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.worker.ID, model.CheckIn, "08:05")

	require.Len(t, f.notifier.messages, 1)
	msg := f.notifier.messages[0]
	assert.ElementsMatch(t, []uint{f.manager.ID, f.admin.ID}, msg.Recipients)
	assert.Equal(t, CategoryMark, msg.Category)
	assert.Equal(t, "Ana Diaz registró entrada a las 08:05", msg.Message)
	assert.Equal(t, nmodel.PriorityNormal, msg.Priority)
}

func TestMark_ActorIsNotNotified(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.manager.ID, model.CheckIn, "08:00")

	require.Len(t, f.notifier.messages, 1)
	assert.Equal(t, []uint{f.admin.ID}, f.notifier.messages[0].Recipients)
}

func TestMark_NotifierFailureDoesNotFailMark(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("push gateway down")

	res := f.markAt(t, f.worker.ID, model.CheckIn, "08:00")
	assert.NotNil(t, res.Attendance)

	f.notifier.err = nil
	f.notifier.panics = true
	res = f.markAt(t, f.worker.ID, model.CheckOut, "09:00")
	assert.Equal(t, 60, res.Attendance.TotalMinutes)
}

func TestDeleteRecord_RecomputesFromRemaining(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.worker.ID, model.CheckIn, "08:00")
	middle := f.markAt(t, f.worker.ID, model.CheckOut, "12:00")
	last := f.markAt(t, f.worker.ID, model.CheckOut, "17:00")
	require.Equal(t, 240, last.Attendance.TotalMinutes)
	f.notifier.messages = nil

	a, err := f.svc.DeleteRecord(context.Background(), f.db, f.admin.ID, middle.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, 540, a.TotalMinutes)
	assert.Equal(t, 60, a.OvertimeMinutes)
	assert.Equal(t, model.StatusCompleted, a.Status)
	assert.Len(t, a.Records, 2)

	var stored model.Attendance
	require.NoError(t, f.db.First(&stored, a.ID).Error)
	assert.Equal(t, 540, stored.TotalMinutes)

	require.Len(t, f.notifier.messages, 1)
	assert.Equal(t, []uint{f.worker.ID}, f.notifier.messages[0].Recipients)
	assert.Equal(t, CategoryRecordDeleted, f.notifier.messages[0].Category)
	assert.Equal(t, nmodel.PriorityHigh, f.notifier.messages[0].Priority)
}

func TestDeleteRecord_LastCheckOutReopensDay(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.worker.ID, model.CheckIn, "08:00")
	out := f.markAt(t, f.worker.ID, model.CheckOut, "12:00")

	a, err := f.svc.DeleteRecord(context.Background(), f.db, f.worker.ID, out.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.TotalMinutes)
	assert.Equal(t, model.StatusPending, a.Status)
}

func TestDeleteRecord_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.DeleteRecord(context.Background(), f.db, f.admin.ID, 42)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTodayFor(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "2024-03-04", f.svc.Today())

	a, next, err := f.svc.TodayFor(context.Background(), f.db, f.worker.ID)
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Equal(t, model.CheckIn, next)

	f.markAt(t, f.worker.ID, model.CheckIn, "08:00")
	a, next, err = f.svc.TodayFor(context.Background(), f.db, f.worker.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, model.CheckOut, next)
	assert.Len(t, a.Records, 1)
}

func TestTodayFor_SelfHealsStaleTotals(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.worker.ID, model.CheckIn, "08:00")
	res := f.markAt(t, f.worker.ID, model.CheckOut, "12:00")

	require.NoError(t, f.db.Model(&model.Attendance{}).Where("id = ?", res.Attendance.ID).
		Updates(map[string]any{"total_minutes": 0, "status": model.StatusPending}).Error)

	first, _, err := f.svc.TodayFor(context.Background(), f.db, f.worker.ID)
	require.NoError(t, err)
	assert.Equal(t, 240, first.TotalMinutes)
	assert.Equal(t, model.StatusCompleted, first.Status)

	second, _, err := f.svc.TodayFor(context.Background(), f.db, f.worker.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TotalMinutes, second.TotalMinutes)

	var stored model.Attendance
	require.NoError(t, f.db.First(&stored, res.Attendance.ID).Error)
	assert.Equal(t, 240, stored.TotalMinutes)
}

func TestRecalculateIfStale_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.worker.ID, model.CheckIn, "08:00")
	res := f.markAt(t, f.worker.ID, model.CheckOut, "10:30")
	require.NoError(t, f.db.Model(&model.Attendance{}).Where("id = ?", res.Attendance.ID).Update("total_minutes", 0).Error)

	var a model.Attendance
	require.NoError(t, f.db.First(&a, res.Attendance.ID).Error)

	ran, err := f.svc.RecalculateIfStale(context.Background(), f.db, &a)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 150, a.TotalMinutes)

	ran, err = f.svc.RecalculateIfStale(context.Background(), f.db, &a)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 150, a.TotalMinutes)
}

func TestRecalculate(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.worker.ID, model.CheckIn, "08:00")
	f.markAt(t, f.worker.ID, model.CheckOut, "09:00")
	f.markAt(t, f.manager.ID, model.CheckIn, "08:00")
	f.markAt(t, f.manager.ID, model.CheckOut, "10:00")

	require.NoError(t, f.db.Model(&model.Attendance{}).Where("user_id = ?", f.worker.ID).Update("total_minutes", 0).Error)

	count, err := f.svc.Recalculate(context.Background(), f.db, "2024-03-04", "2024-03-04", false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, f.db.Model(&model.Attendance{}).Where("user_id = ?", f.manager.ID).Update("total_minutes", 999).Error)
	count, err = f.svc.Recalculate(context.Background(), f.db, "2024-03-01", "2024-03-31", true)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var totals []int
	require.NoError(t, f.db.Model(&model.Attendance{}).Order("user_id").Pluck("total_minutes", &totals).Error)
	assert.Equal(t, []int{60, 120}, totals)

	count, err = f.svc.Recalculate(context.Background(), f.db, "2024-04-01", "2024-04-30", true)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.worker.ID, model.CheckIn, "08:00")
	res := f.markAt(t, f.worker.ID, model.CheckOut, "12:00")

	a, err := f.svc.Update(context.Background(), f.db, res.Attendance.ID, UpdateInput{
		Status:      utils.Ptr(model.StatusLate),
		LateMinutes: utils.Ptr(15),
		IsAbsent:    utils.Ptr(false),
		Notes:       utils.Ptr("tráfico"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusLate, a.Status)
	assert.Equal(t, 15, a.LateMinutes)
	assert.Equal(t, "tráfico", *a.Notes)
	assert.Equal(t, 240, a.TotalMinutes)
	require.NotNil(t, a.User)
	assert.Equal(t, "Ana Diaz", a.User.Name)
	assert.Len(t, a.Records, 2)
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t)
	res := f.markAt(t, f.worker.ID, model.CheckIn, "08:00")

	_, err := f.svc.Update(context.Background(), f.db, res.Attendance.ID, UpdateInput{Status: utils.Ptr(model.Status("holiday"))})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.Update(context.Background(), f.db, res.Attendance.ID, UpdateInput{LateMinutes: utils.Ptr(-1)})
	assert.ErrorIs(t, err, ErrInvalidLateMinutes)

	_, err = f.svc.Update(context.Background(), f.db, 999, UpdateInput{IsAbsent: utils.Ptr(true)})
	assert.ErrorIs(t, err, ErrAttendanceNotFound)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	f.markAt(t, f.worker.ID, model.CheckOut, "17:00")
	res := f.markAt(t, f.worker.ID, model.CheckIn, "08:00")

	a, err := f.svc.Get(context.Background(), f.db, res.Attendance.ID)
	require.NoError(t, err)
	require.Len(t, a.Records, 2)
	assert.Equal(t, model.CheckIn, a.Records[0].Type)
	assert.Equal(t, model.CheckOut, a.Records[1].Type)

	_, err = f.svc.Get(context.Background(), f.db, 999)
	assert.ErrorIs(t, err, ErrAttendanceNotFound)
}

func seedDay(t *testing.T, db *gorm.DB, userID uint, date string, total int, absent bool) model.Attendance {
	t.Helper()
	a := model.Attendance{
		UserID:          userID,
		Date:            date,
		TotalMinutes:    total,
		OvertimeMinutes: OvertimeMinutes(total, StandardDayMinutes),
		Status:          model.StatusCompleted,
		IsAbsent:        absent,
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func TestList(t *testing.T) {
	f := newFixture(t)
	seedDay(t, f.db, f.worker.ID, "2024-03-01", 480, false)
	seedDay(t, f.db, f.worker.ID, "2024-03-02", 300, false)
	seedDay(t, f.db, f.manager.ID, "2024-03-02", 500, false)
	seedDay(t, f.db, f.outsider.ID, "2024-03-02", 400, false)
	seedDay(t, f.db, f.worker.ID, "2024-04-01", 480, false)

	rows, meta, err := f.svc.List(context.Background(), f.db, ListFilter{StartDate: "2024-03-01", EndDate: "2024-03-31"}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), meta.Total)
	assert.Equal(t, 2, meta.LastPage)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-02", rows[0].Date)
	require.NotNil(t, rows[0].User)

	rows, meta, err = f.svc.List(context.Background(), f.db, ListFilter{UserID: &f.worker.ID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.Total)
	assert.Equal(t, "2024-04-01", rows[0].Date)

	area := *f.worker.AreaID
	_, meta, err = f.svc.List(context.Background(), f.db, ListFilter{AreaID: &area, StartDate: "2024-03-02", EndDate: "2024-03-02"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Total)

	status := model.StatusPending
	_, meta, err = f.svc.List(context.Background(), f.db, ListFilter{Status: &status}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, meta.Total)
}
