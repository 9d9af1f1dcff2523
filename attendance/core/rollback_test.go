package core

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"axiapac.com/backoffice/attendance/model"
	"axiapac.com/backoffice/utils"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func TestMark_RollsBackWhenRecomputeFails(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := &recordingNotifier{}
	svc := NewService(utils.FixedClock{T: at("08:00")}, notifier, nil, StandardDayMinutes)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active"}).AddRow(1, "Ana Diaz", true))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "attendances"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(`SELECT \* FROM "attendances" WHERE .*user_id = \$1 AND date = \$2.* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "date", "status"}).AddRow(10, 1, "2024-03-04", "pending"))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "attendance_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "attendance_records" WHERE attendance_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "attendance_id", "type", "timestamp"}).AddRow(100, 10, "check_in", at("08:00")))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "attendances" SET`)).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := svc.Mark(context.Background(), db, 1, MarkInput{Type: model.CheckIn})
	require.Error(t, err)
	assert.ErrorContains(t, err, "deadlock detected")
	assert.Empty(t, notifier.messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRecord_RollsBackWhenDeleteFails(t *testing.T) {
	db, mock := newMockDB(t)
	notifier := &recordingNotifier{}
	svc := NewService(utils.FixedClock{T: at("08:00")}, notifier, nil, StandardDayMinutes)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "attendance_records" WHERE "attendance_records"."id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "attendance_id", "type", "timestamp"}).AddRow(100, 10, "check_out", at("12:00")))
	mock.ExpectQuery(`SELECT \* FROM "attendances" WHERE "attendances"."id" = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "date", "total_minutes", "status"}).AddRow(10, 1, "2024-03-04", 240, "completed"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "attendance_records"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := svc.DeleteRecord(context.Background(), db, 2, 100)
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, notifier.messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}
