package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"axiapac.com/backoffice/attendance/model"
	appcore "axiapac.com/backoffice/core"
	"axiapac.com/backoffice/infrastructure/metrics"
	notification "axiapac.com/backoffice/notification/core"
	"axiapac.com/backoffice/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier receives the fan-out for attendance events. Its failures never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, db *gorm.DB, msg notification.Message) error
}

type Service struct {
	Clock              utils.Clock
	Notifier           Notifier
	Logger             *slog.Logger
	StandardDayMinutes int
}

func NewService(clock utils.Clock, notifier Notifier, logger *slog.Logger, standardDayMinutes int) *Service {
	return &Service{
		Clock:              clock,
		Notifier:           notifier,
		Logger:             logger,
		StandardDayMinutes: standardDayMinutes,
	}
}

type MarkInput struct {
	Type      model.MarkType
	Reason    string
	Location  *string
	Notes     *string
	IPAddress *string
}

type MarkResult struct {
	Attendance   *model.Attendance `json:"attendance"`
	Record       *model.TimeRecord `json:"record"`
	NextMarkType model.MarkType    `json:"next_mark_type"`
}

// UpdateInput carries the administrative fields of an Attendance. Nil fields are left as is.
type UpdateInput struct {
	Status      *model.Status
	IsAbsent    *bool
	LateMinutes *int
	Notes       *string
}

func (s *Service) now() time.Time {
	return s.clock().Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) standardDay() int {
	if s.StandardDayMinutes <= 0 {
		return StandardDayMinutes
	}
	return s.StandardDayMinutes
}

// Today is the calendar date of the service clock.
func (s *Service) Today() string {
	return utils.Today(s.clock())
}

// Mark appends a punch of in.Type to userID's attendance for today, creating the row on
// the first punch of the day, and recomputes the row. The whole sequence runs in one
// transaction holding the row lock.
func (s *Service) Mark(ctx context.Context, db *gorm.DB, userID uint, in MarkInput) (*MarkResult, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidMarkType
	}

	now := s.now()
	date := now.Format(utils.DateLayout)

	var result MarkResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := appcore.FindUserByID(tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		attendance, err := lockOrCreate(tx, userID, date)
		if err != nil {
			return err
		}

		record := model.TimeRecord{
			AttendanceID: attendance.ID,
			Type:         in.Type,
			Timestamp:    now,
			Reason:       in.Reason,
			Location:     in.Location,
			IPAddress:    in.IPAddress,
			Notes:        in.Notes,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create time record: %w", err)
		}

		if err := s.recompute(tx, attendance); err != nil {
			return err
		}
		attendance.User = user

		result = MarkResult{
			Attendance:   attendance,
			Record:       &record,
			NextMarkType: NextMarkType(attendance.Records),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AttendanceMarks.WithLabelValues(string(in.Type)).Inc()
	s.notifyBestEffort(ctx, db, func() (notification.Message, error) {
		return markMessage(db, result.Attendance, result.Record)
	})
	return &result, nil
}

// DeleteRecord removes one TimeRecord and recomputes its Attendance from the remaining ones.
// actorID is the administrator performing the delete; the owner is told when they differ.
func (s *Service) DeleteRecord(ctx context.Context, db *gorm.DB, actorID, recordID uint) (*model.Attendance, error) {
	var attendance *model.Attendance
	var deleted model.TimeRecord

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		var locked model.Attendance
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, deleted.AttendanceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttendanceNotFound
			}
			return err
		}

		if err := tx.Delete(&model.TimeRecord{}, deleted.ID).Error; err != nil {
			return fmt.Errorf("failed to delete time record: %w", err)
		}

		if err := s.recompute(tx, &locked); err != nil {
			return err
		}
		attendance = &locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if attendance.UserID != actorID {
		s.notifyBestEffort(ctx, db, func() (notification.Message, error) {
			return deletedMessage(attendance, &deleted), nil
		})
	}
	return attendance, nil
}

// TodayFor returns userID's attendance for today with its records, or nil when the user has
// not marked yet. A stale row is recomputed before it is returned.
func (s *Service) TodayFor(ctx context.Context, db *gorm.DB, userID uint) (*model.Attendance, model.MarkType, error) {
	var attendance model.Attendance
	err := db.WithContext(ctx).
		Preload("Records", orderRecords).
		Where("user_id = ? AND date = ?", userID, s.Today()).
		First(&attendance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.CheckIn, nil
	}
	if err != nil {
		return nil, "", err
	}

	if _, err := s.RecalculateIfStale(ctx, db, &attendance); err != nil {
		return nil, "", err
	}
	return &attendance, NextMarkType(attendance.Records), nil
}

// RecalculateIfStale recomputes a when it reports zero minutes while owning records. It
// reports whether a recompute ran.
func (s *Service) RecalculateIfStale(ctx context.Context, db *gorm.DB, a *model.Attendance) (bool, error) {
	if a.Records == nil {
		if err := db.WithContext(ctx).Where("attendance_id = ?", a.ID).Find(&a.Records).Error; err != nil {
			return false, err
		}
	}
	if a.TotalMinutes != 0 || len(a.Records) == 0 {
		return false, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked model.Attendance
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, a.ID).Error; err != nil {
			return err
		}
		if err := s.recompute(tx, &locked); err != nil {
			return err
		}
		a.TotalMinutes = locked.TotalMinutes
		a.OvertimeMinutes = locked.OvertimeMinutes
		a.Status = locked.Status
		a.UpdatedAt = locked.UpdatedAt
		a.Records = locked.Records
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Recalculate sweeps the rows dated within [start, end]. Without force only stale rows are
// recomputed. It returns the number of rows recomputed.
func (s *Service) Recalculate(ctx context.Context, db *gorm.DB, start, end string, force bool) (int, error) {
	var rows []model.Attendance
	if err := db.WithContext(ctx).
		Preload("Records").
		Where("date BETWEEN ? AND ?", start, end).
		Order("date").Order("id").
		Find(&rows).Error; err != nil {
		return 0, err
	}

	count := 0
	for i := range rows {
		if force {
			err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return s.recompute(tx, &rows[i])
			})
			if err != nil {
				return count, fmt.Errorf("attendance %d: %w", rows[i].ID, err)
			}
			count++
			continue
		}

		ran, err := s.RecalculateIfStale(ctx, db, &rows[i])
		if err != nil {
			return count, fmt.Errorf("attendance %d: %w", rows[i].ID, err)
		}
		if ran {
			count++
		}
	}
	return count, nil
}

// Update applies an administrative edit. Records and the derived minutes are not touched.
func (s *Service) Update(ctx context.Context, db *gorm.DB, id uint, in UpdateInput) (*model.Attendance, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if in.LateMinutes != nil && *in.LateMinutes < 0 {
		return nil, ErrInvalidLateMinutes
	}

	updates := map[string]any{}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.IsAbsent != nil {
		updates["is_absent"] = *in.IsAbsent
	}
	if in.LateMinutes != nil {
		updates["late_minutes"] = *in.LateMinutes
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attendance model.Attendance
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&attendance, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttendanceNotFound
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&attendance).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, db, id)
}

// Get loads one attendance with its owner and time-ordered records.
func (s *Service) Get(ctx context.Context, db *gorm.DB, id uint) (*model.Attendance, error) {
	var attendance model.Attendance
	err := db.WithContext(ctx).
		Preload("User").
		Preload("Records", orderRecords).
		First(&attendance, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttendanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

type ListFilter struct {
	StartDate string
	EndDate   string
	UserID    *uint
	AreaID    *uint
	Status    *model.Status
}

// List returns one page of attendances, newest date first.
func (s *Service) List(ctx context.Context, db *gorm.DB, filter ListFilter, page, perPage int) ([]model.Attendance, utils.PageMeta, error) {
	page, perPage = utils.NormalizePage(page, perPage)

	query := db.WithContext(ctx).Model(&model.Attendance{})
	if filter.StartDate != "" {
		query = query.Where("attendances.date >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		query = query.Where("attendances.date <= ?", filter.EndDate)
	}
	if filter.UserID != nil {
		query = query.Where("attendances.user_id = ?", *filter.UserID)
	}
	if filter.AreaID != nil {
		query = query.Joins("JOIN users ON users.id = attendances.user_id").
			Where("users.area_id = ?", *filter.AreaID)
	}
	if filter.Status != nil {
		query = query.Where("attendances.status = ?", *filter.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}

	rows := make([]model.Attendance, 0)
	if err := query.
		Preload("User").
		Order("attendances.date DESC").Order("attendances.id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&rows).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}
	return rows, utils.NewPageMeta(total, page, perPage), nil
}

func orderRecords(db *gorm.DB) *gorm.DB {
	return db.Order("timestamp").Order("id")
}

// lockOrCreate returns the (user, date) row locked for update, inserting it first when the
// day has no row yet. The unique (user_id, date) index turns a racing insert into a no-op.
func lockOrCreate(tx *gorm.DB, userID uint, date string) (*model.Attendance, error) {
	fresh := model.Attendance{UserID: userID, Date: date, Status: model.StatusPending}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to create attendance: %w", err)
	}

	var locked model.Attendance
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND date = ?", userID, date).
		First(&locked).Error; err != nil {
		return nil, fmt.Errorf("failed to lock attendance: %w", err)
	}
	return &locked, nil
}

// recompute reloads every record of a and persists the derived fields.
func (s *Service) recompute(tx *gorm.DB, a *model.Attendance) error {
	var records []model.TimeRecord
	if err := tx.Where("attendance_id = ?", a.ID).Find(&records).Error; err != nil {
		return fmt.Errorf("failed to load time records: %w", err)
	}

	Recompute(a, records, s.standardDay())
	if err := tx.Model(a).
		Select("total_minutes", "overtime_minutes", "status", "updated_at").
		Updates(a).Error; err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}

	metrics.AttendanceRecomputes.Inc()
	return nil
}

// notifyBestEffort runs the fan-out after the business transaction has committed. Errors and
// panics are logged and dropped.
func (s *Service) notifyBestEffort(ctx context.Context, db *gorm.DB, build func() (notification.Message, error)) {
	if s.Notifier == nil {
		return
	}

	var msg notification.Message
	defer func() {
		if r := recover(); r != nil {
			s.logger().Error("attendance notification panicked",
				"panic", r,
				"category", msg.Category,
				"recipients", msg.Recipients)
		}
	}()

	msg, err := build()
	if err == nil {
		err = s.Notifier.Notify(ctx, db, msg)
	}
	if err != nil {
		s.logger().Warn("attendance notification failed",
			"category", msg.Category,
			"recipients", msg.Recipients,
			"error", err)
	}
}
