package core

import (
	"context"

	"axiapac.com/backoffice/attendance/model"
	"axiapac.com/backoffice/utils"
	"gorm.io/gorm"
)

type ReportFilter struct {
	StartDate string
	EndDate   string
	UserID    *uint
	AreaID    *uint
}

// WithDefaults fills a missing range with the calendar month of today.
func (f ReportFilter) WithDefaults(clock utils.Clock) (ReportFilter, error) {
	if f.StartDate == "" || f.EndDate == "" {
		start, end := utils.MonthRange(clock.Now())
		if f.StartDate == "" {
			f.StartDate = start
		}
		if f.EndDate == "" {
			f.EndDate = end
		}
	}

	if _, err := utils.ParseDate(f.StartDate); err != nil {
		return f, err
	}
	if _, err := utils.ParseDate(f.EndDate); err != nil {
		return f, err
	}
	if f.StartDate > f.EndDate {
		return f, ErrInvalidDateRange
	}
	return f, nil
}

// LoadReportRows fetches the attendances in the filter's range with their owners.
func LoadReportRows(ctx context.Context, db *gorm.DB, filter ReportFilter) ([]model.Attendance, error) {
	query := db.WithContext(ctx).
		Preload("User").
		Where("attendances.date BETWEEN ? AND ?", filter.StartDate, filter.EndDate)

	if filter.UserID != nil {
		query = query.Where("attendances.user_id = ?", *filter.UserID)
	}
	if filter.AreaID != nil {
		query = query.Joins("JOIN users ON users.id = attendances.user_id").
			Where("users.area_id = ?", *filter.AreaID)
	}

	var rows []model.Attendance
	if err := query.Order("attendances.date").Order("attendances.id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Report is the single entry point shared by the JSON report and the file export.
func (s *Service) Report(ctx context.Context, db *gorm.DB, filter ReportFilter, pt PeriodType) ([]PeriodBucket, ReportFilter, error) {
	filter, err := filter.WithDefaults(s.clock())
	if err != nil {
		return nil, filter, err
	}

	rows, err := LoadReportRows(ctx, db, filter)
	if err != nil {
		return nil, filter, err
	}

	buckets, err := Bucketize(rows, pt)
	if err != nil {
		return nil, filter, err
	}
	return buckets, filter, nil
}

func (s *Service) clock() utils.Clock {
	if s.Clock == nil {
		return utils.SystemClock{}
	}
	return s.Clock
}
