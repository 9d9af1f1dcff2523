package core

import (
	"fmt"
	"sort"
	"time"

	"axiapac.com/backoffice/attendance/model"
	"axiapac.com/backoffice/utils"
	"github.com/jinzhu/now"
)

type PeriodType string

const (
	PeriodDay   PeriodType = "day"
	PeriodWeek  PeriodType = "week"
	PeriodMonth PeriodType = "month"
)

// ParsePeriodType falls back to PeriodDay for anything it does not recognise.
func ParsePeriodType(s string) PeriodType {
	switch PeriodType(s) {
	case PeriodWeek:
		return PeriodWeek
	case PeriodMonth:
		return PeriodMonth
	}
	return PeriodDay
}

// PeriodBucket aggregates one user's Attendance rows over one reporting period.
// It is computed per request and never stored.
type PeriodBucket struct {
	UserID          uint       `json:"user_id"`
	UserName        string     `json:"user_name"`
	PeriodType      PeriodType `json:"period_type"`
	PeriodKey       string     `json:"period_key"`
	PeriodStart     string     `json:"period_start"`
	PeriodEnd       string     `json:"period_end"`
	DaysWorked      int        `json:"days_worked"`
	AbsentDays      int        `json:"absent_days"`
	TotalMinutes    int        `json:"total_minutes"`
	TotalHours      float64    `json:"total_hours"`
	OvertimeMinutes int        `json:"overtime_minutes"`
	OvertimeHours   float64    `json:"overtime_hours"`
	LateMinutes     int        `json:"late_minutes"`
	LateHours       float64    `json:"late_hours"`
}

// ISO weeks start on Monday.
var calendar = &now.Config{WeekStartDay: time.Monday, TimeLocation: time.UTC}

// PeriodKey renders the canonical key of the period containing date:
// YYYY-MM-DD, GGGG-Www (ISO week-year and week) or YYYY-MM.
func PeriodKey(date time.Time, pt PeriodType) string {
	switch pt {
	case PeriodWeek:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case PeriodMonth:
		return date.Format("2006-01")
	}
	return date.Format(utils.DateLayout)
}

// PeriodBounds returns the first and last calendar day (inclusive) of a period key.
func PeriodBounds(key string, pt PeriodType) (string, string, error) {
	switch pt {
	case PeriodWeek:
		var year, week int
		if _, err := fmt.Sscanf(key, "%4d-W%2d", &year, &week); err != nil {
			return "", "", fmt.Errorf("invalid week key %q: %w", key, err)
		}
		// January 4th always falls in ISO week 1.
		jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
		start := calendar.With(jan4).BeginningOfWeek().AddDate(0, 0, (week-1)*7)
		return start.Format(utils.DateLayout), start.AddDate(0, 0, 6).Format(utils.DateLayout), nil
	case PeriodMonth:
		t, err := time.ParseInLocation("2006-01", key, time.UTC)
		if err != nil {
			return "", "", fmt.Errorf("invalid month key %q: %w", key, err)
		}
		month := calendar.With(t)
		return month.BeginningOfMonth().Format(utils.DateLayout), month.EndOfMonth().Format(utils.DateLayout), nil
	}

	if _, err := utils.ParseDate(key); err != nil {
		return "", "", err
	}
	return key, key, nil
}

type keyedAttendance struct {
	period string
	row    model.Attendance
}

// Bucketize groups rows by period and then by user and aggregates each group. Output is
// ordered by user name, then period key (then user id for namesakes).
func Bucketize(rows []model.Attendance, pt PeriodType) ([]PeriodBucket, error) {
	keyed := make([]keyedAttendance, 0, len(rows))
	for _, row := range rows {
		date, err := utils.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("attendance %d: %w", row.ID, err)
		}
		keyed = append(keyed, keyedAttendance{period: PeriodKey(date, pt), row: row})
	}

	buckets := make([]PeriodBucket, 0)
	byPeriod := utils.GroupBy(keyed, func(k keyedAttendance) string { return k.period })
	for key, periodRows := range byPeriod {
		start, end, err := PeriodBounds(key, pt)
		if err != nil {
			return nil, err
		}

		byUser := utils.GroupBy(periodRows, func(k keyedAttendance) uint { return k.row.UserID })
		for userID, userRows := range byUser {
			b := PeriodBucket{
				UserID:      userID,
				UserName:    userRows[0].row.UserName(),
				PeriodType:  pt,
				PeriodKey:   key,
				PeriodStart: start,
				PeriodEnd:   end,
			}
			for _, k := range userRows {
				if k.row.TotalMinutes > 0 {
					b.DaysWorked++
				}
				if k.row.IsAbsent {
					b.AbsentDays++
				}
				b.TotalMinutes += k.row.TotalMinutes
				b.OvertimeMinutes += k.row.OvertimeMinutes
				b.LateMinutes += k.row.LateMinutes
			}
			b.TotalHours = utils.MinutesToHours(b.TotalMinutes)
			b.OvertimeHours = utils.MinutesToHours(b.OvertimeMinutes)
			b.LateHours = utils.MinutesToHours(b.LateMinutes)
			buckets = append(buckets, b)
		}
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].UserName != buckets[j].UserName {
			return buckets[i].UserName < buckets[j].UserName
		}
		if buckets[i].PeriodKey != buckets[j].PeriodKey {
			return buckets[i].PeriodKey < buckets[j].PeriodKey
		}
		return buckets[i].UserID < buckets[j].UserID
	})
	return buckets, nil
}
