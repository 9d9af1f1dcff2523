package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"axiapac.com/backoffice/attendance/model"
	appcore "axiapac.com/backoffice/core"
	"axiapac.com/backoffice/infrastructure/metrics"
	"axiapac.com/backoffice/utils"
	"gorm.io/gorm"
)

const ImportReason = "clock device import"

// Punch is one row of a clock device export.
type Punch struct {
	Line      int
	UserID    uint
	Timestamp time.Time
	Date      string
	Location  string
}

type ImportIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Imported    int           `json:"imported"`
	Duplicates  int           `json:"duplicates"`
	Attendances int           `json:"attendances"`
	Skipped     []ImportIssue `json:"skipped"`
}

// ParsePunchCSV reads a device export with a header row and the columns
// id,user_id,timestamp,location. Timestamps without a zone are read in loc; every punch is
// dated in loc.
func ParsePunchCSV(r io.Reader, loc *time.Location) ([]Punch, error) {
	rows, err := utils.ParseCSV(r)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	punches := make([]Punch, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		line := i + 1
		if len(row) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 columns, got %d", line, len(row))
		}

		userID, err := strconv.ParseUint(strings.TrimSpace(row[1]), 10, 64)
		if err != nil || userID == 0 {
			return nil, fmt.Errorf("line %d: invalid user id %q", line, row[1])
		}

		parsed, err := utils.ParseISOTime(strings.TrimSpace(row[2]), loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp: %w", line, err)
		}
		ts := parsed.In(loc)

		punch := Punch{
			Line:      line,
			UserID:    uint(userID),
			Timestamp: ts,
			Date:      ts.Format(utils.DateLayout),
		}
		if len(row) > 3 {
			punch.Location = strings.TrimSpace(row[3])
		}
		punches = append(punches, punch)
	}
	return punches, nil
}

type punchDay struct {
	UserID uint
	Date   string
}

// Import stores device punches as time records. Punches are grouped per user and day; each
// group runs in its own transaction and ends with a recompute of its Attendance. A punch whose
// timestamp already exists on the day is counted as a duplicate. The mark type of each new
// punch is the one suggested by the records that precede it. Unknown users are skipped.
func (s *Service) Import(ctx context.Context, db *gorm.DB, punches []Punch) (*ImportResult, error) {
	result := &ImportResult{Skipped: []ImportIssue{}}

	groups := utils.GroupBy(punches, func(p Punch) punchDay {
		return punchDay{UserID: p.UserID, Date: p.Date}
	})
	days := make([]punchDay, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		if days[i].Date != days[j].Date {
			return days[i].Date < days[j].Date
		}
		return days[i].UserID < days[j].UserID
	})

	for _, day := range days {
		group := groups[day]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})

		var created []model.TimeRecord
		unknown := false
		duplicates := 0
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			user, err := appcore.FindUserByID(tx, day.UserID)
			if err != nil {
				return err
			}
			if user == nil {
				unknown = true
				return nil
			}

			attendance, err := lockOrCreate(tx, day.UserID, day.Date)
			if err != nil {
				return err
			}

			var existing []model.TimeRecord
			if err := tx.Where("attendance_id = ?", attendance.ID).Find(&existing).Error; err != nil {
				return fmt.Errorf("failed to load time records: %w", err)
			}

			for _, p := range group {
				if hasTimestamp(existing, p.Timestamp) {
					duplicates++
					continue
				}

				before := utils.Filter(existing, func(r model.TimeRecord) bool {
					return r.Timestamp.Before(p.Timestamp)
				})
				record := model.TimeRecord{
					AttendanceID: attendance.ID,
					Type:         NextMarkType(SortRecords(before)),
					Timestamp:    p.Timestamp,
					Reason:       ImportReason,
				}
				if p.Location != "" {
					record.Location = utils.Ptr(p.Location)
				}
				if err := tx.Create(&record).Error; err != nil {
					return fmt.Errorf("line %d: failed to create time record: %w", p.Line, err)
				}
				existing = append(existing, record)
				created = append(created, record)
			}

			if len(created) == 0 {
				return nil
			}
			return s.recompute(tx, attendance)
		})
		if err != nil {
			return result, fmt.Errorf("user %d on %s: %w", day.UserID, day.Date, err)
		}

		if unknown {
			for _, p := range group {
				result.Skipped = append(result.Skipped, ImportIssue{Line: p.Line, Reason: ErrUserNotFound.Error()})
			}
			continue
		}

		result.Duplicates += duplicates
		if len(created) > 0 {
			result.Imported += len(created)
			result.Attendances++
			for _, r := range created {
				metrics.AttendanceMarks.WithLabelValues(string(r.Type)).Inc()
			}
		}
	}

	sort.Slice(result.Skipped, func(i, j int) bool { return result.Skipped[i].Line < result.Skipped[j].Line })
	s.logger().Info("clock import finished",
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"attendances", result.Attendances,
		"skipped", len(result.Skipped))
	return result, nil
}

func hasTimestamp(records []model.TimeRecord, ts time.Time) bool {
	return utils.Find(records, func(r model.TimeRecord) bool { return r.Timestamp.Equal(ts) }) != nil
}
