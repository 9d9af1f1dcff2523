package core

import (
	"sort"
	"time"

	"axiapac.com/backoffice/attendance/model"
)

// StandardDayMinutes is the overtime threshold: 8 hours.
const StandardDayMinutes = 480

// SortRecords returns a copy of records ordered by timestamp; ties keep insertion (ID) order.
func SortRecords(records []model.TimeRecord) []model.TimeRecord {
	sorted := make([]model.TimeRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// TotalMinutes walks time-sorted records pairing each check_in that opens an interval with
// the next check_out. A check_in while an interval is open and a check_out while none is
// open are ignored. Each closed interval contributes its whole minutes (truncated).
func TotalMinutes(sorted []model.TimeRecord) int {
	total := 0
	var open *time.Time

	for i := range sorted {
		r := sorted[i]
		switch r.Type {
		case model.CheckIn:
			if open == nil {
				ts := r.Timestamp
				open = &ts
			}
		case model.CheckOut:
			if open != nil {
				total += int(r.Timestamp.Sub(*open) / time.Minute)
				open = nil
			}
		}
	}
	return total
}

func OvertimeMinutes(total, standardDay int) int {
	if total > standardDay {
		return total - standardDay
	}
	return 0
}

// DeriveStatus classifies a day from its time-sorted records. Absent and late are never
// derived here.
func DeriveStatus(sorted []model.TimeRecord) model.Status {
	if len(sorted) == 0 {
		return model.StatusPending
	}
	if sorted[len(sorted)-1].Type == model.CheckIn {
		return model.StatusPending
	}

	hasIn, hasOut := false, false
	for _, r := range sorted {
		switch r.Type {
		case model.CheckIn:
			hasIn = true
		case model.CheckOut:
			hasOut = true
		}
	}
	if hasIn && hasOut {
		return model.StatusCompleted
	}
	return model.StatusPending
}

// NextMarkType is the UI hint for the next punch. It is not enforced.
func NextMarkType(sorted []model.TimeRecord) model.MarkType {
	if len(sorted) > 0 && sorted[len(sorted)-1].Type == model.CheckIn {
		return model.CheckOut
	}
	return model.CheckIn
}

// Recompute refreshes every record-derived field of a from records.
func Recompute(a *model.Attendance, records []model.TimeRecord, standardDay int) {
	sorted := SortRecords(records)
	a.TotalMinutes = TotalMinutes(sorted)
	a.OvertimeMinutes = OvertimeMinutes(a.TotalMinutes, standardDay)
	a.Status = DeriveStatus(sorted)
	a.Records = sorted
}
