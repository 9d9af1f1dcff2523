package model

import (
	"time"

	"axiapac.com/backoffice/core/models"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusAbsent    Status = "absent"
	StatusLate      Status = "late"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// Attendance is the per user, per calendar day aggregate of the day's TimeRecords.
// TotalMinutes, OvertimeMinutes and the derived Status are recomputed from Records after
// every insert or delete; LateMinutes and IsAbsent are only ever set by an administrator.
type Attendance struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	UserID          uint    `gorm:"not null;uniqueIndex:idx_attendance_user_date" json:"user_id"`
	Date            string  `gorm:"type:varchar(10);not null;uniqueIndex:idx_attendance_user_date;index" json:"date"`
	TotalMinutes    int     `gorm:"not null;default:0" json:"total_minutes"`
	OvertimeMinutes int     `gorm:"not null;default:0" json:"overtime_minutes"`
	LateMinutes     int     `gorm:"not null;default:0" json:"late_minutes"`
	Status          Status  `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	IsAbsent        bool    `gorm:"not null;default:false" json:"is_absent"`
	Notes           *string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"<-:create" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User    *models.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Records []TimeRecord `gorm:"foreignKey:AttendanceID" json:"records"`
}

func (Attendance) TableName() string {
	return "attendances"
}

// UserName is the owner's display name, or "" when User was not loaded.
func (a Attendance) UserName() string {
	if a.User == nil {
		return ""
	}
	return a.User.Name
}
