package model

import "time"

type MarkType string

const (
	CheckIn  MarkType = "check_in"
	CheckOut MarkType = "check_out"
)

func (t MarkType) Valid() bool {
	return t == CheckIn || t == CheckOut
}

// TimeRecord is a single punch. Records are never edited; an administrator may delete one.
type TimeRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AttendanceID uint      `gorm:"not null;index" json:"attendance_id"`
	Type         MarkType  `gorm:"type:varchar(16);not null" json:"type"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`
	Reason       string    `gorm:"type:varchar(255)" json:"mark_reason"`
	Location     *string   `gorm:"type:varchar(255)" json:"location"`
	IPAddress    *string   `gorm:"type:varchar(64)" json:"ip_address"`
	Notes        *string   `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"<-:create" json:"created_at"`
}

func (TimeRecord) TableName() string {
	return "attendance_records"
}
