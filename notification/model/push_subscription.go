package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint string `gorm:"type:varchar(500);primaryKey" json:"endpoint"`
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	P256DH   string `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth     string `gorm:"not null" json:"auth"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PushSubscription) TableName() string {
	return "push_subscriptions"
}
