package core

import (
	"errors"
	"time"

	"axiapac.com/backoffice/notification/model"
	"axiapac.com/backoffice/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotificationNotFound = errors.New("notification not found")

// ListForUser returns one page of userID's inbox, newest first.
func ListForUser(db *gorm.DB, userID uint, unreadOnly bool, page, perPage int) ([]model.Notification, utils.PageMeta, error) {
	page, perPage = utils.NormalizePage(page, perPage)

	query := db.Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}

	notifications := make([]model.Notification, 0)
	if err := query.Order("created_at DESC").Order("id").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&notifications).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}

	return notifications, utils.NewPageMeta(total, page, perPage), nil
}

func UnreadCount(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// MarkRead stamps one of userID's notifications as read. Marking twice keeps the first stamp.
func MarkRead(db *gorm.DB, userID uint, id uuid.UUID, now time.Time) (*model.Notification, error) {
	var n model.Notification
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}

	if n.ReadAt == nil {
		if err := db.Model(&n).Update("read_at", now).Error; err != nil {
			return nil, err
		}
		n.ReadAt = &now
	}
	return &n, nil
}

func MarkAllRead(db *gorm.DB, userID uint, now time.Time) (int64, error) {
	result := db.Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now)
	return result.RowsAffected, result.Error
}

// SaveSubscription creates or re-points a browser subscription at userID.
func SaveSubscription(db *gorm.DB, sub *model.PushSubscription) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "updated_at"}),
	}).Create(sub).Error
}

func DeleteSubscription(db *gorm.DB, userID uint, endpoint string) error {
	return db.Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{}).Error
}
