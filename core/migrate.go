package core

import (
	attendance "axiapac.com/backoffice/attendance/model"
	"axiapac.com/backoffice/core/models"
	notification "axiapac.com/backoffice/notification/model"
	"gorm.io/gorm"
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&models.Area{},
		&models.Permission{},
		&models.Role{},
		&models.User{},
		&attendance.Attendance{},
		&attendance.TimeRecord{},
		&notification.Notification{},
		&notification.PushSubscription{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// DefaultRoles are the roles every tenant starts with, and the permissions they grant.
var DefaultRoles = map[string][]string{
	models.RoleSuperAdmin: nil,
	models.RoleManager: {
		models.PermissionAttendanceManage,
		models.PermissionReportsView,
		models.PermissionReportsExport,
	},
}

// SeedRoles creates the missing DefaultRoles and grants their permissions. Running it again
// changes nothing.
func SeedRoles(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for name, permissions := range DefaultRoles {
			var role models.Role
			if err := tx.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
				return err
			}
			for _, p := range permissions {
				var perm models.Permission
				if err := tx.Where(models.Permission{Name: p}).FirstOrCreate(&perm).Error; err != nil {
					return err
				}
				if err := tx.Model(&role).Association("Permissions").Append(&perm); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
