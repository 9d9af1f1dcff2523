package core

import (
	"axiapac.com/backoffice/core/models"
	"gorm.io/gorm"
)

// UserIDsWithRole lists active users holding role, optionally restricted to one area.
func UserIDsWithRole(db *gorm.DB, role string, areaID *uint) ([]uint, error) {
	var ids []uint

	query := db.Model(&models.User{}).
		Joins("JOIN user_roles ur ON ur.user_id = users.id").
		Joins("JOIN roles r ON r.id = ur.role_id").
		Where("r.name = ?", role).
		Where("users.active = ?", true)

	if areaID != nil {
		query = query.Where("users.area_id = ?", *areaID)
	}

	if err := query.Distinct().Pluck("users.id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// AreaManagersAndSuperAdmins is the default audience for attendance events raised by a user of areaID.
func AreaManagersAndSuperAdmins(db *gorm.DB, areaID *uint) ([]uint, error) {
	var ids []uint
	if areaID != nil {
		managers, err := UserIDsWithRole(db, models.RoleManager, areaID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, managers...)
	}

	admins, err := UserIDsWithRole(db, models.RoleSuperAdmin, nil)
	if err != nil {
		return nil, err
	}
	return append(ids, admins...), nil
}
