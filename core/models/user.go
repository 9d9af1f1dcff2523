package models

import "time"

const (
	RoleSuperAdmin = "super-admin"
	RoleManager    = "manager"
)

const (
	PermissionAttendanceManage = "attendance.manage"
	PermissionReportsView      = "reports.view"
	PermissionReportsExport    = "reports.export"
)

type Area struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(120);not null" json:"name"`
}

func (Area) TableName() string {
	return "areas"
}

type User struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	Name   string  `gorm:"type:varchar(160);not null;index" json:"name"`
	Email  *string `gorm:"type:varchar(190);uniqueIndex" json:"email"`
	AreaID *uint   `gorm:"index" json:"area_id"`
	Active bool    `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Area  *Area  `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	Roles []Role `gorm:"many2many:user_roles;" json:"-"`
}

func (User) TableName() string {
	return "users"
}

type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(80);uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

type Permission struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(120);uniqueIndex;not null" json:"name"`
}

func (Permission) TableName() string {
	return "permissions"
}
