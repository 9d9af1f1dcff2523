package security

import (
	"errors"

	"axiapac.com/backoffice/core/models"
	"gorm.io/gorm"
)

var ErrUnknownUser = errors.New("unknown or inactive user")

// AuthorizationContext is the caller's effective roles and permissions, computed once per
// request and passed to handlers explicitly.
type AuthorizationContext struct {
	UserID      uint
	UserName    string
	AreaID      *uint
	Roles       map[string]struct{}
	Permissions map[string]struct{}
	SuperAdmin  bool
}

func NewAuthorizationContext(user models.User) *AuthorizationContext {
	ac := &AuthorizationContext{
		UserID:      user.ID,
		UserName:    user.Name,
		AreaID:      user.AreaID,
		Roles:       make(map[string]struct{}),
		Permissions: make(map[string]struct{}),
	}
	for _, role := range user.Roles {
		ac.Roles[role.Name] = struct{}{}
		for _, p := range role.Permissions {
			ac.Permissions[p.Name] = struct{}{}
		}
	}
	ac.SuperAdmin = ac.HasRole(models.RoleSuperAdmin)
	return ac
}

// LoadAuthorizationContext reads userID's roles and their permissions.
func LoadAuthorizationContext(db *gorm.DB, userID uint) (*AuthorizationContext, error) {
	var user models.User
	err := db.Preload("Roles.Permissions").
		Where("id = ? AND active = ?", userID, true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return NewAuthorizationContext(user), nil
}

func (a *AuthorizationContext) HasRole(name string) bool {
	_, ok := a.Roles[name]
	return ok
}

func (a *AuthorizationContext) HasPermission(name string) bool {
	_, ok := a.Permissions[name]
	return ok
}

// Can is HasPermission with the super-admin override.
func (a *AuthorizationContext) Can(permission string) bool {
	return a.SuperAdmin || a.HasPermission(permission)
}

// CanManageAttendanceOf reports whether the caller may see or edit userID's attendance.
func (a *AuthorizationContext) CanManageAttendanceOf(userID uint) bool {
	return a.UserID == userID || a.Can(models.PermissionAttendanceManage)
}
