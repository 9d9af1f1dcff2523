// Package testdb opens migrated in-memory SQLite databases for tests.
package testdb

import (
	"fmt"
	"strings"
	"testing"

	"axiapac.com/backoffice/core"
	"axiapac.com/backoffice/core/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh database private to t. The pool holds a single connection so
// that every session sees the same in-memory schema.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, core.Migrate(db))
	return db
}

func Area(t testing.TB, db *gorm.DB, name string) models.Area {
	t.Helper()
	area := models.Area{Name: name}
	require.NoError(t, db.Create(&area).Error)
	return area
}

// Role returns the named role, creating it and granting permissions when missing.
func Role(t testing.TB, db *gorm.DB, name string, permissions ...string) models.Role {
	t.Helper()
	var role models.Role
	require.NoError(t, db.Where(models.Role{Name: name}).FirstOrCreate(&role).Error)

	for _, p := range permissions {
		var perm models.Permission
		require.NoError(t, db.Where(models.Permission{Name: p}).FirstOrCreate(&perm).Error)
		require.NoError(t, db.Model(&role).Association("Permissions").Append(&perm))
	}
	return role
}

// User creates an active user in areaID (nil for none) holding the named roles.
func User(t testing.TB, db *gorm.DB, name string, areaID *uint, roles ...string) models.User {
	t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
	user := models.User{Name: name, Email: &email, AreaID: areaID, Active: true}
	require.NoError(t, db.Create(&user).Error)

	for _, r := range roles {
		role := Role(t, db, r)
		require.NoError(t, db.Model(&user).Association("Roles").Append(&role))
	}
	return user
}
