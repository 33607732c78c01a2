package store

import (
	"path/filepath"
	"testing"

	"taskhive/todo-api/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(model.User{}, model.UserCode{}, model.Task{}))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, u *model.User) *model.User {
	t.Helper()

	if u.PasswordHash == "" {
		u.PasswordHash = "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"
	}

	require.NoError(t, db.Create(u).Error)
	return u
}
