package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"taskhive/todo-api/internal/store"
	"taskhive/todo-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type failingAccounts struct {
	store.AccountStore
}

func (f *failingAccounts) DeleteUnregisteredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, assert.AnError
}

func TestReaperDeletesOnlyStaleUnregistered(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.User{}, model.UserCode{}, model.Task{}))

	accounts := store.NewAccounts(db)
	ctx := context.Background()

	twoDaysAgo := time.Now().UTC().Add(-48 * time.Hour)

	require.NoError(t, db.Create(&model.User{
		ID: "registered", Username: "a", Email: "a@x.com", PasswordHash: "h",
		IsRegister: true, CreatedAt: twoDaysAgo,
	}).Error)
	require.NoError(t, db.Create(&model.User{
		ID: "abandoned", Username: "b", Email: "b@x.com", PasswordHash: "h",
		CreatedAt: twoDaysAgo,
	}).Error)
	require.NoError(t, db.Create(&model.User{
		ID: "recent", Username: "c", Email: "c@x.com", PasswordHash: "h",
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}).Error)

	r := NewReaper(accounts)
	require.NoError(t, r.HandleAccountReapTask(ctx, NewAccountReapTask()))

	gone, err := accounts.FindByID(ctx, "abandoned")
	require.NoError(t, err)
	assert.Nil(t, gone)

	for _, id := range []string{"registered", "recent"} {
		kept, err := accounts.FindByID(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, kept, id)
	}

	// Running again against already reaped data is a no-op
	require.NoError(t, r.HandleAccountReapTask(ctx, NewAccountReapTask()))
}

func TestReaperSwallowsStoreErrors(t *testing.T) {
	r := NewReaper(&failingAccounts{})

	// A failed pass must not bubble up, the next scheduled tick retries
	assert.NoError(t, r.HandleAccountReapTask(context.Background(), NewAccountReapTask()))
}
