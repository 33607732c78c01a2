package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"taskhive/todo-api/internal/store"
	"taskhive/todo-api/model"
	"taskhive/todo-api/pkg/security"
	"taskhive/todo-api/validators"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeQueue records enqueued tasks instead of talking to Redis
type fakeQueue struct {
	tasks []*asynq.Task
}

func (f *fakeQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func newTestAuth(t *testing.T) (*Auth, *store.Accounts, *fakeQueue, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.User{}, model.UserCode{}, model.Task{}))

	accounts := store.NewAccounts(db)
	queue := &fakeQueue{}
	auth := NewAuth(accounts, security.New(), security.NewTokenCodec("test-secret", 30*time.Minute), queue)

	return auth, accounts, queue, db
}

func TestRegister(t *testing.T) {
	auth, accounts, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.NotEqual(t, "Abcd123!", user.PasswordHash)
	assert.False(t, user.IsRegister)
	assert.False(t, user.IsConfirmed)

	stored, err := accounts.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsRegister)
	assert.False(t, stored.IsConfirmed)
}

func TestRegisterWeakPassword(t *testing.T) {
	auth, accounts, _, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice", "alice@x.com", "short1!")
	assert.ErrorIs(t, err, validators.ErrPasswordTooShort)

	_, err = auth.Register(ctx, "alice", "alice@x.com", "abcd1234!")
	assert.ErrorIs(t, err, validators.ErrPasswordTooWeak)

	// Nothing was written
	got, err := accounts.FindByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRegisterDuplicates(t *testing.T) {
	auth, _, _, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "alice", "fresh@x.com", "Abcd123!")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = auth.Register(ctx, "fresh", "alice@x.com", "Abcd123!")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	// Username wins when both collide
	_, err = auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestLoginInvalidCredentials(t *testing.T) {
	auth, _, queue, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	// Unknown user and wrong password are indistinguishable
	_, err = auth.Login(ctx, "nobody", "Abcd123!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "alice", "Wrong123!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Empty(t, queue.tasks)
}

func TestLoginIssuesCodeAndEnqueuesMail(t *testing.T) {
	auth, accounts, queue, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	got, err := auth.Login(ctx, "alice", "Abcd123!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	uc, err := accounts.FindCodeForUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, uc)
	assert.GreaterOrEqual(t, uc.Code, 100000)
	assert.LessOrEqual(t, uc.Code, 999999)

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, TypeCodeMail, queue.tasks[0].Type())

	var payload CodeMailPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, "alice@x.com", payload.Recipient)
	assert.Contains(t, payload.Body, strconv.Itoa(uc.Code))

	// Login by email works the same and doesn't touch the flags
	_, err = auth.Login(ctx, "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	stored, err := accounts.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRegister)
	assert.False(t, stored.IsConfirmed)
}

func TestLoginReplacesPriorCode(t *testing.T) {
	auth, accounts, queue, db := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "alice", "Abcd123!")
	require.NoError(t, err)

	first, err := accounts.FindCodeForUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = auth.Login(ctx, "alice", "Abcd123!")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(model.UserCode{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	second, err := accounts.FindCodeForUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	// Only the second code verifies now
	if first.Code != second.Code {
		_, err = auth.VerifyCode(ctx, user.ID, first.Code)
		assert.ErrorIs(t, err, ErrCodeInvalid)
	}

	token, err := auth.VerifyCode(ctx, user.ID, second.Code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	assert.Len(t, queue.tasks, 2)
}

func TestVerifyCodeSuccess(t *testing.T) {
	auth, accounts, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "alice", "Abcd123!")
	require.NoError(t, err)

	uc, err := accounts.FindCodeForUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, uc)

	token, err := auth.VerifyCode(ctx, user.ID, uc.Code)
	require.NoError(t, err)

	parsedID, _, err := auth.Tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsedID)

	stored, err := accounts.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRegister)
	assert.True(t, stored.IsConfirmed)

	// The code was consumed
	gone, err := accounts.FindCodeForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestVerifyCodeNoCodeIssued(t *testing.T) {
	auth, _, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	_, err = auth.VerifyCode(ctx, user.ID, 123456)
	assert.ErrorIs(t, err, ErrNoCodeIssued)
}

func TestVerifyCodeMismatch(t *testing.T) {
	auth, accounts, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "alice", "Abcd123!")
	require.NoError(t, err)

	uc, err := accounts.FindCodeForUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, uc)

	wrong := uc.Code + 1
	if wrong > 999999 {
		wrong = 100000
	}

	_, err = auth.VerifyCode(ctx, user.ID, wrong)
	assert.ErrorIs(t, err, ErrCodeInvalid)

	// Rejection mutated nothing
	stored, err := accounts.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRegister)

	still, err := accounts.FindCodeForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestVerifyCodeExpiry(t *testing.T) {
	auth, _, _, db := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	// Just inside the window
	require.NoError(t, db.Create(&model.UserCode{
		UserID:    user.ID,
		Code:      123456,
		CreatedAt: time.Now().Add(-CodeTTL + time.Second),
	}).Error)

	token, err := auth.VerifyCode(ctx, user.ID, 123456)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Just past the window, the matching value no longer helps
	require.NoError(t, db.Create(&model.UserCode{
		UserID:    user.ID,
		Code:      654321,
		CreatedAt: time.Now().Add(-CodeTTL - time.Second),
	}).Error)

	_, err = auth.VerifyCode(ctx, user.ID, 654321)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestVerifyCodeRepeatKeepsFlags(t *testing.T) {
	auth, accounts, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "alice", "Abcd123!")
	require.NoError(t, err)

	uc, err := accounts.FindCodeForUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, uc)

	_, err = auth.VerifyCode(ctx, user.ID, uc.Code)
	require.NoError(t, err)

	// The second attempt reuses the consumed code and fails
	_, err = auth.VerifyCode(ctx, user.ID, uc.Code)
	assert.ErrorIs(t, err, ErrCodeInvalid)

	// But the flags stay flipped
	stored, err := accounts.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRegister)
	assert.True(t, stored.IsConfirmed)
}

// brokenDeleteAccounts fails the code delete so the acceptance path
// errors out between its two writes
type brokenDeleteAccounts struct {
	store.AccountStore
}

func (b *brokenDeleteAccounts) DeleteCodesForUser(ctx context.Context, userID string) error {
	return assert.AnError
}

func TestVerifyCodeFailedConsumeKeepsUnconfirmed(t *testing.T) {
	auth, accounts, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@x.com", "Abcd123!")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "alice", "Abcd123!")
	require.NoError(t, err)

	uc, err := accounts.FindCodeForUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, uc)

	auth.Accounts = &brokenDeleteAccounts{AccountStore: accounts}

	_, err = auth.VerifyCode(ctx, user.ID, uc.Code)
	require.Error(t, err)

	// The flags never flipped, the account is still retryable
	stored, err := accounts.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRegister)
	assert.False(t, stored.IsConfirmed)

	// With the store healthy again the same code still verifies
	auth.Accounts = accounts

	token, err := auth.VerifyCode(ctx, user.ID, uc.Code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	stored, err = accounts.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRegister)
	assert.True(t, stored.IsConfirmed)
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 64; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, 100000)
		assert.LessOrEqual(t, code, 999999)
	}
}
