// Package store contains the persistence layer. All reads and writes
// of user, code and task rows go through it, keeping the uniqueness
// and single-active-code invariants enforceable in one place.
package store

import (
	"context"
	"errors"
	"time"

	"taskhive/todo-api/model"

	"gorm.io/gorm"
)

// AccountStore is the contract for user and one-time-code persistence.
// Lookups return (nil, nil) when no row matches. Every operation is
// atomic with respect to the transaction it runs in.
type AccountStore interface {
	Insert(ctx context.Context, u *model.User) error
	FindConflict(ctx context.Context, username, email string) (*model.User, error)
	FindByLogin(ctx context.Context, identifier string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	ReplaceCode(ctx context.Context, userID string, code int) (*model.UserCode, error)
	FindCodeForUser(ctx context.Context, userID string) (*model.UserCode, error)
	DeleteCodesForUser(ctx context.Context, userID string) error
	UpdateFlags(ctx context.Context, userID string, isRegister, isConfirmed bool) error
	DeleteUnregisteredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

func (s *Accounts) Insert(ctx context.Context, u *model.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

// FindConflict returns an existing user that already claimed the
// username or the email, or nil if both are free
func (s *Accounts) FindConflict(ctx context.Context, username, email string) (*model.User, error) {
	var user model.User

	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &user, nil
}

// FindByLogin looks a user up by username or email, whichever matches
func (s *Accounts) FindByLogin(ctx context.Context, identifier string) (*model.User, error) {
	var user model.User

	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &user, nil
}

func (s *Accounts) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User

	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &user, nil
}

// ReplaceCode removes all prior codes for the user and stores a fresh
// one, inside a single transaction so a login can never leave two live
// codes behind
func (s *Accounts) ReplaceCode(ctx context.Context, userID string, code int) (*model.UserCode, error) {
	uc := &model.UserCode{
		UserID: userID,
		Code:   code,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("user_id = ?", userID).
			Delete(model.UserCode{}).
			Error; err != nil {
			return err
		}

		return tx.Create(uc).Error
	})
	if err != nil {
		return nil, err
	}

	return uc, nil
}

func (s *Accounts) FindCodeForUser(ctx context.Context, userID string) (*model.UserCode, error) {
	var uc model.UserCode

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		First(&uc).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &uc, nil
}

// DeleteCodesForUser is idempotent, deleting nothing is not an error
func (s *Accounts) DeleteCodesForUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(model.UserCode{}).
		Error
}

func (s *Accounts) UpdateFlags(ctx context.Context, userID string, isRegister, isConfirmed bool) error {
	return s.db.WithContext(ctx).
		Model(model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"is_register":  isRegister,
			"is_confirmed": isConfirmed,
		}).
		Error
}

// DeleteUnregisteredBefore bulk deletes users that never confirmed
// their registration and were created at or before cutoff. Returns
// the number of deleted rows
func (s *Accounts) DeleteUnregisteredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r := s.db.WithContext(ctx).
		Where("is_register = ? AND created_at <= ?", false, cutoff).
		Delete(model.User{})

	return r.RowsAffected, r.Error
}
