// Package service contains the business logic between the HTTP layer
// and the stores: the account/OTP lifecycle, the transactional mail
// task and the unregistered account reaper.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"taskhive/todo-api/internal/store"
	"taskhive/todo-api/model"
	"taskhive/todo-api/pkg/security"
	"taskhive/todo-api/validators"

	"github.com/hibiken/asynq"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrDuplicateUsername  = errors.New("username is already taken")
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoCodeIssued       = errors.New("no confirmation code was issued")
	ErrCodeInvalid        = errors.New("confirmation code is invalid or expired")
)

// CodeTTL is how long a login confirmation code stays valid, measured
// from its creation timestamp
const CodeTTL = 5 * time.Minute

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Enqueuer is the slice of asynq.Client the auth service needs. Login
// depends only on a job being accepted, never on its delivery
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Auth drives the registration, login and code verification lifecycle.
// It never touches the database directly, only through the account
// store
type Auth struct {
	Accounts store.AccountStore
	Argon    *security.ArgonHash
	Tokens   *security.TokenCodec
	Queue    Enqueuer
}

func NewAuth(accounts store.AccountStore, argon *security.ArgonHash, tokens *security.TokenCodec, queue Enqueuer) *Auth {
	return &Auth{
		Accounts: accounts,
		Argon:    argon,
		Tokens:   tokens,
		Queue:    queue,
	}
}

// Register creates a new unconfirmed account. The username is checked
// for duplicates before the email. The returned user carries the hash
// only in the field that never serializes
func (a *Auth) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if err := validators.PasswordValidator(password); err != nil {
		return nil, err
	}

	existing, err := a.Accounts.FindConflict(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing user, %w", err)
	}

	if existing != nil {
		if existing.Username == username {
			return nil, ErrDuplicateUsername
		}

		return nil, ErrDuplicateEmail
	}

	hash, err := a.Argon.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	id, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	user := &model.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	if err := a.Accounts.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user, %w", err)
	}

	return user, nil
}

// Login checks credentials, replaces any outstanding confirmation code
// with a fresh one and enqueues the mail job carrying it. A missing
// account and a wrong password both come back as ErrInvalidCredentials
// so the caller can't tell which part was wrong. The user's flags are
// not touched.
func (a *Auth) Login(ctx context.Context, identifier, password string) (*model.User, error) {
	user, err := a.Accounts.FindByLogin(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user, %w", err)
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := a.Argon.VerifyPasswd(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation code, %w", err)
	}

	if _, err := a.Accounts.ReplaceCode(ctx, user.ID, code); err != nil {
		return nil, fmt.Errorf("failed to store confirmation code, %w", err)
	}

	task, err := NewCodeMailTask(user.Email, code)
	if err != nil {
		return nil, fmt.Errorf("failed to build mail task, %w", err)
	}

	if _, err := a.Queue.Enqueue(task); err != nil {
		return nil, fmt.Errorf("failed to enqueue mail task, %w", err)
	}

	return user, nil
}

// VerifyCode checks the submitted code against the user's outstanding
// one. On success both account flags flip to true, the code rows are
// consumed and a session token is minted. On rejection nothing is
// mutated.
func (a *Auth) VerifyCode(ctx context.Context, userID string, code int) (string, error) {
	uc, err := a.Accounts.FindCodeForUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to look up confirmation code, %w", err)
	}

	if uc == nil {
		user, err := a.Accounts.FindByID(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("failed to look up user, %w", err)
		}

		// An already confirmed user had a code once, it was consumed
		// by the verification that confirmed them
		if user != nil && user.IsConfirmed {
			return "", ErrCodeInvalid
		}

		return "", ErrNoCodeIssued
	}

	if uc.Code != code || time.Now().After(uc.CreatedAt.Add(CodeTTL)) {
		return "", ErrCodeInvalid
	}

	token, err := a.Tokens.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token, %w", err)
	}

	// The flags flip last. A failure between the two writes leaves the
	// account unconfirmed with no live code, so a fresh login issues a
	// new one and verification can be retried
	if err := a.Accounts.DeleteCodesForUser(ctx, userID); err != nil {
		return "", fmt.Errorf("failed to consume confirmation code, %w", err)
	}

	if err := a.Accounts.UpdateFlags(ctx, userID, true, true); err != nil {
		return "", fmt.Errorf("failed to update account flags, %w", err)
	}

	return token, nil
}

// generateCode draws a 6 digit code uniformly from [100000, 999999]
func generateCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, err
	}

	return int(n.Int64()) + 100000, nil
}
