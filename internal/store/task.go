package store

import (
	"context"
	"errors"

	"taskhive/todo-api/model"

	"gorm.io/gorm"
)

// TaskStore is the contract for task card persistence. Every operation
// is scoped to the owning user, a card that belongs to someone else is
// indistinguishable from one that doesn't exist.
type TaskStore interface {
	Create(ctx context.Context, t *model.Task) error
	FindForUser(ctx context.Context, userID, taskID string) (*model.Task, error)
	ListForUser(ctx context.Context, userID string, q ListQuery) ([]model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	DeleteForUser(ctx context.Context, userID, taskID string) (int64, error)
}

// ListQuery carries pagination and ordering for bulk fetches. Order
// must be a whitelisted SQL fragment, the handler validates it
type ListQuery struct {
	Offset int
	Limit  int
	Order  string
}

type Tasks struct {
	db *gorm.DB
}

func NewTasks(db *gorm.DB) *Tasks {
	return &Tasks{db: db}
}

func (s *Tasks) Create(ctx context.Context, t *model.Task) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *Tasks) FindForUser(ctx context.Context, userID, taskID string) (*model.Task, error) {
	var task model.Task

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return &task, nil
}

func (s *Tasks) ListForUser(ctx context.Context, userID string, q ListQuery) ([]model.Task, error) {
	var tasks []model.Task

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(q.Order).
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&tasks).
		Error
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

func (s *Tasks) Update(ctx context.Context, t *model.Task) error {
	return s.db.WithContext(ctx).
		Model(model.Task{}).
		Where("user_id = ? AND id = ?", t.UserID, t.ID).
		Updates(map[string]any{
			"title":       t.Title,
			"description": t.Description,
			"status":      t.Status,
		}).
		Error
}

// DeleteForUser returns the number of deleted rows so the caller can
// tell a missing card apart from a successful delete
func (s *Tasks) DeleteForUser(ctx context.Context, userID, taskID string) (int64, error) {
	r := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, taskID).
		Delete(model.Task{})

	return r.RowsAffected, r.Error
}
