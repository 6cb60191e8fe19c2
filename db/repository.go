package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository defines decoupled operations for the task cache.
type TaskRepository interface {
	Put(ctx context.Context, t Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context) ([]Task, error)
	SearchByTitle(ctx context.Context, titleSubstr string) ([]Task, error)
	Clear(ctx context.Context) error
}

// TokenRepository defines decoupled operations for token persistence.
type TokenRepository interface {
	Get(ctx context.Context) (*Token, error)
	Upsert(ctx context.Context, token *Token) error
	Clear(ctx context.Context) error
}

// gormTaskRepo is a GORM-backed implementation of TaskRepository.
// Use constructor NewTaskRepository to obtain an instance.
type gormTaskRepo struct{ db *gorm.DB }

// gormTokenRepo is a GORM-backed implementation of TokenRepository.
// Use constructor NewTokenRepository to obtain an instance.
type gormTokenRepo struct{ db *gorm.DB }

// NewTaskRepository creates a TaskRepository. Accepts *gorm.DB to avoid global access.
func NewTaskRepository(db *gorm.DB) TaskRepository { return &gormTaskRepo{db: db} }

// NewTokenRepository creates a TokenRepository. Accepts *gorm.DB to avoid global access.
func NewTokenRepository(db *gorm.DB) TokenRepository { return &gormTokenRepo{db: db} }

var errNotInitialized = fmt.Errorf("repository not initialized")

func (r *gormTaskRepo) Put(ctx context.Context, t Task) error {
	if r.db == nil {
		return errNotInitialized
	}
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&t).Error
}

func (r *gormTaskRepo) GetByID(ctx context.Context, id string) (*Task, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var task Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepo) List(ctx context.Context) ([]Task, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var tasks []Task
	if err := r.db.WithContext(ctx).Order("title").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormTaskRepo) SearchByTitle(ctx context.Context, titleSubstr string) ([]Task, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var tasks []Task
	if err := r.db.WithContext(ctx).Where("title LIKE ?", "%"+titleSubstr+"%").Order("title").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *gormTaskRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Task{}).Error
}

func (r *gormTokenRepo) Get(ctx context.Context) (*Token, error) {
	if r.db == nil {
		return nil, errNotInitialized
	}
	var token Token
	err := r.db.WithContext(ctx).First(&token, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *gormTokenRepo) Upsert(ctx context.Context, token *Token) error {
	if r.db == nil {
		return errNotInitialized
	}
	token.ID = 1
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "refresh_cookie", "token_type", "user_id", "email", "updated_at"}),
	}).Create(token).Error
}

func (r *gormTokenRepo) Clear(ctx context.Context) error {
	if r.db == nil {
		return errNotInitialized
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&Token{}).Error
}
