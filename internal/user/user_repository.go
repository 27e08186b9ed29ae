package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
)

const statusActive = "active"

type UserRepository interface {
	CreateUser(ctx context.Context, user *dbmysql.User) error
	GetUserByID(ctx context.Context, userID uint64) (*dbmysql.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*dbmysql.User, error)
	CheckUserExists(ctx context.Context, handle string) (bool, error)
	// Exists reports whether an active user with userID exists.
	Exists(ctx context.Context, userID uint64) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *dbmysql.User) error {
	if user.Status == "" {
		user.Status = statusActive
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetUserByID(ctx context.Context, userID uint64) (*dbmysql.User, error) {
	var user dbmysql.User
	err := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, statusActive).First(&user).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", userID))
	}
	return &user, nil
}

func (r *userRepository) GetUserByHandle(ctx context.Context, handle string) (*dbmysql.User, error) {
	var user dbmysql.User
	err := r.db.WithContext(ctx).Where("handle = ? AND status = ?", handle, statusActive).First(&user).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %q", handle))
	}
	return &user, nil
}

func (r *userRepository) CheckUserExists(ctx context.Context, handle string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&dbmysql.User{}).Where("handle = ?", handle).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Exists(ctx context.Context, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&dbmysql.User{}).
		Where("user_id = ? AND status = ?", userID, statusActive).
		Count(&count).Error
	return count > 0, err
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return err
}
