package identity

import (
	"context"
	"errors"

	"github.com/kajrofficep/cafeteria/internal/model"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// GormStore 是 Store 的 MySQL 实现。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建基于 gorm 的用户存储。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

func (s *GormStore) ByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

func (s *GormStore) ByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

func (s *GormStore) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormStore) Create(ctx context.Context, u *model.User) error {
	return mapDuplicate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) Save(ctx context.Context, u *model.User) error {
	return mapDuplicate(s.db.WithContext(ctx).Save(u).Error)
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// mapDuplicate 将 MySQL 1062（唯一索引冲突）映射为 ErrDuplicate。
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return ErrDuplicate
	}
	return err
}
