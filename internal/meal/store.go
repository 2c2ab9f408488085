package meal

import (
	"context"
	"errors"
	"time"

	"github.com/kajrofficep/cafeteria/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 是 Store 的 MySQL 实现。
//
// Upsert 的读-改-写序列包在一个事务里，并对命中的行加 FOR UPDATE 锁；
// 配合 (user_id, meal_date) 复合唯一索引，保证并发调用不会插入重复行。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建基于 gorm 的订餐存储。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Upsert(ctx context.Context, userID uint, date time.Time, apply func(m *model.Meal)) (*model.Meal, error) {
	var out *model.Meal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Meal
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND meal_date = ?", userID, date).
			First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m = model.Meal{UserID: userID, MealDate: date}
		} else if err != nil {
			return err
		}

		apply(&m)

		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		out = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) ListRange(ctx context.Context, userID uint, from, to time.Time) ([]model.Meal, error) {
	meals := []model.Meal{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND meal_date BETWEEN ? AND ?", userID, from, to).
		Order("meal_date ASC").
		Find(&meals).Error
	if err != nil {
		return nil, err
	}
	return meals, nil
}
