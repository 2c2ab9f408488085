package model

import (
	"time"
)

// Meal 表示某个用户在某个日期的订餐记录。
//
// 每个 (user_id, meal_date) 组合至多存在一条记录，由复合唯一索引保证。
// TotalCost 是派生字段，每次写入前由 RecalculateTotal 重新计算，
// 不允许外部直接设置。
type Meal struct {
	ID        uint      `gorm:"primaryKey"` // 记录 ID
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	UserID   uint      `gorm:"not null;uniqueIndex:uniq_user_meal_date"`           // 所属用户 ID
	User     User      `gorm:"foreignKey:UserID"`                                  // 所属用户
	MealDate time.Time `gorm:"type:date;not null;uniqueIndex:uniq_user_meal_date"` // 订餐日期

	Breakfast bool `gorm:"default:false"` // 是否订早餐
	Lunch     bool `gorm:"default:false"` // 是否订午餐
	Dinner    bool `gorm:"default:false"` // 是否订晚餐

	BreakfastRate int `gorm:"default:100"` // 早餐单价（最小货币单位）
	LunchRate     int `gorm:"default:150"` // 午餐单价
	DinnerRate    int `gorm:"default:200"` // 晚餐单价

	TotalCost int `gorm:"default:0"` // 当日总费用（派生）
}

// RecalculateTotal 根据勾选项与单价重新计算当日总费用。
func (m *Meal) RecalculateTotal() {
	total := 0
	if m.Breakfast {
		total += m.BreakfastRate
	}
	if m.Lunch {
		total += m.LunchRate
	}
	if m.Dinner {
		total += m.DinnerRate
	}
	m.TotalCost = total
}
