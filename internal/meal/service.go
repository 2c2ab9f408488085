package meal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kajrofficep/cafeteria/internal/model"
)

// HorizonDays 是允许提前订餐的天数：可编辑区间为 [今天, 今天+3]。
const HorizonDays = 3

// 默认单价（最小货币单位）。
const (
	DefaultBreakfastRate = 100
	DefaultLunchRate     = 150
	DefaultDinnerRate    = 200
)

// ErrOutOfRange 表示订餐日期超出可编辑区间。
var ErrOutOfRange = errors.New("meal date outside editable range")

// WindowClosedError 表示当日某个餐别已过修改截止时刻。
type WindowClosedError struct {
	Meal Type
}

func (e *WindowClosedError) Error() string {
	return fmt.Sprintf("%s window closed", e.Meal)
}

// Selections 是三个餐别的勾选状态。
type Selections struct {
	Breakfast bool
	Lunch     bool
	Dinner    bool
}

// Rates 是三个餐别的单价，为 0 的项使用默认单价。
type Rates struct {
	Breakfast int
	Lunch     int
	Dinner    int
}

// Store 抽象订餐记录的持久化。
//
// Upsert 必须以原子方式完成"按 (userID, date) 查找、不存在则新建、
// 应用 apply、写回"的整个序列：两个并发调用不得各自插入一行。
type Store interface {
	Upsert(ctx context.Context, userID uint, date time.Time, apply func(m *model.Meal)) (*model.Meal, error)
	ListRange(ctx context.Context, userID uint, from, to time.Time) ([]model.Meal, error)
}

// Service 校验并执行订餐的创建与更新。
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService 创建订餐服务。
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Upsert 为 userID 在 date 当天创建或更新订餐记录。
//
// 校验顺序：
//  1. 日期必须落在 [今天, 今天+HorizonDays]，否则返回 ErrOutOfRange。
//  2. 若 date 为今天，按早餐、午餐、晚餐的顺序检查勾选项的修改窗口，
//     第一个已关闭的餐别以 WindowClosedError 返回，记录不做任何修改。
//
// 校验全部通过后才触达存储，失败的请求绝不会留下半更新的记录。
func (s *Service) Upsert(ctx context.Context, userID uint, date time.Time, sel Selections, rates Rates) (*model.Meal, error) {
	now := s.now()
	today := DateOf(now)
	target := DateOf(date)

	if target.Before(today) || target.After(today.AddDate(0, 0, HorizonDays)) {
		return nil, ErrOutOfRange
	}

	if target.Equal(today) {
		if sel.Breakfast && !IsWithinWindow(Breakfast, now) {
			return nil, &WindowClosedError{Meal: Breakfast}
		}
		if sel.Lunch && !IsWithinWindow(Lunch, now) {
			return nil, &WindowClosedError{Meal: Lunch}
		}
		if sel.Dinner && !IsWithinWindow(Dinner, now) {
			return nil, &WindowClosedError{Meal: Dinner}
		}
	}

	if rates.Breakfast <= 0 {
		rates.Breakfast = DefaultBreakfastRate
	}
	if rates.Lunch <= 0 {
		rates.Lunch = DefaultLunchRate
	}
	if rates.Dinner <= 0 {
		rates.Dinner = DefaultDinnerRate
	}

	m, err := s.store.Upsert(ctx, userID, target, func(m *model.Meal) {
		m.Breakfast = sel.Breakfast
		m.Lunch = sel.Lunch
		m.Dinner = sel.Dinner
		m.BreakfastRate = rates.Breakfast
		m.LunchRate = rates.Lunch
		m.DinnerRate = rates.Dinner
		m.RecalculateTotal()
	})
	if err != nil {
		return nil, fmt.Errorf("persist meal: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("meal upserted",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("date", target.Format("2006-01-02")),
			slog.Int("total_cost", m.TotalCost),
		)
	}
	return m, nil
}

// ListUpcoming 返回 userID 在可编辑区间内（今天到今天+HorizonDays）
// 的订餐记录，按日期升序。
func (s *Service) ListUpcoming(ctx context.Context, userID uint) ([]model.Meal, error) {
	today := DateOf(s.now())
	return s.store.ListRange(ctx, userID, today, today.AddDate(0, 0, HorizonDays))
}

// DateOf 截取 t 的日期部分（同时区零点）。
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
