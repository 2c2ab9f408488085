package meal

import "time"

// Type 表示餐别。
type Type string

const (
	Breakfast Type = "breakfast" // 早餐
	Lunch     Type = "lunch"     // 午餐
	Dinner    Type = "dinner"    // 晚餐
)

// 各餐别当日可修改的截止时刻（分钟数，严格小于）。
// 早餐 07:00、午餐 11:00、晚餐 14:00 截止。
const (
	breakfastCutoffMinutes = 7 * 60
	lunchCutoffMinutes     = 11 * 60
	dinnerCutoffMinutes    = 14 * 60
)

// IsWithinWindow 判断在 now 时刻是否仍允许修改当日的指定餐别。
//
// 截止时刻本身视为已关闭：06:59 允许修改早餐，07:00 不允许。
// 该检查只对当日生效，未来日期的修改不受时刻限制。
func IsWithinWindow(t Type, now time.Time) bool {
	minutes := now.Hour()*60 + now.Minute()
	switch t {
	case Breakfast:
		return minutes < breakfastCutoffMinutes
	case Lunch:
		return minutes < lunchCutoffMinutes
	case Dinner:
		return minutes < dinnerCutoffMinutes
	}
	return false
}
