package index

import (
	"regexp"
	"time"
)

// DateLayout 是所有分桶日期使用的格式
const DateLayout = "2006-01-02"

// 只看形状，不校验月份和天数，用于区分"像日期但非法"的键和完全无关的键
var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate 判断字符串是否为合法的YYYY-MM-DD日期
func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// ParseDate 严格解析YYYY-MM-DD日期，失败时返回*InvalidDateError
func ParseDate(s string) (time.Time, error) {
	if !dateShape.MatchString(s) {
		return time.Time{}, &InvalidDateError{Date: s}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &InvalidDateError{Date: s}
	}
	return t, nil
}

func dateShaped(s string) bool {
	return dateShape.MatchString(s)
}
