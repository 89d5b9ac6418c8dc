package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// reCountNumber 是量级数字主体：纯数字，或按三位一组的千分位；可带小数部分。
var reCountNumber = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?$`)

// ParseCount 做量级后缀归一化：
// - "1.2K" -> 1200
// - "3M"   -> 3000000
// - "12,345" -> 12345
//
// 约束：
// - 后缀大小写不敏感；带后缀时乘积四舍五入到整数
// - 千分位必须三位一组（"1,2,3" 视为格式错误）；不接受指数/符号写法
// - 结果超出 int64 视为格式错误
// - 空串/格式错误返回 ok=false（由调用方决定默认值）
func ParseCount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	var mult float64
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1_000
	case 'M', 'm':
		mult = 1_000_000
	}
	if mult > 0 {
		num := strings.TrimSpace(s[:len(s)-1])
		if !reCountNumber.MatchString(num) {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		p := math.Round(f * mult)
		if p >= 1<<63 {
			return 0, false
		}
		return int64(p), true
	}

	if !reCountNumber.MatchString(s) || strings.Contains(s, ".") {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

var (
	reHours   = regexp.MustCompile(`(\d+)\s*h`)
	reMinutes = regexp.MustCompile(`(\d+)\s*m`)
)

// ParseDuration 从一段文本里读出时长（分钟）。
// 只认“数字 + h/m”标记：同时有时分为 h*60+m，只有小时为 h*60，只有分钟为 m。
func ParseDuration(s string) (int, bool) {
	hm := reHours.FindStringSubmatch(s)
	mm := reMinutes.FindStringSubmatch(s)
	if hm == nil && mm == nil {
		return 0, false
	}
	total := 0
	if hm != nil {
		h, err := strconv.Atoi(hm[1])
		if err != nil {
			return 0, false
		}
		total += h * 60
	}
	if mm != nil {
		m, err := strconv.Atoi(mm[1])
		if err != nil {
			return 0, false
		}
		total += m
	}
	return total, true
}

// ParseBudget 取第一个空白分隔的 token，去掉货币前缀与千分位后按整数解析。
// 例如 "$1,000,000 (estimated)" -> 1000000。
func ParseBudget(s string) (int64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	tok := strings.TrimLeftFunc(fields[0], func(r rune) bool { return !unicode.IsDigit(r) })
	tok = strings.ReplaceAll(tok, ",", "")
	if tok == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseAspectRatio 读取 "2.39 : 1" 中冒号前的浮点数。
func ParseAspectRatio(s string) (float64, bool) {
	head, _, _ := strings.Cut(s, ":")
	return parseFloat(head)
}

// parseYear 只接受纯 ASCII 数字。
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
