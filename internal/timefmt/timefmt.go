// 包 timefmt 将订阅中的各种时间字符串归一化为 UTC+8 的 "YYYY-MM-DD HH:MM"。
// 无时区信息的时间按 UTC 处理；无法解析时返回空串，不做任何填充。
package timefmt

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"go-friend-circle/internal/logx"
)

// Layout 为归一化后的时间格式。
const Layout = "2006-01-02 15:04"

// Zone 为固定的 UTC+8 时区（不依赖系统 tzdata）。
var Zone = time.FixedZone("CST", 8*60*60)

// 兜底格式：dateparse 失败后依次尝试。
var fallbackLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 GMT",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Format 解析任意时间字符串并格式化为 Layout，失败返回 ""。
func Format(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return FromTime(t)
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return FromTime(t)
		}
	}
	logx.Warnf("无法解析时间字符串：%s", raw)
	return ""
}

// FromTime 将已解析的时间转换到 UTC+8 并格式化；零值返回 ""。
func FromTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Zone).Format(Layout)
}

// Now 返回 UTC+8 下的当前时间字符串（带秒），用于 last_updated_time。
func Now() string {
	return time.Now().In(Zone).Format("2006-01-02 15:04:05")
}
