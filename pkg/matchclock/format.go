package matchclock

import (
	"fmt"
	"time"
)

// Format 格式化为 "MM:SS", 有后缀时追加 " (ET)"
func Format(minute, second int, suffix string) string {
	s := fmt.Sprintf("%02d:%02d", minute, second)
	if suffix != "" {
		s += " (" + suffix + ")"
	}
	return s
}

// FormatMinuteOnly 格式化为 "23'" 或 "45+2'".
// 管理员录入了补时时追加 " (+4)".
func FormatMinuteOnly(c Clock) string {
	s := fmt.Sprintf("%d'", c.Minute)
	if c.AddedTime > 0 {
		if nominal := nominalMinute(c.Phase); nominal > 0 {
			s = fmt.Sprintf("%d+%d'", nominal, c.AddedTime)
		}
	}
	if c.AnnouncedStoppage > 0 {
		s += fmt.Sprintf(" (+%d)", c.AnnouncedStoppage)
	}
	return s
}

// Display 展示层使用的完整时钟
type Display struct {
	Clock
	Status     Status `json:"status"`
	Text       string `json:"text"`
	MinuteText string `json:"minute_text"`
	ComputedAt int64  `json:"computed_at"`
}

// Render 计算并格式化时钟
func Render(state State, now time.Time) Display {
	c := Calculate(state, now)
	return Display{
		Clock:      c,
		Status:     state.Status,
		Text:       Format(c.Minute, c.Second, c.Suffix),
		MinuteText: FormatMinuteOnly(c),
		ComputedAt: now.Unix(),
	}
}
