package matchclock

import (
	"fmt"
	"time"
)

// Status 比赛状态 (持久化在 matches.status)
type Status string

const (
	StatusScheduled      Status = "scheduled"
	StatusLive           Status = "live"
	StatusHalfTime       Status = "half_time"
	StatusSecondHalf     Status = "second_half"
	StatusExtraTime      Status = "extra_time"
	StatusExtraTimeBreak Status = "extra_time_break"
	StatusPenalties      Status = "penalties"
	StatusPaused         Status = "paused"
	StatusPostponed      Status = "postponed"
	StatusSuspended      Status = "suspended"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusAbandoned      Status = "abandoned"
)

// AllStatuses 全部状态, 顺序即生命周期顺序
var AllStatuses = []Status{
	StatusScheduled,
	StatusLive,
	StatusHalfTime,
	StatusSecondHalf,
	StatusExtraTime,
	StatusExtraTimeBreak,
	StatusPenalties,
	StatusPaused,
	StatusPostponed,
	StatusSuspended,
	StatusCompleted,
	StatusCancelled,
	StatusAbandoned,
}

// ParseStatus 解析状态字符串
func ParseStatus(s string) (Status, error) {
	for _, status := range AllStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown match status %q", s)
}

// IsRunning 时钟是否在走
func (s Status) IsRunning() bool {
	switch s {
	case StatusLive, StatusSecondHalf, StatusExtraTime:
		return true
	}
	return false
}

// IsInterrupted 暂停、延期或中断
func (s Status) IsInterrupted() bool {
	switch s {
	case StatusPaused, StatusPostponed, StatusSuspended:
		return true
	}
	return false
}

// IsTerminal 是否为终止状态
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusAbandoned:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// State 比赛时钟的持久化状态 (比赛记录的子集)
type State struct {
	Status Status `json:"status"`
	Minute int    `json:"minute"`

	MatchStartedAt           *time.Time `json:"match_started_at,omitempty"`
	SecondHalfStartedAt      *time.Time `json:"second_half_started_at,omitempty"`
	ExtraTimeStartedAt       *time.Time `json:"extra_time_started_at,omitempty"`
	ExtraTimeSecondStartedAt *time.Time `json:"extra_time_second_started_at,omitempty"`

	FirstHalfInjuryTime       *int `json:"first_half_injury_time,omitempty"`
	SecondHalfInjuryTime      *int `json:"second_half_injury_time,omitempty"`
	ExtraTimeFirstInjuryTime  *int `json:"extra_time_first_injury_time,omitempty"`
	ExtraTimeSecondInjuryTime *int `json:"extra_time_second_injury_time,omitempty"`

	PausedAt           *time.Time `json:"paused_at,omitempty"`
	TotalPausedSeconds int        `json:"total_paused_seconds"`
	// PausedFromStatus 进入 paused/postponed/suspended 之前的状态, resume 时恢复
	PausedFromStatus Status `json:"paused_from_status,omitempty"`

	MatchEndedAt       *time.Time `json:"match_ended_at,omitempty"`
	FirstHalfEndedAt   *time.Time `json:"first_half_ended_at,omitempty"`
	SecondHalfEndedAt  *time.Time `json:"second_half_ended_at,omitempty"`
	ExtraTimeEndedAt   *time.Time `json:"extra_time_ended_at,omitempty"`
	PenaltiesStartedAt *time.Time `json:"penalties_started_at,omitempty"`
}

// NewScheduledState 新建比赛的初始时钟状态
func NewScheduledState() State {
	return State{Status: StatusScheduled}
}
