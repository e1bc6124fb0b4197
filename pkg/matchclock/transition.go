package matchclock

import (
	"errors"
	"fmt"
	"time"
)

// Action 管理端控制动作
type Action string

const (
	ActionStart               Action = "start"
	ActionPause               Action = "pause"
	ActionResume              Action = "resume"
	ActionHalfTime            Action = "half_time"
	ActionSecondHalf          Action = "second_half"
	ActionFullTime            Action = "full_time"
	ActionExtraTime           Action = "extra_time"
	ActionExtraTimeBreak      Action = "extra_time_break"
	ActionExtraTimeSecondHalf Action = "extra_time_second_half"
	ActionEndExtraTime        Action = "end_extra_time"
	ActionPenalties           Action = "penalties"
	ActionEndPenalties        Action = "end_penalties"
	ActionPostpone            Action = "postpone"
	ActionSuspend             Action = "suspend"
	ActionCancel              Action = "cancel"
	ActionAbandon             Action = "abandon"
)

// AllActions 全部支持的动作
var AllActions = []Action{
	ActionStart,
	ActionPause,
	ActionResume,
	ActionHalfTime,
	ActionSecondHalf,
	ActionFullTime,
	ActionExtraTime,
	ActionExtraTimeBreak,
	ActionExtraTimeSecondHalf,
	ActionEndExtraTime,
	ActionPenalties,
	ActionEndPenalties,
	ActionPostpone,
	ActionSuspend,
	ActionCancel,
	ActionAbandon,
}

// ErrIllegalTransition 当前状态不允许该动作
var ErrIllegalTransition = errors.New("illegal match transition")

// InvalidActionError 不支持的动作
type InvalidActionError struct {
	Action string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("unsupported match action %q", e.Action)
}

// ParseAction 解析动作名
func ParseAction(s string) (Action, error) {
	for _, a := range AllActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", &InvalidActionError{Action: s}
}

// Transition 一次动作需要写入的字段. nil 表示不修改.
type Transition struct {
	Action Action
	Status Status
	Minute *int

	MatchStartedAt           *time.Time
	SecondHalfStartedAt      *time.Time
	ExtraTimeStartedAt       *time.Time
	ExtraTimeSecondStartedAt *time.Time

	PausedAt           *time.Time
	ClearPausedAt      bool
	TotalPausedSeconds *int
	PausedFrom         *Status
	ClearPausedFrom    bool

	MatchEndedAt       *time.Time
	FirstHalfEndedAt   *time.Time
	SecondHalfEndedAt  *time.Time
	ExtraTimeEndedAt   *time.Time
	PenaltiesStartedAt *time.Time
}

// BuildTransition 把动作翻译成新状态和要持久化的字段.
// 不检查动作是否合法, 由调用方负责 (见 CheckTransition).
func BuildTransition(action Action, current State, now time.Time) (Transition, error) {
	now = now.UTC()
	t := Transition{Action: action}

	switch action {
	case ActionStart:
		t.Status = StatusLive
		t.Minute = intPtr(0)
		t.MatchStartedAt = &now
		t.resetPauses(current)
	case ActionPause:
		t.Status = StatusPaused
		t.Minute = intPtr(Calculate(current, now).Minute)
		t.PausedAt = &now
		t.rememberOrigin(current)
	case ActionResume:
		t.Status = resumeTarget(current)
		t.ClearPausedFrom = current.PausedFromStatus != ""
		if current.PausedAt != nil {
			t.ClearPausedAt = true
			if t.Status.IsRunning() {
				paused := int(now.Sub(*current.PausedAt) / time.Second)
				if paused < 0 {
					paused = 0
				}
				t.TotalPausedSeconds = intPtr(current.TotalPausedSeconds + paused)
			}
		}
	case ActionHalfTime:
		t.Status = StatusHalfTime
		t.Minute = intPtr(45)
		t.FirstHalfEndedAt = &now
	case ActionSecondHalf:
		t.Status = StatusSecondHalf
		t.Minute = intPtr(46)
		t.SecondHalfStartedAt = &now
		t.resetPauses(current)
	case ActionFullTime:
		t.Status = StatusCompleted
		t.Minute = intPtr(90)
		t.SecondHalfEndedAt = &now
		t.MatchEndedAt = &now
	case ActionExtraTime:
		t.Status = StatusExtraTime
		t.Minute = intPtr(91)
		t.ExtraTimeStartedAt = &now
		t.resetPauses(current)
	case ActionExtraTimeBreak:
		t.Status = StatusExtraTimeBreak
		t.Minute = intPtr(105)
	case ActionExtraTimeSecondHalf:
		t.Status = StatusExtraTime
		t.Minute = intPtr(106)
		t.ExtraTimeSecondStartedAt = &now
		t.resetPauses(current)
	case ActionEndExtraTime:
		t.Status = StatusCompleted
		t.Minute = intPtr(120)
		t.ExtraTimeEndedAt = &now
		t.MatchEndedAt = &now
	case ActionPenalties:
		t.Status = StatusPenalties
		t.Minute = intPtr(120)
		t.PenaltiesStartedAt = &now
	case ActionEndPenalties:
		t.Status = StatusCompleted
		t.Minute = intPtr(120)
		t.MatchEndedAt = &now
	case ActionPostpone, ActionSuspend:
		t.Status = StatusPostponed
		if action == ActionSuspend {
			t.Status = StatusSuspended
		}
		t.Minute = intPtr(Calculate(current, now).Minute)
		if current.Status.IsRunning() && current.PausedAt == nil {
			t.PausedAt = &now
		}
		t.rememberOrigin(current)
	case ActionCancel, ActionAbandon:
		t.Status = StatusCancelled
		if action == ActionAbandon {
			t.Status = StatusAbandoned
		}
		t.Minute = intPtr(Calculate(current, now).Minute)
		t.MatchEndedAt = &now
		t.ClearPausedFrom = current.PausedFromStatus != ""
	default:
		return Transition{}, &InvalidActionError{Action: string(action)}
	}

	return t, nil
}

// resetPauses 新阶段使用自己的开始时间, 暂停累计清零
func (t *Transition) resetPauses(current State) {
	if current.TotalPausedSeconds != 0 {
		t.TotalPausedSeconds = intPtr(0)
	}
	if current.PausedAt != nil {
		t.ClearPausedAt = true
	}
	if current.PausedFromStatus != "" {
		t.ClearPausedFrom = true
	}
}

// rememberOrigin 记录中断前的状态. 已经处于中断中时保留最初的来源.
func (t *Transition) rememberOrigin(current State) {
	if current.Status.IsInterrupted() {
		return
	}
	origin := current.Status
	t.PausedFrom = &origin
}

// resumeTarget 恢复到中断前的状态.
// 没有记录来源的旧数据按阶段时间推断运行状态.
func resumeTarget(s State) Status {
	if s.PausedFromStatus != "" {
		return s.PausedFromStatus
	}
	switch {
	case s.ExtraTimeStartedAt != nil:
		return StatusExtraTime
	case s.SecondHalfStartedAt != nil:
		return StatusSecondHalf
	case s.MatchStartedAt != nil:
		return StatusLive
	}
	return StatusScheduled
}

// Apply 返回应用了本次变更的新状态
func (t Transition) Apply(s State) State {
	s.Status = t.Status
	if t.Minute != nil {
		s.Minute = *t.Minute
	}
	setTime(&s.MatchStartedAt, t.MatchStartedAt)
	setTime(&s.SecondHalfStartedAt, t.SecondHalfStartedAt)
	setTime(&s.ExtraTimeStartedAt, t.ExtraTimeStartedAt)
	setTime(&s.ExtraTimeSecondStartedAt, t.ExtraTimeSecondStartedAt)
	if t.ClearPausedAt {
		s.PausedAt = nil
	}
	setTime(&s.PausedAt, t.PausedAt)
	if t.TotalPausedSeconds != nil {
		s.TotalPausedSeconds = *t.TotalPausedSeconds
	}
	if t.ClearPausedFrom {
		s.PausedFromStatus = ""
	}
	if t.PausedFrom != nil {
		s.PausedFromStatus = *t.PausedFrom
	}
	setTime(&s.MatchEndedAt, t.MatchEndedAt)
	setTime(&s.FirstHalfEndedAt, t.FirstHalfEndedAt)
	setTime(&s.SecondHalfEndedAt, t.SecondHalfEndedAt)
	setTime(&s.ExtraTimeEndedAt, t.ExtraTimeEndedAt)
	setTime(&s.PenaltiesStartedAt, t.PenaltiesStartedAt)
	return s
}

// Columns 需要写入 matches 表的列
func (t Transition) Columns() map[string]any {
	cols := map[string]any{"status": string(t.Status)}
	if t.Minute != nil {
		cols["minute"] = *t.Minute
	}
	putTime(cols, "match_started_at", t.MatchStartedAt)
	putTime(cols, "second_half_started_at", t.SecondHalfStartedAt)
	putTime(cols, "extra_time_started_at", t.ExtraTimeStartedAt)
	putTime(cols, "extra_time_second_started_at", t.ExtraTimeSecondStartedAt)
	if t.ClearPausedAt {
		cols["paused_at"] = nil
	}
	putTime(cols, "paused_at", t.PausedAt)
	if t.TotalPausedSeconds != nil {
		cols["total_paused_seconds"] = *t.TotalPausedSeconds
	}
	if t.ClearPausedFrom {
		cols["paused_from_status"] = nil
	}
	if t.PausedFrom != nil {
		cols["paused_from_status"] = string(*t.PausedFrom)
	}
	putTime(cols, "match_ended_at", t.MatchEndedAt)
	putTime(cols, "first_half_ended_at", t.FirstHalfEndedAt)
	putTime(cols, "second_half_ended_at", t.SecondHalfEndedAt)
	putTime(cols, "extra_time_ended_at", t.ExtraTimeEndedAt)
	putTime(cols, "penalties_started_at", t.PenaltiesStartedAt)
	return cols
}

var legalFrom = map[Action][]Status{
	ActionStart:               {StatusScheduled},
	ActionPause:               {StatusLive, StatusSecondHalf, StatusExtraTime},
	ActionResume:              {StatusPaused, StatusPostponed, StatusSuspended},
	ActionHalfTime:            {StatusLive},
	ActionSecondHalf:          {StatusHalfTime},
	ActionFullTime:            {StatusSecondHalf},
	ActionExtraTime:           {StatusSecondHalf},
	ActionExtraTimeBreak:      {StatusExtraTime},
	ActionExtraTimeSecondHalf: {StatusExtraTimeBreak},
	ActionEndExtraTime:        {StatusExtraTime},
	ActionPenalties:           {StatusSecondHalf, StatusExtraTime},
	ActionEndPenalties:        {StatusPenalties},
	ActionPostpone:            {StatusScheduled, StatusLive, StatusHalfTime, StatusSecondHalf, StatusExtraTime, StatusExtraTimeBreak, StatusPaused, StatusSuspended},
	ActionSuspend:             {StatusLive, StatusHalfTime, StatusSecondHalf, StatusExtraTime, StatusExtraTimeBreak, StatusPenalties, StatusPaused},
	ActionCancel:              {StatusScheduled, StatusLive, StatusHalfTime, StatusSecondHalf, StatusExtraTime, StatusExtraTimeBreak, StatusPenalties, StatusPaused, StatusPostponed, StatusSuspended},
	ActionAbandon:             {StatusLive, StatusHalfTime, StatusSecondHalf, StatusExtraTime, StatusExtraTimeBreak, StatusPenalties, StatusPaused, StatusPostponed, StatusSuspended},
}

// CheckTransition 控制端在调用 BuildTransition 前做的合法性检查
func CheckTransition(current State, action Action) error {
	from, ok := legalFrom[action]
	if !ok {
		return &InvalidActionError{Action: string(action)}
	}
	for _, s := range from {
		if s != current.Status {
			continue
		}
		// 加时中场休息只能在加时上半场之后
		if action == ActionExtraTimeBreak && current.ExtraTimeSecondStartedAt != nil {
			break
		}
		return nil
	}
	return fmt.Errorf("%w: cannot %s a match that is %s", ErrIllegalTransition, action, current.Status)
}

func intPtr(v int) *int {
	return &v
}

func setTime(dst **time.Time, v *time.Time) {
	if v != nil {
		t := *v
		*dst = &t
	}
}

func putTime(cols map[string]any, name string, v *time.Time) {
	if v != nil {
		cols[name] = *v
	}
}
