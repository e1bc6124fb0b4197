package matchclock

// Phase 比赛阶段
type Phase string

const (
	PhaseNotStarted      Phase = "not_started"
	PhaseFirstHalf       Phase = "first_half"
	PhaseHalfTime        Phase = "half_time"
	PhaseSecondHalf      Phase = "second_half"
	PhaseExtraTimeFirst  Phase = "extra_time_first"
	PhaseExtraTimeBreak  Phase = "extra_time_break"
	PhaseExtraTimeSecond Phase = "extra_time_second"
	PhasePenalties       Phase = "penalties"
	PhasePaused          Phase = "paused"
	PhaseCompleted       Phase = "completed"
)

const (
	SuffixExtraTime = "ET"
	SuffixPenalties = "PEN"
)

// PhaseInfo 阶段元数据
type PhaseInfo struct {
	Phase      Phase  `json:"phase"`
	BaseMinute int    `json:"base_minute"`
	MaxMinute  int    `json:"max_minute"`
	Suffix     string `json:"suffix,omitempty"`
}

// ResolvePhase 根据状态查表得到阶段信息.
// 未知状态返回 not_started, 显示层不能因为脏数据崩溃.
func ResolvePhase(status Status) PhaseInfo {
	switch status {
	case StatusScheduled:
		return PhaseInfo{Phase: PhaseNotStarted, BaseMinute: 0, MaxMinute: 0}
	case StatusLive:
		return PhaseInfo{Phase: PhaseFirstHalf, BaseMinute: 0, MaxMinute: 45}
	case StatusHalfTime:
		return PhaseInfo{Phase: PhaseHalfTime, BaseMinute: 45, MaxMinute: 45}
	case StatusSecondHalf:
		return PhaseInfo{Phase: PhaseSecondHalf, BaseMinute: 45, MaxMinute: 90}
	case StatusExtraTime:
		return PhaseInfo{Phase: PhaseExtraTimeFirst, BaseMinute: 90, MaxMinute: 105, Suffix: SuffixExtraTime}
	case StatusExtraTimeBreak:
		return PhaseInfo{Phase: PhaseExtraTimeBreak, BaseMinute: 105, MaxMinute: 105, Suffix: SuffixExtraTime}
	case StatusPenalties:
		return PhaseInfo{Phase: PhasePenalties, BaseMinute: 120, MaxMinute: 120, Suffix: SuffixPenalties}
	case StatusPaused, StatusPostponed, StatusSuspended:
		return PhaseInfo{Phase: PhasePaused, BaseMinute: 0, MaxMinute: 120}
	case StatusCompleted, StatusCancelled, StatusAbandoned:
		return PhaseInfo{Phase: PhaseCompleted, BaseMinute: 90, MaxMinute: 120}
	}
	return PhaseInfo{Phase: PhaseNotStarted, BaseMinute: 0, MaxMinute: 0}
}

// extraTimeSecondPhase 加时下半场, 状态仍为 extra_time
var extraTimeSecondPhase = PhaseInfo{Phase: PhaseExtraTimeSecond, BaseMinute: 105, MaxMinute: 120, Suffix: SuffixExtraTime}

// nominalMinute 阶段的常规结束分钟, 用于补时显示 "45+2'"
func nominalMinute(phase Phase) int {
	switch phase {
	case PhaseFirstHalf, PhaseHalfTime:
		return 45
	case PhaseSecondHalf:
		return 90
	case PhaseExtraTimeFirst, PhaseExtraTimeBreak:
		return 105
	case PhaseExtraTimeSecond:
		return 120
	}
	return 0
}
