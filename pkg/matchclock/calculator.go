package matchclock

import "time"

// Clock 某一时刻的比赛时钟
type Clock struct {
	Minute    int    `json:"minute"`
	Second    int    `json:"second"`
	Phase     Phase  `json:"phase"`
	Suffix    string `json:"suffix,omitempty"`
	IsRunning bool   `json:"is_running"`
	// AddedTime 超出常规时长的分钟数
	AddedTime int `json:"added_time"`
	// AnnouncedStoppage 管理员录入的当前阶段补时
	AnnouncedStoppage int `json:"announced_stoppage"`
}

// Calculate 根据持久化状态和 now 计算当前时钟.
// 纯函数: 相同输入得到相同输出.
func Calculate(state State, now time.Time) Clock {
	info := ResolvePhase(state.Status)

	if !state.Status.IsRunning() {
		return frozen(state, info)
	}

	phaseStart := state.phaseStart()
	if phaseStart == nil {
		// 缺少阶段开始时间, 按未正常开始处理
		return frozen(state, info)
	}
	if state.Status == StatusExtraTime && state.ExtraTimeSecondStartedAt != nil {
		info = extraTimeSecondPhase
	}

	end := now
	if state.PausedAt != nil {
		end = *state.PausedAt
	}

	elapsed := int(end.Sub(*phaseStart) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	elapsed -= state.TotalPausedSeconds
	if elapsed < 0 {
		elapsed = 0
	}

	minute := info.BaseMinute + elapsed/60
	added := minute - info.MaxMinute
	if added < 0 {
		added = 0
	}

	return Clock{
		Minute:            minute,
		Second:            elapsed % 60,
		Phase:             info.Phase,
		Suffix:            info.Suffix,
		IsRunning:         true,
		AddedTime:         added,
		AnnouncedStoppage: state.injuryTime(info.Phase),
	}
}

func frozen(state State, info PhaseInfo) Clock {
	return Clock{
		Minute:            state.Minute,
		Second:            0,
		Phase:             info.Phase,
		Suffix:            info.Suffix,
		IsRunning:         false,
		AnnouncedStoppage: state.injuryTime(info.Phase),
	}
}

// phaseStart 当前运行阶段的开始时间
func (s State) phaseStart() *time.Time {
	switch s.Status {
	case StatusLive:
		return s.MatchStartedAt
	case StatusSecondHalf:
		return s.SecondHalfStartedAt
	case StatusExtraTime:
		if s.ExtraTimeSecondStartedAt != nil {
			return s.ExtraTimeSecondStartedAt
		}
		return s.ExtraTimeStartedAt
	}
	return nil
}

func (s State) injuryTime(phase Phase) int {
	var v *int
	switch phase {
	case PhaseFirstHalf:
		v = s.FirstHalfInjuryTime
	case PhaseSecondHalf:
		v = s.SecondHalfInjuryTime
	case PhaseExtraTimeFirst:
		v = s.ExtraTimeFirstInjuryTime
	case PhaseExtraTimeSecond:
		v = s.ExtraTimeSecondInjuryTime
	}
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}
