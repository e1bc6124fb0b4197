package models

import (
	"time"

	"matchday-service/pkg/matchclock"
)

// Match 比赛记录, 内嵌时钟状态
type Match struct {
	ID         string    `json:"id"`
	LeagueID   string    `json:"league_id" validate:"required"`
	HomeTeamID string    `json:"home_team_id" validate:"required"`
	AwayTeamID string    `json:"away_team_id" validate:"required,nefield=HomeTeamID"`
	Venue      string    `json:"venue,omitempty" validate:"max=200"`
	KickoffAt  time.Time `json:"kickoff_at" validate:"required"`

	matchclock.State

	// Version 乐观锁版本号, 每次写入加一
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MatchInput 管理端创建/修改比赛的请求体
type MatchInput struct {
	LeagueID   string    `json:"league_id" validate:"required"`
	HomeTeamID string    `json:"home_team_id" validate:"required"`
	AwayTeamID string    `json:"away_team_id" validate:"required,nefield=HomeTeamID"`
	Venue      string    `json:"venue" validate:"max=200"`
	KickoffAt  time.Time `json:"kickoff_at" validate:"required"`

	FirstHalfInjuryTime       *int `json:"first_half_injury_time" validate:"omitempty,min=0,max=30"`
	SecondHalfInjuryTime      *int `json:"second_half_injury_time" validate:"omitempty,min=0,max=30"`
	ExtraTimeFirstInjuryTime  *int `json:"extra_time_first_injury_time" validate:"omitempty,min=0,max=30"`
	ExtraTimeSecondInjuryTime *int `json:"extra_time_second_injury_time" validate:"omitempty,min=0,max=30"`
}

// ApplyTo 把输入写到比赛上, 不动状态和阶段时间
func (in MatchInput) ApplyTo(m *Match) {
	m.LeagueID = in.LeagueID
	m.HomeTeamID = in.HomeTeamID
	m.AwayTeamID = in.AwayTeamID
	m.Venue = in.Venue
	m.KickoffAt = in.KickoffAt.UTC()
	m.FirstHalfInjuryTime = in.FirstHalfInjuryTime
	m.SecondHalfInjuryTime = in.SecondHalfInjuryTime
	m.ExtraTimeFirstInjuryTime = in.ExtraTimeFirstInjuryTime
	m.ExtraTimeSecondInjuryTime = in.ExtraTimeSecondInjuryTime
}

// MatchFilter 比赛列表查询条件
type MatchFilter struct {
	Status   matchclock.Status
	LeagueID string
	Limit    int
	Offset   int
}

// MatchView 对外输出的比赛, 附带计算后的时钟
type MatchView struct {
	*Match
	Clock matchclock.Display `json:"clock"`
}
