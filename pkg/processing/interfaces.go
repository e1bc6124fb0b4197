package processing

import (
	"context"

	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
)

// MatchRepository 比赛存储接口
type MatchRepository interface {
	// CreateMatch 保存新比赛, Version 置为 1
	CreateMatch(ctx context.Context, match *models.Match) error

	// GetMatch 获取比赛, 不存在时返回 common.ErrNotFound
	GetMatch(ctx context.Context, id string) (*models.Match, error)

	// ListMatches 按开球时间排序查询比赛
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error)

	// UpdateMatchDetails 修改比赛基础信息, match.Version 为期望版本
	UpdateMatchDetails(ctx context.Context, match *models.Match) error

	// UpdateClock 只写入 Transition 选中的字段.
	// 当前版本不等于 expectedVersion 时返回 common.ErrConflict.
	UpdateClock(ctx context.Context, id string, tr matchclock.Transition, expectedVersion int) (*models.Match, error)

	// DeleteMatch 删除比赛
	DeleteMatch(ctx context.Context, id string) error
}

// LeagueRepository 联赛存储接口
type LeagueRepository interface {
	CreateLeague(ctx context.Context, league *models.League) error
	GetLeague(ctx context.Context, id string) (*models.League, error)
	ListLeagues(ctx context.Context) ([]*models.League, error)
	UpdateLeague(ctx context.Context, league *models.League) error
	// DeleteLeague 仍被球队或比赛引用时返回 common.ErrConflict
	DeleteLeague(ctx context.Context, id string) error
}

// TeamRepository 球队存储接口
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	ListTeams(ctx context.Context, filter models.TeamFilter) ([]*models.Team, error)
	UpdateTeam(ctx context.Context, team *models.Team) error
	// DeleteTeam 仍被比赛引用时返回 common.ErrConflict
	DeleteTeam(ctx context.Context, id string) error
}

// DataStorage 数据存储接口
type DataStorage interface {
	MatchRepository
	LeagueRepository
	TeamRepository

	// Ping 健康检查
	Ping(ctx context.Context) error
}

// DataValidator 数据验证器接口
type DataValidator interface {
	// Validate 校验带 validate 标签的结构体, 失败时返回 *common.ValidationError
	Validate(ctx context.Context, v interface{}) error

	// GetName 获取验证器名称
	GetName() string
}

const (
	// DefaultListLimit 列表默认条数
	DefaultListLimit = 50
	// MaxListLimit 列表最大条数
	MaxListLimit = 200
)

// normalizeLimit 把 limit 约束到 [1, MaxListLimit]
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
