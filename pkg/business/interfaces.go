package business

import (
	"context"

	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
)

// MatchService 比赛读取与控制服务接口
type MatchService interface {
	// ListMatches 获取比赛列表, 附带按当前时间计算的时钟
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.MatchView, error)

	// GetMatch 获取比赛信息
	GetMatch(ctx context.Context, matchID string) (models.MatchView, error)

	// GetClock 只返回时钟
	GetClock(ctx context.Context, matchID string) (matchclock.Display, error)

	// CreateMatch 创建未开始的比赛
	CreateMatch(ctx context.Context, input models.MatchInput) (*models.Match, error)

	// UpdateMatch 修改基础信息和补时分钟, version 为 0 时不检查版本
	UpdateMatch(ctx context.Context, matchID string, input models.MatchInput, version int) (*models.Match, error)

	// DeleteMatch 删除比赛
	DeleteMatch(ctx context.Context, matchID string) error

	// ApplyAction 执行一次控制动作, version 为 0 时使用读取到的版本
	ApplyAction(ctx context.Context, matchID string, action string, version int) (models.MatchView, error)
}

// CatalogService 联赛与球队管理服务接口
type CatalogService interface {
	ListLeagues(ctx context.Context) ([]*models.League, error)
	GetLeague(ctx context.Context, id string) (*models.League, error)
	CreateLeague(ctx context.Context, league models.League) (*models.League, error)
	UpdateLeague(ctx context.Context, id string, league models.League) (*models.League, error)
	DeleteLeague(ctx context.Context, id string) error

	ListTeams(ctx context.Context, filter models.TeamFilter) ([]*models.Team, error)
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	CreateTeam(ctx context.Context, team models.Team) (*models.Team, error)
	UpdateTeam(ctx context.Context, id string, team models.Team) (*models.Team, error)
	DeleteTeam(ctx context.Context, id string) error
}

// Notifier 运营通知
type Notifier interface {
	NotifyMatchFinished(ctx context.Context, matchID, home, away string, display matchclock.Display) error
}
