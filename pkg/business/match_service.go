package business

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
	"matchday-service/pkg/processing"
	"matchday-service/services"
)

const cacheKeyMatches = "matches_"

// MatchServiceOption 可选依赖
type MatchServiceOption func(*DefaultMatchService)

// WithBroker 控制动作成功后发布时钟事件
func WithBroker(broker services.MessageBroker) MatchServiceOption {
	return func(s *DefaultMatchService) { s.broker = broker }
}

// WithCache 缓存比赛查询
func WithCache(cache *services.QueryCache) MatchServiceOption {
	return func(s *DefaultMatchService) { s.cache = cache }
}

// WithNotifications 比赛终止时通知运营
func WithNotifications(n *NotificationService) MatchServiceOption {
	return func(s *DefaultMatchService) { s.notifications = n }
}

// WithMetrics 记录控制动作指标
func WithMetrics(m *ControlMetrics) MatchServiceOption {
	return func(s *DefaultMatchService) { s.metrics = m }
}

// WithClock 替换时间来源, 测试用
func WithClock(now func() time.Time) MatchServiceOption {
	return func(s *DefaultMatchService) { s.now = now }
}

// DefaultMatchService 默认比赛服务实现
type DefaultMatchService struct {
	logger        common.Logger
	storage       processing.DataStorage
	validator     processing.DataValidator
	broker        services.MessageBroker
	cache         *services.QueryCache
	notifications *NotificationService
	metrics       *ControlMetrics
	now           func() time.Time
}

// NewMatchService 创建比赛服务
func NewMatchService(logger common.Logger, storage processing.DataStorage, validator processing.DataValidator, opts ...MatchServiceOption) *DefaultMatchService {
	s := &DefaultMatchService{
		logger:    logger,
		storage:   storage,
		validator: validator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// view 按当前时间计算时钟
func (s *DefaultMatchService) view(m *models.Match, now time.Time) models.MatchView {
	return models.MatchView{Match: m, Clock: matchclock.Render(m.State, now)}
}

// ListMatches 获取比赛列表
func (s *DefaultMatchService) ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.MatchView, error) {
	load := func() (interface{}, error) {
		return s.storage.ListMatches(ctx, filter)
	}

	var data interface{}
	var err error
	if s.cache != nil {
		data, err = s.cache.GetOrLoad(services.GenerateCacheKey(cacheKeyMatches, filter), load)
	} else {
		data, err = load()
	}
	if err != nil {
		s.logger.Error("Failed to list matches: %v", err)
		return nil, err
	}

	matches := data.([]*models.Match)
	now := s.now()
	views := make([]models.MatchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, s.view(m, now))
	}
	s.metrics.observeClockReads(len(views))
	return views, nil
}

// GetMatch 获取比赛信息.
// 单场比赛直接读存储: 缓存只在本进程内失效, 其他实例写入的状态必须立即可见.
func (s *DefaultMatchService) GetMatch(ctx context.Context, matchID string) (models.MatchView, error) {
	m, err := s.storage.GetMatch(ctx, matchID)
	if err != nil {
		return models.MatchView{}, err
	}
	s.metrics.observeClockReads(1)
	return s.view(m, s.now()), nil
}

// GetClock 只返回时钟
func (s *DefaultMatchService) GetClock(ctx context.Context, matchID string) (matchclock.Display, error) {
	v, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return matchclock.Display{}, err
	}
	return v.Clock, nil
}

// CreateMatch 创建比赛
func (s *DefaultMatchService) CreateMatch(ctx context.Context, input models.MatchInput) (*models.Match, error) {
	if err := s.validator.Validate(ctx, input); err != nil {
		return nil, err
	}

	m := &models.Match{
		ID:    uuid.NewString(),
		State: matchclock.NewScheduledState(),
	}
	input.ApplyTo(m)

	if err := s.storage.CreateMatch(ctx, m); err != nil {
		s.logger.Error("Failed to create match: %v", err)
		return nil, err
	}

	s.invalidate(m.ID)
	s.logger.Info("Match created: %s (%s vs %s, kickoff %s)", m.ID, m.HomeTeamID, m.AwayTeamID, m.KickoffAt.Format(time.RFC3339))
	return m, nil
}

// UpdateMatch 修改比赛基础信息
func (s *DefaultMatchService) UpdateMatch(ctx context.Context, matchID string, input models.MatchInput, version int) (*models.Match, error) {
	if err := s.validator.Validate(ctx, input); err != nil {
		return nil, err
	}

	m, err := s.storage.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if version > 0 && version != m.Version {
		return nil, common.ErrConflict
	}

	input.ApplyTo(m)
	if err := s.storage.UpdateMatchDetails(ctx, m); err != nil {
		s.logger.Error("Failed to update match %s: %v", matchID, err)
		return nil, err
	}

	s.invalidate(matchID)
	// 补时分钟变化会影响展示
	s.publish(m, "")
	return m, nil
}

// DeleteMatch 删除比赛
func (s *DefaultMatchService) DeleteMatch(ctx context.Context, matchID string) error {
	if err := s.storage.DeleteMatch(ctx, matchID); err != nil {
		return err
	}
	s.invalidate(matchID)
	s.logger.Info("Match deleted: %s", matchID)
	return nil
}

// ApplyAction 校验合法性, 构建变更, 带版本写入, 然后广播
func (s *DefaultMatchService) ApplyAction(ctx context.Context, matchID string, actionName string, version int) (models.MatchView, error) {
	action, err := matchclock.ParseAction(actionName)
	if err != nil {
		s.metrics.observeAction("unknown", err)
		return models.MatchView{}, err
	}

	view, err := s.applyAction(ctx, matchID, action, version)
	s.metrics.observeAction(string(action), err)
	return view, err
}

func (s *DefaultMatchService) applyAction(ctx context.Context, matchID string, action matchclock.Action, version int) (models.MatchView, error) {
	// 控制动作必须读到最新状态, 不走缓存
	current, err := s.storage.GetMatch(ctx, matchID)
	if err != nil {
		return models.MatchView{}, err
	}
	if version > 0 && version != current.Version {
		return models.MatchView{}, fmt.Errorf("match %s is at version %d, not %d: %w", matchID, current.Version, version, common.ErrConflict)
	}

	if err := matchclock.CheckTransition(current.State, action); err != nil {
		s.logger.Warn("Rejected %s on match %s: %v", action, matchID, err)
		return models.MatchView{}, err
	}

	now := s.now()
	tr, err := matchclock.BuildTransition(action, current.State, now)
	if err != nil {
		return models.MatchView{}, err
	}

	updated, err := s.storage.UpdateClock(ctx, matchID, tr, current.Version)
	if err != nil {
		s.logger.Error("Failed to apply %s to match %s: %v", action, matchID, err)
		return models.MatchView{}, err
	}

	s.logger.Info("Match %s: %s -> %s (version %d)", matchID, current.Status, updated.Status, updated.Version)

	s.invalidate(matchID)
	s.publish(updated, action)

	if updated.Status.IsTerminal() && s.notifications != nil {
		s.notifications.MatchFinished(updated, matchclock.Render(updated.State, now))
	}

	return s.view(updated, now), nil
}

// publish 广播失败只记录, 不影响已写入的状态
func (s *DefaultMatchService) publish(m *models.Match, action matchclock.Action) {
	if s.broker == nil {
		return
	}

	now := s.now()
	msg, err := services.EncodeClockEvent(services.ClockEvent{
		MatchID:    m.ID,
		Action:     action,
		Version:    m.Version,
		State:      m.State,
		Clock:      matchclock.Render(m.State, now),
		OccurredAt: now.UTC(),
	})
	if err == nil {
		err = s.broker.Produce(msg)
	}
	if err != nil {
		s.metrics.observePublishFailure()
		s.logger.Error("Failed to publish clock event for match %s: %v", m.ID, err)
	}
}

func (s *DefaultMatchService) invalidate(matchID string) {
	if s.cache == nil {
		return
	}
	s.logger.Debug("Invalidating match list cache after change to %s", matchID)
	s.cache.DeletePrefix(cacheKeyMatches)
}

var _ MatchService = (*DefaultMatchService)(nil)
