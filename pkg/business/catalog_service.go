package business

import (
	"context"

	"github.com/google/uuid"

	"matchday-service/pkg/common"
	"matchday-service/pkg/models"
	"matchday-service/pkg/processing"
	"matchday-service/services"
)

const (
	cacheKeyLeagues = "leagues_"
	cacheKeyTeams   = "teams_"
)

// DefaultCatalogService 联赛与球队管理
type DefaultCatalogService struct {
	logger    common.Logger
	storage   processing.DataStorage
	validator processing.DataValidator
	cache     *services.QueryCache
}

// NewCatalogService 创建联赛与球队服务, cache 可以为 nil
func NewCatalogService(logger common.Logger, storage processing.DataStorage, validator processing.DataValidator, cache *services.QueryCache) *DefaultCatalogService {
	return &DefaultCatalogService{
		logger:    logger,
		storage:   storage,
		validator: validator,
		cache:     cache,
	}
}

func (s *DefaultCatalogService) cached(key string, load func() (interface{}, error)) (interface{}, error) {
	if s.cache == nil {
		return load()
	}
	return s.cache.GetOrLoad(key, load)
}

// invalidate 球队和联赛变动都会影响比赛列表的引用
func (s *DefaultCatalogService) invalidate(prefix string) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(prefix)
}

// ListLeagues 获取联赛列表
func (s *DefaultCatalogService) ListLeagues(ctx context.Context) ([]*models.League, error) {
	data, err := s.cached(cacheKeyLeagues+"all", func() (interface{}, error) {
		return s.storage.ListLeagues(ctx)
	})
	if err != nil {
		s.logger.Error("Failed to list leagues: %v", err)
		return nil, err
	}
	return data.([]*models.League), nil
}

// GetLeague 获取联赛
func (s *DefaultCatalogService) GetLeague(ctx context.Context, id string) (*models.League, error) {
	return s.storage.GetLeague(ctx, id)
}

// CreateLeague 创建联赛
func (s *DefaultCatalogService) CreateLeague(ctx context.Context, league models.League) (*models.League, error) {
	if err := s.validator.Validate(ctx, league); err != nil {
		return nil, err
	}

	league.ID = uuid.NewString()
	if err := s.storage.CreateLeague(ctx, &league); err != nil {
		return nil, err
	}

	s.invalidate(cacheKeyLeagues)
	s.logger.Info("League created: %s (%s)", league.ID, league.Name)
	return &league, nil
}

// UpdateLeague 修改联赛
func (s *DefaultCatalogService) UpdateLeague(ctx context.Context, id string, league models.League) (*models.League, error) {
	if err := s.validator.Validate(ctx, league); err != nil {
		return nil, err
	}

	league.ID = id
	if err := s.storage.UpdateLeague(ctx, &league); err != nil {
		return nil, err
	}

	s.invalidate(cacheKeyLeagues)
	return &league, nil
}

// DeleteLeague 删除联赛
func (s *DefaultCatalogService) DeleteLeague(ctx context.Context, id string) error {
	if err := s.storage.DeleteLeague(ctx, id); err != nil {
		return err
	}
	s.invalidate(cacheKeyLeagues)
	s.logger.Info("League deleted: %s", id)
	return nil
}

// ListTeams 获取球队列表
func (s *DefaultCatalogService) ListTeams(ctx context.Context, filter models.TeamFilter) ([]*models.Team, error) {
	data, err := s.cached(services.GenerateCacheKey(cacheKeyTeams, filter), func() (interface{}, error) {
		return s.storage.ListTeams(ctx, filter)
	})
	if err != nil {
		s.logger.Error("Failed to list teams: %v", err)
		return nil, err
	}
	return data.([]*models.Team), nil
}

// GetTeam 获取球队
func (s *DefaultCatalogService) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	return s.storage.GetTeam(ctx, id)
}

// CreateTeam 创建球队
func (s *DefaultCatalogService) CreateTeam(ctx context.Context, team models.Team) (*models.Team, error) {
	if err := s.validator.Validate(ctx, team); err != nil {
		return nil, err
	}

	team.ID = uuid.NewString()
	if err := s.storage.CreateTeam(ctx, &team); err != nil {
		return nil, err
	}

	s.invalidate(cacheKeyTeams)
	s.logger.Info("Team created: %s (%s)", team.ID, team.Name)
	return &team, nil
}

// UpdateTeam 修改球队
func (s *DefaultCatalogService) UpdateTeam(ctx context.Context, id string, team models.Team) (*models.Team, error) {
	if err := s.validator.Validate(ctx, team); err != nil {
		return nil, err
	}

	team.ID = id
	if err := s.storage.UpdateTeam(ctx, &team); err != nil {
		return nil, err
	}

	s.invalidate(cacheKeyTeams)
	return &team, nil
}

// DeleteTeam 删除球队
func (s *DefaultCatalogService) DeleteTeam(ctx context.Context, id string) error {
	if err := s.storage.DeleteTeam(ctx, id); err != nil {
		return err
	}
	s.invalidate(cacheKeyTeams)
	s.logger.Info("Team deleted: %s", id)
	return nil
}

var _ CatalogService = (*DefaultCatalogService)(nil)
