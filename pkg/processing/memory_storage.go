package processing

import (
	"context"
	"sort"
	"sync"
	"time"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
)

// MemoryStorage 内存存储实现, 用于测试和 STORAGE=memory
type MemoryStorage struct {
	mu      sync.RWMutex
	matches map[string]models.Match
	leagues map[string]models.League
	teams   map[string]models.Team
	now     func() time.Time
}

// NewMemoryStorage 创建内存存储
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		matches: make(map[string]models.Match),
		leagues: make(map[string]models.League),
		teams:   make(map[string]models.Team),
		now:     time.Now,
	}
}

// Ping 内存存储总是可用
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CreateMatch 保存新比赛
func (s *MemoryStorage) CreateMatch(ctx context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[match.ID]; ok {
		return common.NewAppError("STORAGE_FAILED", "Match already exists", common.ErrConflict)
	}
	if err := s.checkMatchRefs(match); err != nil {
		return err
	}

	now := s.now().UTC()
	match.Version = 1
	match.CreatedAt = now
	match.UpdatedAt = now
	s.matches[match.ID] = *match
	return nil
}

// GetMatch 获取比赛
func (s *MemoryStorage) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &m, nil
}

// ListMatches 查询比赛
func (s *MemoryStorage) ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Match, 0)
	for _, m := range s.matches {
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.LeagueID != "" && m.LeagueID != filter.LeagueID {
			continue
		}
		m := m
		out = append(out, &m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].KickoffAt.Before(out[j].KickoffAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*models.Match{}, nil
		}
		out = out[filter.Offset:]
	}
	if limit := normalizeLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateMatchDetails 修改比赛基础信息
func (s *MemoryStorage) UpdateMatchDetails(ctx context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.matches[match.ID]
	if !ok {
		return common.ErrNotFound
	}
	if current.Version != match.Version {
		return common.ErrConflict
	}
	if err := s.checkMatchRefs(match); err != nil {
		return err
	}

	current.LeagueID = match.LeagueID
	current.HomeTeamID = match.HomeTeamID
	current.AwayTeamID = match.AwayTeamID
	current.Venue = match.Venue
	current.KickoffAt = match.KickoffAt
	current.FirstHalfInjuryTime = match.FirstHalfInjuryTime
	current.SecondHalfInjuryTime = match.SecondHalfInjuryTime
	current.ExtraTimeFirstInjuryTime = match.ExtraTimeFirstInjuryTime
	current.ExtraTimeSecondInjuryTime = match.ExtraTimeSecondInjuryTime
	current.Version++
	current.UpdatedAt = s.now().UTC()

	s.matches[match.ID] = current
	*match = current
	return nil
}

// UpdateClock 写入一次时钟变更
func (s *MemoryStorage) UpdateClock(ctx context.Context, id string, tr matchclock.Transition, expectedVersion int) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.matches[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, common.ErrConflict
	}

	current.State = tr.Apply(current.State)
	current.Version++
	current.UpdatedAt = s.now().UTC()
	s.matches[id] = current

	return &current, nil
}

// DeleteMatch 删除比赛
func (s *MemoryStorage) DeleteMatch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.matches, id)
	return nil
}

// CreateLeague 保存联赛
func (s *MemoryStorage) CreateLeague(ctx context.Context, league *models.League) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leagues[league.ID]; ok {
		return common.NewAppError("STORAGE_FAILED", "League already exists", common.ErrConflict)
	}
	now := s.now().UTC()
	league.CreatedAt = now
	league.UpdatedAt = now
	s.leagues[league.ID] = *league
	return nil
}

// GetLeague 获取联赛
func (s *MemoryStorage) GetLeague(ctx context.Context, id string) (*models.League, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leagues[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &l, nil
}

// ListLeagues 按名称排序返回全部联赛
func (s *MemoryStorage) ListLeagues(ctx context.Context) ([]*models.League, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.League, 0, len(s.leagues))
	for _, l := range s.leagues {
		l := l
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateLeague 修改联赛
func (s *MemoryStorage) UpdateLeague(ctx context.Context, league *models.League) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.leagues[league.ID]
	if !ok {
		return common.ErrNotFound
	}
	league.CreatedAt = current.CreatedAt
	league.UpdatedAt = s.now().UTC()
	s.leagues[league.ID] = *league
	return nil
}

// DeleteLeague 删除联赛
func (s *MemoryStorage) DeleteLeague(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leagues[id]; !ok {
		return common.ErrNotFound
	}
	for _, t := range s.teams {
		if t.LeagueID == id {
			return common.ErrConflict
		}
	}
	for _, m := range s.matches {
		if m.LeagueID == id {
			return common.ErrConflict
		}
	}
	delete(s.leagues, id)
	return nil
}

// CreateTeam 保存球队
func (s *MemoryStorage) CreateTeam(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[team.ID]; ok {
		return common.NewAppError("STORAGE_FAILED", "Team already exists", common.ErrConflict)
	}
	if team.LeagueID != "" {
		if _, ok := s.leagues[team.LeagueID]; !ok {
			return common.NewAppError("INVALID_INPUT", "Unknown league "+team.LeagueID, common.ErrInvalidInput)
		}
	}
	now := s.now().UTC()
	team.CreatedAt = now
	team.UpdatedAt = now
	s.teams[team.ID] = *team
	return nil
}

// GetTeam 获取球队
func (s *MemoryStorage) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teams[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

// ListTeams 查询球队
func (s *MemoryStorage) ListTeams(ctx context.Context, filter models.TeamFilter) ([]*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Team, 0)
	for _, t := range s.teams {
		if filter.LeagueID != "" && t.LeagueID != filter.LeagueID {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// UpdateTeam 修改球队
func (s *MemoryStorage) UpdateTeam(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.teams[team.ID]
	if !ok {
		return common.ErrNotFound
	}
	if team.LeagueID != "" {
		if _, ok := s.leagues[team.LeagueID]; !ok {
			return common.NewAppError("INVALID_INPUT", "Unknown league "+team.LeagueID, common.ErrInvalidInput)
		}
	}
	team.CreatedAt = current.CreatedAt
	team.UpdatedAt = s.now().UTC()
	s.teams[team.ID] = *team
	return nil
}

// DeleteTeam 删除球队
func (s *MemoryStorage) DeleteTeam(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return common.ErrNotFound
	}
	for _, m := range s.matches {
		if m.HomeTeamID == id || m.AwayTeamID == id {
			return common.ErrConflict
		}
	}
	delete(s.teams, id)
	return nil
}

// checkMatchRefs 与 postgres 外键保持一致
func (s *MemoryStorage) checkMatchRefs(m *models.Match) error {
	if _, ok := s.leagues[m.LeagueID]; !ok {
		return common.NewAppError("INVALID_INPUT", "Unknown league "+m.LeagueID, common.ErrInvalidInput)
	}
	for _, id := range []string{m.HomeTeamID, m.AwayTeamID} {
		if _, ok := s.teams[id]; !ok {
			return common.NewAppError("INVALID_INPUT", "Unknown team "+id, common.ErrInvalidInput)
		}
	}
	return nil
}

var _ DataStorage = (*MemoryStorage)(nil)
