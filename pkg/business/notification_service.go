package business

import (
	"context"
	"sync"
	"time"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
	"matchday-service/pkg/processing"
)

// notifyTimeout 单次通知的超时
const notifyTimeout = 10 * time.Second

// NotificationService 比赛结束后异步通知运营
type NotificationService struct {
	logger   common.Logger
	teams    processing.TeamRepository
	notifier Notifier
	wg       sync.WaitGroup
}

// NewNotificationService 创建通知服务, notifier 为 nil 时不发送
func NewNotificationService(logger common.Logger, teams processing.TeamRepository, notifier Notifier) *NotificationService {
	return &NotificationService{
		logger:   logger,
		teams:    teams,
		notifier: notifier,
	}
}

// MatchFinished 在后台发送比赛结束通知, 不阻塞控制请求
func (s *NotificationService) MatchFinished(match *models.Match, display matchclock.Display) {
	if s == nil || s.notifier == nil {
		return
	}

	m := *match
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		home := s.teamName(ctx, m.HomeTeamID)
		away := s.teamName(ctx, m.AwayTeamID)

		if err := s.notifier.NotifyMatchFinished(ctx, m.ID, home, away, display); err != nil {
			s.logger.Error("Failed to notify match %s %s: %v", m.ID, m.Status, err)
			return
		}
		s.logger.Debug("Notified match %s %s", m.ID, m.Status)
	}()
}

// teamName 查不到球队时退回 ID
func (s *NotificationService) teamName(ctx context.Context, teamID string) string {
	if s.teams == nil {
		return teamID
	}
	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		s.logger.Warn("Failed to resolve team %s: %v", teamID, err)
		return teamID
	}
	return team.Name
}

// Wait 等待所有在途通知完成
func (s *NotificationService) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}
