package business

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
	"matchday-service/pkg/processing"
)

// TextNotifier 发送纯文本告警
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// Overrun 时钟超出阶段上限太久的比赛
type Overrun struct {
	MatchID string
	Status  matchclock.Status
	Version int
	Clock   matchclock.Display
}

// ClockMonitor 定期巡检进行中的比赛.
// 阶段不会自动切换, 操作员漏按半场或全场时时钟会一直走, 这里负责提醒.
type ClockMonitor struct {
	logger         common.Logger
	matches        processing.MatchRepository
	notifier       TextNotifier
	interval       time.Duration
	overrunMinutes int
	now            func() time.Time

	mu      sync.Mutex
	alerted map[string]int // matchID -> 已告警的版本

	running *prometheus.GaugeVec
}

// NewClockMonitor 创建巡检, notifier 为 nil 时只记日志, registry 为 nil 时不导出指标
func NewClockMonitor(logger common.Logger, matches processing.MatchRepository, notifier TextNotifier, interval time.Duration, overrunMinutes int, registry prometheus.Registerer) *ClockMonitor {
	m := &ClockMonitor{
		logger:         logger,
		matches:        matches,
		notifier:       notifier,
		interval:       interval,
		overrunMinutes: overrunMinutes,
		now:            time.Now,
		alerted:        make(map[string]int),
	}

	if registry != nil {
		m.running = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "match_clock_running_matches",
				Help: "Number of matches whose clock is running, by status",
			},
			[]string{"status"},
		)
		registry.MustRegister(m.running)
	}
	return m
}

// Run 按间隔巡检直到 ctx 结束
func (m *ClockMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Clock monitor started (interval %s, overrun %d min)", m.interval, m.overrunMinutes)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Clock monitor stopped")
			return
		case <-ticker.C:
			if _, err := m.Check(ctx); err != nil {
				m.logger.Error("Clock check failed: %v", err)
			}
		}
	}
}

// Check 执行一次巡检, 返回本次新发现的超时比赛
func (m *ClockMonitor) Check(ctx context.Context) ([]Overrun, error) {
	now := m.now()
	seen := make(map[string]bool)
	var found []Overrun

	for _, status := range []matchclock.Status{matchclock.StatusLive, matchclock.StatusSecondHalf, matchclock.StatusExtraTime} {
		matches, err := m.listAll(ctx, status)
		if err != nil {
			return nil, err
		}
		if m.running != nil {
			m.running.WithLabelValues(string(status)).Set(float64(len(matches)))
		}

		for _, match := range matches {
			seen[match.ID] = true
			display := matchclock.Render(match.State, now)
			limit := matchclock.ResolvePhase(match.Status).MaxMinute + m.overrunMinutes
			if display.Minute < limit || !m.markAlerted(match.ID, match.Version) {
				continue
			}
			found = append(found, Overrun{MatchID: match.ID, Status: match.Status, Version: match.Version, Clock: display})
		}
	}

	m.forgetExcept(seen)

	for _, o := range found {
		text := fmt.Sprintf("Match %s is still %s with the clock at %s. Check whether a phase change was missed.", o.MatchID, o.Status, o.Clock.MinuteText)
		m.logger.Warn("%s", text)
		if m.notifier == nil {
			continue
		}
		if err := m.notifier.SendText(ctx, text); err != nil {
			m.logger.Error("Failed to send overrun alert for match %s: %v", o.MatchID, err)
		}
	}
	return found, nil
}

// listAll 分页读取某个状态的全部比赛
func (m *ClockMonitor) listAll(ctx context.Context, status matchclock.Status) ([]*models.Match, error) {
	var all []*models.Match
	for offset := 0; ; offset += processing.MaxListLimit {
		page, err := m.matches.ListMatches(ctx, models.MatchFilter{Status: status, Limit: processing.MaxListLimit, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < processing.MaxListLimit {
			return all, nil
		}
	}
}

// markAlerted 同一版本只告警一次, 新的控制动作会让版本变化
func (m *ClockMonitor) markAlerted(matchID string, version int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.alerted[matchID]; ok && v == version {
		return false
	}
	m.alerted[matchID] = version
	return true
}

func (m *ClockMonitor) forgetExcept(running map[string]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.alerted {
		if !running[id] {
			delete(m.alerted, id)
		}
	}
}
