package business

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
)

// ControlMetrics 控制动作指标
type ControlMetrics struct {
	actions      *prometheus.CounterVec
	publishFails prometheus.Counter
	clockReads   prometheus.Counter
}

// NewControlMetrics 创建并注册指标
func NewControlMetrics(registry prometheus.Registerer) *ControlMetrics {
	m := &ControlMetrics{
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_clock_actions_total",
				Help: "Total number of match control actions by action and result",
			},
			[]string{"action", "result"},
		),
		publishFails: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "match_clock_publish_failures_total",
				Help: "Total number of clock events that failed to publish",
			},
		),
		clockReads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "match_clock_reads_total",
				Help: "Total number of computed clock reads",
			},
		),
	}

	registry.MustRegister(m.actions, m.publishFails, m.clockReads)
	return m
}

func (m *ControlMetrics) observeAction(action string, err error) {
	if m == nil {
		return
	}
	m.actions.With(prometheus.Labels{"action": action, "result": resultLabel(err)}).Inc()
}

func (m *ControlMetrics) observePublishFailure() {
	if m == nil {
		return
	}
	m.publishFails.Inc()
}

func (m *ControlMetrics) observeClockReads(n int) {
	if m == nil {
		return
	}
	m.clockReads.Add(float64(n))
}

func resultLabel(err error) string {
	var invalid *matchclock.InvalidActionError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &invalid):
		return "invalid"
	case errors.Is(err, matchclock.ErrIllegalTransition):
		return "illegal"
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	}
	return "error"
}
