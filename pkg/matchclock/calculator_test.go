package matchclock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"matchday-service/pkg/matchclock"
)

var kickoff = time.Date(2026, 5, 30, 19, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := kickoff.Add(d)
	return &t
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func TestCalculateFrozenStatuses(t *testing.T) {
	t.Parallel()

	frozen := []matchclock.Status{
		matchclock.StatusScheduled,
		matchclock.StatusHalfTime,
		matchclock.StatusExtraTimeBreak,
		matchclock.StatusPenalties,
		matchclock.StatusPaused,
		matchclock.StatusPostponed,
		matchclock.StatusSuspended,
		matchclock.StatusCompleted,
		matchclock.StatusCancelled,
		matchclock.StatusAbandoned,
	}

	for _, status := range frozen {
		t.Run(string(status), func(t *testing.T) {
			state := matchclock.State{
				Status:         status,
				Minute:         93,
				MatchStartedAt: at(0),
			}
			for _, now := range []time.Time{kickoff, kickoff.Add(3 * time.Hour), kickoff.Add(-time.Hour)} {
				got := matchclock.Calculate(state, now)
				assert.Equal(t, 93, got.Minute)
				assert.Equal(t, 0, got.Second)
				assert.False(t, got.IsRunning)
				assert.Equal(t, 0, got.AddedTime)
			}
		})
	}
}

func TestCalculateCompletedMatch(t *testing.T) {
	t.Parallel()

	state := matchclock.State{Status: matchclock.StatusCompleted, Minute: 93}
	got := matchclock.Calculate(state, kickoff.Add(24*time.Hour))

	assert.Equal(t, matchclock.Clock{Minute: 93, Second: 0, Phase: matchclock.PhaseCompleted, IsRunning: false}, got)
}

func TestCalculateRunningPhases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		state      matchclock.State
		now        time.Time
		wantMinute int
		wantSecond int
		wantAdded  int
		wantPhase  matchclock.Phase
	}{
		{
			name:       "kickoff",
			state:      matchclock.State{Status: matchclock.StatusLive, MatchStartedAt: at(0)},
			now:        kickoff,
			wantMinute: 0,
			wantPhase:  matchclock.PhaseFirstHalf,
		},
		{
			name:       "first half mid-minute",
			state:      matchclock.State{Status: matchclock.StatusLive, MatchStartedAt: at(0)},
			now:        kickoff.Add(12*time.Minute + 34*time.Second),
			wantMinute: 12,
			wantSecond: 34,
			wantPhase:  matchclock.PhaseFirstHalf,
		},
		{
			name:       "first half stoppage",
			state:      matchclock.State{Status: matchclock.StatusLive, MatchStartedAt: at(0)},
			now:        kickoff.Add(minutes(47)),
			wantMinute: 47,
			wantAdded:  2,
			wantPhase:  matchclock.PhaseFirstHalf,
		},
		{
			name:       "no automatic half time",
			state:      matchclock.State{Status: matchclock.StatusLive, MatchStartedAt: at(0)},
			now:        kickoff.Add(minutes(46)),
			wantMinute: 46,
			wantAdded:  1,
			wantPhase:  matchclock.PhaseFirstHalf,
		},
		{
			name: "second half uses its own start",
			state: matchclock.State{
				Status:              matchclock.StatusSecondHalf,
				MatchStartedAt:      at(0),
				SecondHalfStartedAt: at(minutes(62)),
			},
			now:        kickoff.Add(minutes(62) + 600*time.Second),
			wantMinute: 55,
			wantPhase:  matchclock.PhaseSecondHalf,
		},
		{
			name: "second half stoppage",
			state: matchclock.State{
				Status:              matchclock.StatusSecondHalf,
				SecondHalfStartedAt: at(minutes(60)),
			},
			now:        kickoff.Add(minutes(60) + minutes(49) + 5*time.Second),
			wantMinute: 94,
			wantSecond: 5,
			wantAdded:  4,
			wantPhase:  matchclock.PhaseSecondHalf,
		},
		{
			name: "extra time first period",
			state: matchclock.State{
				Status:             matchclock.StatusExtraTime,
				ExtraTimeStartedAt: at(minutes(120)),
			},
			now:        kickoff.Add(minutes(120) + 17*time.Minute + 33*time.Second),
			wantMinute: 107,
			wantSecond: 33,
			wantAdded:  2,
			wantPhase:  matchclock.PhaseExtraTimeFirst,
		},
		{
			name: "extra time second period",
			state: matchclock.State{
				Status:                   matchclock.StatusExtraTime,
				ExtraTimeStartedAt:       at(minutes(120)),
				ExtraTimeSecondStartedAt: at(minutes(140)),
			},
			now:        kickoff.Add(minutes(140) + minutes(8)),
			wantMinute: 113,
			wantPhase:  matchclock.PhaseExtraTimeSecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchclock.Calculate(tt.state, tt.now)
			assert.True(t, got.IsRunning)
			assert.Equal(t, tt.wantMinute, got.Minute)
			assert.Equal(t, tt.wantSecond, got.Second)
			assert.Equal(t, tt.wantAdded, got.AddedTime)
			assert.Equal(t, tt.wantPhase, got.Phase)
		})
	}
}

func TestCalculateMissingPhaseStartFallsBack(t *testing.T) {
	t.Parallel()

	tests := []matchclock.State{
		{Status: matchclock.StatusLive, Minute: 12},
		{Status: matchclock.StatusSecondHalf, Minute: 12, MatchStartedAt: at(0)},
		{Status: matchclock.StatusExtraTime, Minute: 12, MatchStartedAt: at(0), SecondHalfStartedAt: at(minutes(60))},
	}

	for _, state := range tests {
		got := matchclock.Calculate(state, kickoff.Add(3*time.Hour))
		assert.Equal(t, 12, got.Minute, string(state.Status))
		assert.Equal(t, 0, got.Second)
		assert.False(t, got.IsRunning)
	}
}

func TestCalculateClockSkewClampsToZero(t *testing.T) {
	t.Parallel()

	state := matchclock.State{Status: matchclock.StatusSecondHalf, SecondHalfStartedAt: at(minutes(60))}
	got := matchclock.Calculate(state, kickoff.Add(minutes(59)))

	assert.Equal(t, 45, got.Minute)
	assert.Equal(t, 0, got.Second)
	assert.True(t, got.IsRunning)
}

func TestCalculatePausedSecondsNeverNegative(t *testing.T) {
	t.Parallel()

	state := matchclock.State{Status: matchclock.StatusLive, MatchStartedAt: at(0), TotalPausedSeconds: 600}
	got := matchclock.Calculate(state, kickoff.Add(minutes(5)))

	assert.Equal(t, 0, got.Minute)
	assert.Equal(t, 0, got.Second)
}

func TestCalculatePauseCorrectness(t *testing.T) {
	t.Parallel()

	now := kickoff.Add(minutes(40))
	base := matchclock.State{Status: matchclock.StatusLive, MatchStartedAt: at(0)}

	for _, pause := range []int{60, 180, 420} {
		paused := base
		paused.TotalPausedSeconds = pause

		withoutPause := matchclock.Calculate(base, now)
		withPause := matchclock.Calculate(paused, now)
		assert.Equal(t, pause/60, withoutPause.Minute-withPause.Minute)
	}
}

func TestCalculateMeasuresUpToPausedAt(t *testing.T) {
	t.Parallel()

	state := matchclock.State{
		Status:         matchclock.StatusLive,
		MatchStartedAt: at(0),
		PausedAt:       at(minutes(20) + 15*time.Second),
	}

	got := matchclock.Calculate(state, kickoff.Add(minutes(35)))
	assert.Equal(t, 20, got.Minute)
	assert.Equal(t, 15, got.Second)
}

func TestCalculateDeterministic(t *testing.T) {
	t.Parallel()

	state := matchclock.State{
		Status:              matchclock.StatusSecondHalf,
		SecondHalfStartedAt: at(minutes(61)),
		TotalPausedSeconds:  95,
	}
	now := kickoff.Add(minutes(100) + 7*time.Second)

	first := matchclock.Calculate(state, now)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, matchclock.Calculate(state, now))
	}

	// 同一时刻不同时区的 now 结果一致
	local := now.In(time.FixedZone("UTC+8", 8*3600))
	assert.Equal(t, first, matchclock.Calculate(state, local))
}

func TestCalculateMonotonic(t *testing.T) {
	t.Parallel()

	states := []matchclock.State{
		{Status: matchclock.StatusLive, MatchStartedAt: at(0), TotalPausedSeconds: 30},
		{Status: matchclock.StatusSecondHalf, SecondHalfStartedAt: at(minutes(60))},
		{Status: matchclock.StatusExtraTime, ExtraTimeStartedAt: at(minutes(115))},
	}

	for _, state := range states {
		prev := matchclock.Calculate(state, kickoff.Add(-time.Minute))
		for s := 0; s < 3*3600; s += 7 {
			cur := matchclock.Calculate(state, kickoff.Add(time.Duration(s)*time.Second))
			assert.GreaterOrEqual(t, cur.Minute, prev.Minute)
			prev = cur
		}
	}
}

func TestCalculateAnnouncedStoppage(t *testing.T) {
	t.Parallel()

	three, five := 3, 5
	state := matchclock.State{
		Status:               matchclock.StatusLive,
		MatchStartedAt:       at(0),
		FirstHalfInjuryTime:  &three,
		SecondHalfInjuryTime: &five,
	}

	got := matchclock.Calculate(state, kickoff.Add(minutes(44)))
	assert.Equal(t, 3, got.AnnouncedStoppage)
	assert.Equal(t, 0, got.AddedTime)

	state.Status = matchclock.StatusSecondHalf
	state.SecondHalfStartedAt = at(minutes(60))
	got = matchclock.Calculate(state, kickoff.Add(minutes(100)))
	assert.Equal(t, 5, got.AnnouncedStoppage)
}
