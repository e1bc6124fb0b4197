package processing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
)

var kickoff = time.Date(2026, 5, 30, 19, 0, 0, 0, time.UTC)

// seed 写入一个联赛, 两支球队和一场未开始的比赛
func seed(t *testing.T, s DataStorage) *models.Match {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.CreateLeague(ctx, &models.League{ID: "epl", Name: "Premier League", Country: "England"}))
	require.NoError(t, s.CreateTeam(ctx, &models.Team{ID: "ars", LeagueID: "epl", Name: "Arsenal", ShortName: "ARS"}))
	require.NoError(t, s.CreateTeam(ctx, &models.Team{ID: "che", LeagueID: "epl", Name: "Chelsea", ShortName: "CHE"}))

	m := &models.Match{
		ID:         "m1",
		LeagueID:   "epl",
		HomeTeamID: "ars",
		AwayTeamID: "che",
		Venue:      "Emirates",
		KickoffAt:  kickoff,
		State:      matchclock.NewScheduledState(),
	}
	require.NoError(t, s.CreateMatch(ctx, m))
	require.Equal(t, 1, m.Version)
	return m
}

// runStorageSuite 两种存储实现共用的行为测试
func runStorageSuite(t *testing.T, newStorage func(t *testing.T) DataStorage) {
	t.Run("create and get match", func(t *testing.T) {
		s := newStorage(t)
		seed(t, s)

		got, err := s.GetMatch(context.Background(), "m1")
		require.NoError(t, err)
		assert.Equal(t, matchclock.StatusScheduled, got.Status)
		assert.Equal(t, "Emirates", got.Venue)
		assert.True(t, kickoff.Equal(got.KickoffAt))
		assert.Nil(t, got.MatchStartedAt)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("missing match", func(t *testing.T) {
		s := newStorage(t)
		_, err := s.GetMatch(context.Background(), "nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("unknown references rejected", func(t *testing.T) {
		s := newStorage(t)
		seed(t, s)

		err := s.CreateMatch(context.Background(), &models.Match{
			ID: "m2", LeagueID: "epl", HomeTeamID: "ars", AwayTeamID: "ghost",
			KickoffAt: kickoff, State: matchclock.NewScheduledState(),
		})
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("clock update writes selected columns and bumps version", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		seed(t, s)

		start, err := matchclock.BuildTransition(matchclock.ActionStart, matchclock.NewScheduledState(), kickoff)
		require.NoError(t, err)
		m, err := s.UpdateClock(ctx, "m1", start, 1)
		require.NoError(t, err)
		assert.Equal(t, matchclock.StatusLive, m.Status)
		assert.Equal(t, 2, m.Version)
		require.NotNil(t, m.MatchStartedAt)
		assert.True(t, kickoff.Equal(*m.MatchStartedAt))

		pausedAt := kickoff.Add(20 * time.Minute)
		pause, err := matchclock.BuildTransition(matchclock.ActionPause, m.State, pausedAt)
		require.NoError(t, err)
		m, err = s.UpdateClock(ctx, "m1", pause, 2)
		require.NoError(t, err)
		require.NotNil(t, m.PausedAt)
		assert.Equal(t, 20, m.Minute)
		assert.Equal(t, matchclock.StatusLive, m.PausedFromStatus)

		stored, err := s.GetMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, matchclock.StatusLive, stored.PausedFromStatus)

		resume, err := matchclock.BuildTransition(matchclock.ActionResume, m.State, pausedAt.Add(90*time.Second))
		require.NoError(t, err)
		m, err = s.UpdateClock(ctx, "m1", resume, 3)
		require.NoError(t, err)
		assert.Nil(t, m.PausedAt)
		assert.Equal(t, 90, m.TotalPausedSeconds)
		assert.Equal(t, matchclock.StatusLive, m.Status)
		assert.Empty(t, m.PausedFromStatus)
		assert.Equal(t, "Emirates", m.Venue)

		got, err := s.GetMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, m.State, got.State)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		seed(t, s)

		start, err := matchclock.BuildTransition(matchclock.ActionStart, matchclock.NewScheduledState(), kickoff)
		require.NoError(t, err)
		_, err = s.UpdateClock(ctx, "m1", start, 1)
		require.NoError(t, err)

		_, err = s.UpdateClock(ctx, "m1", start, 1)
		assert.True(t, errors.Is(err, common.ErrConflict))

		_, err = s.UpdateClock(ctx, "ghost", start, 1)
		assert.True(t, errors.Is(err, common.ErrNotFound))
	})

	t.Run("update details", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		m := seed(t, s)

		three := 3
		m.Venue = "Wembley"
		m.FirstHalfInjuryTime = &three
		require.NoError(t, s.UpdateMatchDetails(ctx, m))
		assert.Equal(t, 2, m.Version)

		got, err := s.GetMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "Wembley", got.Venue)
		require.NotNil(t, got.FirstHalfInjuryTime)
		assert.Equal(t, 3, *got.FirstHalfInjuryTime)

		stale := *got
		stale.Version = 1
		assert.ErrorIs(t, s.UpdateMatchDetails(ctx, &stale), common.ErrConflict)
	})

	t.Run("list filters and paging", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		seed(t, s)

		for i, id := range []string{"m2", "m3"} {
			require.NoError(t, s.CreateMatch(ctx, &models.Match{
				ID: id, LeagueID: "epl", HomeTeamID: "che", AwayTeamID: "ars",
				KickoffAt: kickoff.Add(time.Duration(i+1) * 24 * time.Hour),
				State:     matchclock.NewScheduledState(),
			}))
		}
		start, err := matchclock.BuildTransition(matchclock.ActionStart, matchclock.NewScheduledState(), kickoff)
		require.NoError(t, err)
		_, err = s.UpdateClock(ctx, "m3", start, 1)
		require.NoError(t, err)

		all, err := s.ListMatches(ctx, models.MatchFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"m1", "m2", "m3"}, []string{all[0].ID, all[1].ID, all[2].ID})

		live, err := s.ListMatches(ctx, models.MatchFilter{Status: matchclock.StatusLive})
		require.NoError(t, err)
		require.Len(t, live, 1)
		assert.Equal(t, "m3", live[0].ID)

		page, err := s.ListMatches(ctx, models.MatchFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "m2", page[0].ID)

		none, err := s.ListMatches(ctx, models.MatchFilter{LeagueID: "laliga"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("referenced league and team cannot be deleted", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		seed(t, s)

		assert.ErrorIs(t, s.DeleteLeague(ctx, "epl"), common.ErrConflict)
		assert.ErrorIs(t, s.DeleteTeam(ctx, "ars"), common.ErrConflict)

		require.NoError(t, s.DeleteMatch(ctx, "m1"))
		assert.ErrorIs(t, s.DeleteMatch(ctx, "m1"), common.ErrNotFound)
		require.NoError(t, s.DeleteTeam(ctx, "ars"))
		require.NoError(t, s.DeleteTeam(ctx, "che"))
		require.NoError(t, s.DeleteLeague(ctx, "epl"))
	})

	t.Run("leagues and teams", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		seed(t, s)

		require.NoError(t, s.CreateLeague(ctx, &models.League{ID: "bund", Name: "Bundesliga"}))
		leagues, err := s.ListLeagues(ctx)
		require.NoError(t, err)
		require.Len(t, leagues, 2)
		assert.Equal(t, "Bundesliga", leagues[0].Name)

		l := &models.League{ID: "bund", Name: "1. Bundesliga", Country: "Germany"}
		require.NoError(t, s.UpdateLeague(ctx, l))
		got, err := s.GetLeague(ctx, "bund")
		require.NoError(t, err)
		assert.Equal(t, "Germany", got.Country)

		assert.ErrorIs(t, s.UpdateLeague(ctx, &models.League{ID: "ghost", Name: "x"}), common.ErrNotFound)
		assert.ErrorIs(t, s.CreateLeague(ctx, &models.League{ID: "bund", Name: "dup"}), common.ErrConflict)

		require.NoError(t, s.CreateTeam(ctx, &models.Team{ID: "fcb", LeagueID: "bund", Name: "Bayern"}))
		require.NoError(t, s.CreateTeam(ctx, &models.Team{ID: "free", Name: "Free Agents"}))

		teams, err := s.ListTeams(ctx, models.TeamFilter{LeagueID: "epl"})
		require.NoError(t, err)
		assert.Len(t, teams, 2)

		all, err := s.ListTeams(ctx, models.TeamFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		team, err := s.GetTeam(ctx, "free")
		require.NoError(t, err)
		assert.Empty(t, team.LeagueID)

		team.ShortName = "FA"
		require.NoError(t, s.UpdateTeam(ctx, team))
		_, err = s.GetTeam(ctx, "ghost")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}
