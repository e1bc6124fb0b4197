package processing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchday-service/pkg/common"
	"matchday-service/pkg/models"
)

func TestValidatorMatchInput(t *testing.T) {
	v := NewDataValidator("test", common.NopLogger{})
	ctx := context.Background()

	valid := models.MatchInput{
		LeagueID:   "l1",
		HomeTeamID: "t1",
		AwayTeamID: "t2",
		KickoffAt:  time.Date(2026, 5, 30, 19, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, v.Validate(ctx, valid))

	negative := -1
	bad := valid
	bad.AwayTeamID = "t1"
	bad.KickoffAt = time.Time{}
	bad.SecondHalfInjuryTime = &negative

	err := v.Validate(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidationFailed))

	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "away_team_id")
	assert.Contains(t, verr.Fields, "kickoff_at")
	assert.Contains(t, verr.Fields, "second_half_injury_time")
	assert.Equal(t, "is required", verr.Fields["kickoff_at"])
}

func TestValidatorLeagueAndTeam(t *testing.T) {
	v := NewDataValidator("test", common.NopLogger{})
	ctx := context.Background()

	assert.NoError(t, v.Validate(ctx, models.League{Name: "Premier League"}))

	err := v.Validate(ctx, models.League{Name: strings.Repeat("x", 101)})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be at most 100", verr.Fields["name"])

	err = v.Validate(ctx, models.Team{})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is required", verr.Fields["name"])
}
