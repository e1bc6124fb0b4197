package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchday-service/config"
	"matchday-service/pkg/business"
	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
	"matchday-service/pkg/processing"
	"matchday-service/services"
)

const testToken = "s3cret"

var kickoff = time.Date(2026, 5, 30, 19, 0, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	storage *processing.MemoryStorage
	broker  *services.InMemoryBroker
	hub     *Hub
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		storage: processing.NewMemoryStorage(),
		broker:  services.NewInMemoryBroker(),
		now:     kickoff,
	}
	t.Cleanup(func() { _ = env.broker.Close() })

	logger := common.NopLogger{}
	validator := processing.NewDataValidator("web-test", logger)
	registry := prometheus.NewRegistry()

	matches := business.NewMatchService(logger, env.storage, validator,
		business.WithBroker(env.broker),
		business.WithMetrics(business.NewControlMetrics(registry)),
		business.WithClock(func() time.Time { return env.now }),
	)
	catalog := business.NewCatalogService(logger, env.storage, validator, nil)

	env.hub = NewHub(logger, []string{"*"})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go env.hub.Run(ctx)
	require.NoError(t, env.hub.ForwardClockEvents(ctx, env.broker))

	cfg := &config.Config{Port: "0", CORSOrigins: []string{"*"}, AdminToken: testToken}
	server := NewServer(cfg, logger, Dependencies{
		Matches:  matches,
		Catalog:  catalog,
		Health:   env.storage,
		Hub:      env.hub,
		Registry: registry,
	})
	env.handler = server.httpServer.Handler
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if admin {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

// seedMatch 通过管理接口创建联赛, 球队和比赛
func (env *testEnv) seedMatch(t *testing.T) string {
	t.Helper()

	var league struct{ League models.League }
	rec := env.do(t, http.MethodPost, "/api/admin/leagues", map[string]string{"name": "Premier League"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &league)

	teamIDs := make([]string, 0, 2)
	for _, name := range []string{"Arsenal", "Chelsea"} {
		var team struct{ Team models.Team }
		rec = env.do(t, http.MethodPost, "/api/admin/teams", map[string]string{"name": name, "league_id": league.League.ID}, true)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &team)
		teamIDs = append(teamIDs, team.Team.ID)
	}

	var created struct{ Match models.Match }
	rec = env.do(t, http.MethodPost, "/api/admin/matches", map[string]interface{}{
		"league_id":    league.League.ID,
		"home_team_id": teamIDs[0],
		"away_team_id": teamIDs[1],
		"venue":        "Emirates",
		"kickoff_at":   kickoff,
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &created)
	assert.Equal(t, matchclock.StatusScheduled, created.Match.Status)
	return created.Match.ID
}

type clockResponse struct {
	Success bool
	Clock   matchclock.Display
}

type matchResponse struct {
	Success bool
	Match   struct {
		ID      string            `json:"id"`
		Status  matchclock.Status `json:"status"`
		Version int               `json:"version"`
		Clock   matchclock.Display `json:"clock"`
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestMatchLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedMatch(t)

	rec := env.do(t, http.MethodPost, "/api/admin/matches/"+id+"/actions/start", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var started matchResponse
	decode(t, rec, &started)
	assert.Equal(t, matchclock.StatusLive, started.Match.Status)
	assert.Equal(t, 2, started.Match.Version)

	env.now = kickoff.Add(17*time.Minute + 9*time.Second)
	rec = env.do(t, http.MethodGet, "/api/matches/"+id+"/clock", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var clock clockResponse
	decode(t, rec, &clock)
	assert.Equal(t, "17:09", clock.Clock.Text)
	assert.Equal(t, "17'", clock.Clock.MinuteText)
	assert.True(t, clock.Clock.IsRunning)

	// 带过期版本的动作被拒绝
	rec = env.do(t, http.MethodPost, "/api/admin/matches/"+id+"/actions/pause", map[string]int{"version": 1}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/matches/"+id+"/actions/pause", map[string]int{"version": 2}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// 重复暂停是非法状态转换
	rec = env.do(t, http.MethodPost, "/api/admin/matches/"+id+"/actions/pause", nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/matches?status=paused", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count   int
		Matches []json.RawMessage
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	rec = env.do(t, http.MethodGet, "/api/matches/"+id, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var got matchResponse
	decode(t, rec, &got)
	assert.Equal(t, matchclock.StatusPaused, got.Match.Status)
	assert.Equal(t, 17, got.Match.Clock.Minute)
	assert.False(t, got.Match.Clock.IsRunning)
}

func TestActionErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedMatch(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown action", "/api/admin/matches/" + id + "/actions/golden_goal", "", http.StatusBadRequest},
		{"illegal transition", "/api/admin/matches/" + id + "/actions/half_time", "", http.StatusConflict},
		{"missing match", "/api/admin/matches/nope/actions/start", "", http.StatusNotFound},
		{"malformed body", "/api/admin/matches/" + id + "/actions/start", "{", http.StatusBadRequest},
		{"unknown body field", "/api/admin/matches/" + id + "/actions/start", `{"expected":1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer "+testToken)
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			var body map[string]interface{}
			decode(t, rec, &body)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestAdminRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	for _, header := range []string{"", "Bearer wrong", "Basic " + testToken, "Bearer"} {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/leagues", strings.NewReader(`{"name":"x"}`))
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}

	// 公开接口不需要 token
	rec := env.do(t, http.MethodGet, "/api/leagues", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidationErrorsReturnFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/admin/matches", map[string]interface{}{
		"home_team_id": "a",
		"away_team_id": "a",
	}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Fields map[string]string
	}
	decode(t, rec, &body)
	assert.Contains(t, body.Fields, "league_id")
	assert.Contains(t, body.Fields, "away_team_id")
	assert.Contains(t, body.Fields, "kickoff_at")
}

func TestListQueryValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"status=LIVE", "limit=-1", "offset=abc"} {
		rec := env.do(t, http.MethodGet, "/api/matches?"+q, nil, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestCatalogOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedMatch(t)

	var teams struct {
		Count int
		Teams []models.Team
	}
	rec := env.do(t, http.MethodGet, "/api/teams", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &teams)
	require.Equal(t, 2, teams.Count)

	// 被比赛引用的球队不能删除
	rec = env.do(t, http.MethodDelete, "/api/admin/teams/"+teams.Teams[0].ID, nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/admin/matches/"+id, nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/admin/teams/"+teams.Teams[0].ID, map[string]string{"name": "Arsenal FC", "short_name": "ARS"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/teams/"+teams.Teams[0].ID, nil, false)
	var team struct{ Team models.Team }
	decode(t, rec, &team)
	assert.Equal(t, "Arsenal FC", team.Team.Name)

	rec = env.do(t, http.MethodDelete, "/api/admin/teams/"+teams.Teams[0].ID, nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/teams/"+teams.Teams[0].ID, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/leagues/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedMatch(t)
	env.do(t, http.MethodGet, "/api/matches", nil, false)

	rec := env.do(t, http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",response_code="200",route="/api/matches"}`)
	assert.Contains(t, body, "match_clock_reads_total")
}

func TestRecoverPanic(t *testing.T) {
	s := &Server{logger: common.NopLogger{}}
	handler := s.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{common.ErrNotFound, http.StatusNotFound},
		{common.ErrConflict, http.StatusConflict},
		{matchclock.ErrIllegalTransition, http.StatusConflict},
		{&matchclock.InvalidActionError{Action: "x"}, http.StatusBadRequest},
		{common.ErrInvalidInput, http.StatusBadRequest},
		{&common.ValidationError{Fields: map[string]string{"name": "is required"}}, http.StatusUnprocessableEntity},
		{common.ErrUnauthorized, http.StatusUnauthorized},
		{common.NewAppError("X", "dup", common.ErrConflict), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestTokenAuthorizer(t *testing.T) {
	t.Parallel()

	assert.True(t, NewTokenAuthorizer("abc").Authorize("abc"))
	assert.False(t, NewTokenAuthorizer("abc").Authorize("abd"))
	assert.False(t, NewTokenAuthorizer("").Authorize(""))
}
