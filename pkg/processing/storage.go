package processing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
)

// PostgreSQLStorage PostgreSQL 存储实现
type PostgreSQLStorage struct {
	db     *sql.DB
	logger common.Logger
}

// NewPostgreSQLStorage 创建 PostgreSQL 存储
func NewPostgreSQLStorage(db *sql.DB, logger common.Logger) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		db:     db,
		logger: logger,
	}
}

// Ping 健康检查
func (s *PostgreSQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const matchColumns = `id, league_id, home_team_id, away_team_id, venue, kickoff_at,
	status, minute, match_started_at, second_half_started_at, extra_time_started_at,
	extra_time_second_started_at, first_half_injury_time, second_half_injury_time,
	extra_time_first_injury_time, extra_time_second_injury_time, paused_at,
	total_paused_seconds, match_ended_at, first_half_ended_at, second_half_ended_at,
	extra_time_ended_at, penalties_started_at, paused_from_status, version, created_at, updated_at`

// clockColumns Transition.Columns 允许写入的列
var clockColumns = map[string]bool{
	"status":                       true,
	"minute":                       true,
	"match_started_at":             true,
	"second_half_started_at":       true,
	"extra_time_started_at":        true,
	"extra_time_second_started_at": true,
	"paused_at":                    true,
	"total_paused_seconds":         true,
	"paused_from_status":           true,
	"match_ended_at":               true,
	"first_half_ended_at":          true,
	"second_half_ended_at":         true,
	"extra_time_ended_at":          true,
	"penalties_started_at":         true,
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	var status string
	var pausedFrom sql.NullString
	err := row.Scan(
		&m.ID,
		&m.LeagueID,
		&m.HomeTeamID,
		&m.AwayTeamID,
		&m.Venue,
		&m.KickoffAt,
		&status,
		&m.Minute,
		&m.MatchStartedAt,
		&m.SecondHalfStartedAt,
		&m.ExtraTimeStartedAt,
		&m.ExtraTimeSecondStartedAt,
		&m.FirstHalfInjuryTime,
		&m.SecondHalfInjuryTime,
		&m.ExtraTimeFirstInjuryTime,
		&m.ExtraTimeSecondInjuryTime,
		&m.PausedAt,
		&m.TotalPausedSeconds,
		&m.MatchEndedAt,
		&m.FirstHalfEndedAt,
		&m.SecondHalfEndedAt,
		&m.ExtraTimeEndedAt,
		&m.PenaltiesStartedAt,
		&pausedFrom,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Status = matchclock.Status(status)
	m.PausedFromStatus = matchclock.Status(pausedFrom.String)
	m.KickoffAt = m.KickoffAt.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	for _, ts := range []**time.Time{
		&m.MatchStartedAt, &m.SecondHalfStartedAt, &m.ExtraTimeStartedAt, &m.ExtraTimeSecondStartedAt,
		&m.PausedAt, &m.MatchEndedAt, &m.FirstHalfEndedAt, &m.SecondHalfEndedAt,
		&m.ExtraTimeEndedAt, &m.PenaltiesStartedAt,
	} {
		if *ts != nil {
			utc := (*ts).UTC()
			*ts = &utc
		}
	}
	return &m, nil
}

// CreateMatch 保存新比赛
func (s *PostgreSQLStorage) CreateMatch(ctx context.Context, match *models.Match) error {
	s.logger.Debug("Creating match: %s", match.ID)

	query := `
		INSERT INTO matches (id, league_id, home_team_id, away_team_id, venue, kickoff_at, status, minute,
			first_half_injury_time, second_half_injury_time, extra_time_first_injury_time,
			extra_time_second_injury_time, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, NOW(), NOW())
		RETURNING version, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		match.ID,
		match.LeagueID,
		match.HomeTeamID,
		match.AwayTeamID,
		match.Venue,
		match.KickoffAt,
		string(match.Status),
		match.Minute,
		match.FirstHalfInjuryTime,
		match.SecondHalfInjuryTime,
		match.ExtraTimeFirstInjuryTime,
		match.ExtraTimeSecondInjuryTime,
	).Scan(&match.Version, &match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		s.logger.Error("Failed to create match: %v", err)
		return translate("Failed to create match", err, false)
	}

	match.CreatedAt = match.CreatedAt.UTC()
	match.UpdatedAt = match.UpdatedAt.UTC()
	return nil
}

// GetMatch 获取比赛
func (s *PostgreSQLStorage) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	s.logger.Debug("Getting match: %s", id)

	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if err != nil {
		return nil, translate("Failed to get match", err, false)
	}
	return m, nil
}

// ListMatches 查询比赛
func (s *PostgreSQLStorage) ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(filter.Status))
		argPos++
	}
	if filter.LeagueID != "" {
		query += fmt.Sprintf(" AND league_id = $%d", argPos)
		args = append(args, filter.LeagueID)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY kickoff_at ASC, id ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, normalizeLimit(filter.Limit), offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to list matches: %v", err)
		return nil, translate("Failed to list matches", err, false)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, translate("Failed to scan match", err, false)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("Failed to list matches", err, false)
	}
	return matches, nil
}

// UpdateMatchDetails 修改比赛基础信息
func (s *PostgreSQLStorage) UpdateMatchDetails(ctx context.Context, match *models.Match) error {
	s.logger.Debug("Updating match details: %s (version %d)", match.ID, match.Version)

	query := `
		UPDATE matches SET
			league_id = $1,
			home_team_id = $2,
			away_team_id = $3,
			venue = $4,
			kickoff_at = $5,
			first_half_injury_time = $6,
			second_half_injury_time = $7,
			extra_time_first_injury_time = $8,
			extra_time_second_injury_time = $9,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $10 AND version = $11
		RETURNING ` + matchColumns

	row := s.db.QueryRowContext(ctx, query,
		match.LeagueID,
		match.HomeTeamID,
		match.AwayTeamID,
		match.Venue,
		match.KickoffAt,
		match.FirstHalfInjuryTime,
		match.SecondHalfInjuryTime,
		match.ExtraTimeFirstInjuryTime,
		match.ExtraTimeSecondInjuryTime,
		match.ID,
		match.Version,
	)

	updated, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s.missingOrConflict(ctx, match.ID)
	}
	if err != nil {
		s.logger.Error("Failed to update match %s: %v", match.ID, err)
		return translate("Failed to update match", err, false)
	}

	*match = *updated
	return nil
}

// UpdateClock 只写入 Transition 选中的列, 并检查版本
func (s *PostgreSQLStorage) UpdateClock(ctx context.Context, id string, tr matchclock.Transition, expectedVersion int) (*models.Match, error) {
	cols := tr.Columns()

	names := make([]string, 0, len(cols))
	for name := range cols {
		if !clockColumns[name] {
			return nil, fmt.Errorf("%w: column %q is not a clock column", common.ErrInvalidInput, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+2)
	args := make([]interface{}, 0, len(names)+2)
	for i, name := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", name, i+1))
		args = append(args, cols[name])
	}
	sets = append(sets, "version = version + 1", "updated_at = NOW()")
	args = append(args, id, expectedVersion)

	query := fmt.Sprintf(
		"UPDATE matches SET %s WHERE id = $%d AND version = $%d RETURNING %s",
		strings.Join(sets, ", "), len(names)+1, len(names)+2, matchColumns,
	)

	s.logger.Debug("Applying %s to match %s (version %d): %v", tr.Action, id, expectedVersion, names)

	updated, err := scanMatch(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.missingOrConflict(ctx, id)
	}
	if err != nil {
		s.logger.Error("Failed to update clock of match %s: %v", id, err)
		return nil, translate("Failed to update match clock", err, false)
	}
	return updated, nil
}

// DeleteMatch 删除比赛
func (s *PostgreSQLStorage) DeleteMatch(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "matches", id)
}

// missingOrConflict 条件更新没有命中时区分不存在和版本冲突
func (s *PostgreSQLStorage) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return translate("Failed to check match", err, false)
	}
	if !exists {
		return common.ErrNotFound
	}
	return common.ErrConflict
}

// CreateLeague 保存联赛
func (s *PostgreSQLStorage) CreateLeague(ctx context.Context, league *models.League) error {
	query := `
		INSERT INTO leagues (id, name, country, season, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, league.ID, league.Name, league.Country, league.Season).
		Scan(&league.CreatedAt, &league.UpdatedAt)
	if err != nil {
		s.logger.Error("Failed to create league: %v", err)
		return translate("Failed to create league", err, false)
	}
	return nil
}

// GetLeague 获取联赛
func (s *PostgreSQLStorage) GetLeague(ctx context.Context, id string) (*models.League, error) {
	var l models.League
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, country, season, created_at, updated_at FROM leagues WHERE id = $1`, id,
	).Scan(&l.ID, &l.Name, &l.Country, &l.Season, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, translate("Failed to get league", err, false)
	}
	return &l, nil
}

// ListLeagues 返回全部联赛
func (s *PostgreSQLStorage) ListLeagues(ctx context.Context) ([]*models.League, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, country, season, created_at, updated_at FROM leagues ORDER BY name ASC`)
	if err != nil {
		return nil, translate("Failed to list leagues", err, false)
	}
	defer rows.Close()

	leagues := make([]*models.League, 0)
	for rows.Next() {
		var l models.League
		if err := rows.Scan(&l.ID, &l.Name, &l.Country, &l.Season, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, translate("Failed to scan league", err, false)
		}
		leagues = append(leagues, &l)
	}
	return leagues, rows.Err()
}

// UpdateLeague 修改联赛
func (s *PostgreSQLStorage) UpdateLeague(ctx context.Context, league *models.League) error {
	query := `
		UPDATE leagues SET name = $1, country = $2, season = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, league.Name, league.Country, league.Season, league.ID).
		Scan(&league.CreatedAt, &league.UpdatedAt)
	if err != nil {
		return translate("Failed to update league", err, false)
	}
	return nil
}

// DeleteLeague 删除联赛
func (s *PostgreSQLStorage) DeleteLeague(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "leagues", id)
}

// CreateTeam 保存球队
func (s *PostgreSQLStorage) CreateTeam(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (id, league_id, name, short_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, team.ID, nullString(team.LeagueID), team.Name, team.ShortName).
		Scan(&team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		s.logger.Error("Failed to create team: %v", err)
		return translate("Failed to create team", err, false)
	}
	return nil
}

// GetTeam 获取球队
func (s *PostgreSQLStorage) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	var t models.Team
	var leagueID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, league_id, name, short_name, created_at, updated_at FROM teams WHERE id = $1`, id,
	).Scan(&t.ID, &leagueID, &t.Name, &t.ShortName, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translate("Failed to get team", err, false)
	}
	t.LeagueID = leagueID.String
	return &t, nil
}

// ListTeams 查询球队
func (s *PostgreSQLStorage) ListTeams(ctx context.Context, filter models.TeamFilter) ([]*models.Team, error) {
	query := `SELECT id, league_id, name, short_name, created_at, updated_at FROM teams`
	args := []interface{}{}
	if filter.LeagueID != "" {
		query += ` WHERE league_id = $1`
		args = append(args, filter.LeagueID)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("Failed to list teams", err, false)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var t models.Team
		var leagueID sql.NullString
		if err := rows.Scan(&t.ID, &leagueID, &t.Name, &t.ShortName, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, translate("Failed to scan team", err, false)
		}
		t.LeagueID = leagueID.String
		teams = append(teams, &t)
	}
	return teams, rows.Err()
}

// UpdateTeam 修改球队
func (s *PostgreSQLStorage) UpdateTeam(ctx context.Context, team *models.Team) error {
	query := `
		UPDATE teams SET league_id = $1, name = $2, short_name = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, nullString(team.LeagueID), team.Name, team.ShortName, team.ID).
		Scan(&team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return translate("Failed to update team", err, false)
	}
	return nil
}

// DeleteTeam 删除球队
func (s *PostgreSQLStorage) DeleteTeam(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "teams", id)
}

func (s *PostgreSQLStorage) deleteByID(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("Failed to delete from %s: %v", table, err)
		return translate("Failed to delete from "+table, err, true)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return translate("Failed to delete from "+table, err, true)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// translate 把驱动错误映射为 common 中的哨兵错误
func translate(message string, err error, deleting bool) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return common.NewAppError("CONFLICT", message, common.ErrConflict)
		case "23503": // foreign_key_violation
			if deleting {
				return common.NewAppError("CONFLICT", message, common.ErrConflict)
			}
			return common.NewAppError("INVALID_INPUT", message, common.ErrInvalidInput)
		case "23514": // check_violation
			return common.NewAppError("INVALID_INPUT", message, common.ErrInvalidInput)
		}
	}

	return common.NewAppError("STORAGE_FAILED", message, fmt.Errorf("%w: %v", common.ErrStorageFailed, err))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ DataStorage = (*PostgreSQLStorage)(nil)
