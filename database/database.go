package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 测试连接
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrations 按顺序执行的建表语句, 可重复执行
var Migrations = []string{
	// 联赛表
	`CREATE TABLE IF NOT EXISTS leagues (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		country VARCHAR(100) NOT NULL DEFAULT '',
		season VARCHAR(20) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// 球队表
	`CREATE TABLE IF NOT EXISTS teams (
		id VARCHAR(64) PRIMARY KEY,
		league_id VARCHAR(64) REFERENCES leagues(id) ON DELETE RESTRICT,
		name VARCHAR(100) NOT NULL,
		short_name VARCHAR(10) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_teams_league_id ON teams(league_id)`,

	// 比赛表, 时钟字段与 matchclock.State 一一对应
	`CREATE TABLE IF NOT EXISTS matches (
		id VARCHAR(64) PRIMARY KEY,
		league_id VARCHAR(64) NOT NULL REFERENCES leagues(id) ON DELETE RESTRICT,
		home_team_id VARCHAR(64) NOT NULL REFERENCES teams(id) ON DELETE RESTRICT,
		away_team_id VARCHAR(64) NOT NULL REFERENCES teams(id) ON DELETE RESTRICT,
		venue VARCHAR(200) NOT NULL DEFAULT '',
		kickoff_at TIMESTAMPTZ NOT NULL,

		status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
		minute INTEGER NOT NULL DEFAULT 0,
		match_started_at TIMESTAMPTZ,
		second_half_started_at TIMESTAMPTZ,
		extra_time_started_at TIMESTAMPTZ,
		extra_time_second_started_at TIMESTAMPTZ,
		first_half_injury_time INTEGER,
		second_half_injury_time INTEGER,
		extra_time_first_injury_time INTEGER,
		extra_time_second_injury_time INTEGER,
		paused_at TIMESTAMPTZ,
		total_paused_seconds INTEGER NOT NULL DEFAULT 0,
		paused_from_status VARCHAR(20),
		match_ended_at TIMESTAMPTZ,
		first_half_ended_at TIMESTAMPTZ,
		second_half_ended_at TIMESTAMPTZ,
		extra_time_ended_at TIMESTAMPTZ,
		penalties_started_at TIMESTAMPTZ,

		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

		CONSTRAINT matches_distinct_teams CHECK (home_team_id <> away_team_id),
		CONSTRAINT matches_status_valid CHECK (status IN (
			'scheduled', 'live', 'half_time', 'second_half', 'extra_time', 'extra_time_break',
			'penalties', 'paused', 'postponed', 'suspended', 'completed', 'cancelled', 'abandoned'
		))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_league_id ON matches(league_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_kickoff_at ON matches(kickoff_at)`,

	// 中断前状态, resume 按它恢复
	`ALTER TABLE matches ADD COLUMN IF NOT EXISTS paused_from_status VARCHAR(20)`,
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	return MigrateContext(context.Background(), db)
}

// MigrateContext 在一个事务里运行全部迁移
func MigrateContext(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, migration := range Migrations {
		if _, err := tx.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
