package models

import "time"

// League 联赛
type League struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,max=100"`
	Country   string    `json:"country,omitempty" validate:"max=100"`
	Season    string    `json:"season,omitempty" validate:"max=20"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Team 球队
type Team struct {
	ID        string    `json:"id"`
	LeagueID  string    `json:"league_id,omitempty"`
	Name      string    `json:"name" validate:"required,max=100"`
	ShortName string    `json:"short_name,omitempty" validate:"max=10"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamFilter 球队列表查询条件
type TeamFilter struct {
	LeagueID string
}
