package model

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Nickname  string `gorm:"unique;not null"`
	PinHash   string `gorm:"not null" json:"-"`
	Avatar    string `gorm:"default:🂠"`
	Wins      int    `gorm:"default:0"`
	Losses    int    `gorm:"default:0"`
	MMR       int    `gorm:"default:1000"`
	Banned    bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Match struct {
	ID          string `gorm:"primaryKey;size:36"`
	PlayersJSON datatypes.JSON `gorm:"type:jsonb"` // nicknames in seat order
	TeamAJSON   datatypes.JSON `gorm:"type:jsonb"` // user ids
	TeamBJSON   datatypes.JSON `gorm:"type:jsonb"`
	ScoreA      int
	ScoreB      int
	WinnerTeam  int
	StartedAt   time.Time
	EndedAt     time.Time
	DurationSec int
	Ranked      bool
}

type MatchHistoryEntry struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	UserID  int64  `gorm:"index"`
	MatchID string `gorm:"size:36"`
	Won     bool
	Score   string // "12-7"
	At      time.Time
}
