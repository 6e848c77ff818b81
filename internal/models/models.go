package models

import (
	"time"

	"gorm.io/datatypes"
)

// Credential is a pre-shared key record. Keys are provisioned directly in
// the store and are read-only to this service. Active carries no column
// default: a default tag would make gorm drop an explicit false on insert,
// and a revoked key must round-trip as inactive.
type Credential struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	PSK         string `gorm:"column:psk;type:varchar(255);uniqueIndex;not null"`
	Active      bool   `gorm:"not null"`
	Development bool   `gorm:"not null;default:false"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (Credential) TableName() string {
	return "psk"
}

// Game is a logical game session. Rows are append-only and the dev
// partition flag is fixed at creation. The child collections are declared
// here, on the parent: a struct-typed association on the child would make
// gorm guess has-one (both sides carry a GameUUID field) and migrate the
// foreign key onto the wrong table.
type Game struct {
	GameUUID string       `gorm:"column:game_uuid;type:varchar(36);primaryKey"`
	Stamp    time.Time    `gorm:"index;not null"`
	Dev      bool         `gorm:"not null;default:false"`
	Pings    []ServerPing `gorm:"foreignKey:GameUUID;references:GameUUID"`
	Players  []GamePlayer `gorm:"foreignKey:GameUUID;references:GameUUID"`
}

func (Game) TableName() string {
	return "game"
}

// ServerPing is a server listing, at most one live row per hostname+port.
// GameUUID references game(game_uuid); the constraint comes from Game.Pings.
type ServerPing struct {
	PingID   uint      `gorm:"column:ping_id;primaryKey;autoIncrement"`
	Hostname string    `gorm:"type:varchar(255);uniqueIndex:idx_hostname_port;not null"`
	Port     int       `gorm:"uniqueIndex:idx_hostname_port;not null"`
	Name     string    `gorm:"type:varchar(255);not null"`
	Ping     time.Time `gorm:"index;not null"`
	Active   int       `gorm:"not null;default:0"`
	Max      int       `gorm:"not null;default:8"`
	Dev      bool      `gorm:"not null;default:false"`
	GameUUID string    `gorm:"column:game_uuid;type:varchar(36);not null"`
	Down     bool      `gorm:"not null;default:false"`
}

func (ServerPing) TableName() string {
	return "ping"
}

// GamePlayer is one player-join event. Meta is an opaque blob supplied by
// the caller. GameUUID references game(game_uuid) via Game.Players.
type GamePlayer struct {
	GamePlayerID uint               `gorm:"column:game_player_id;primaryKey;autoIncrement"`
	GameUUID     string             `gorm:"column:game_uuid;type:varchar(36);not null"`
	Meta         datatypes.JSON     `gorm:"type:json"`
	Entries      []LeaderboardEntry `gorm:"foreignKey:GamePlayerID;references:GamePlayerID"`
}

func (GamePlayer) TableName() string {
	return "game_player"
}

// LeaderboardEntry is an append-only kill/death fact. Totals are always
// computed by summation, never stored as running counters. GamePlayerID
// references game_player(game_player_id) via GamePlayer.Entries.
type LeaderboardEntry struct {
	LeaderboardID uint `gorm:"column:leaderboard_id;primaryKey;autoIncrement"`
	GamePlayerID  uint `gorm:"column:game_player_id;not null;index"`
	Kills         int  `gorm:"not null;default:0"`
	Deaths        int  `gorm:"not null;default:0"`
}

func (LeaderboardEntry) TableName() string {
	return "leaderboard"
}
