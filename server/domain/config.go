package domain

import "time"

// ゲームルールの定数。実行時には変更されない。
const (
	MaxPlayers = 2
	WinScore   = 5

	// アリーナはXZ平面、原点中心
	ArenaHalfWidth = 10.0
	ArenaHalfDepth = 10.0
	SpawnOffset    = 8.0

	PlayerRadius     = 0.5
	ProjectileRadius = 0.3
	ProjectileSpeed  = 20.0

	TickRate = 30
)

const (
	TickInterval       = time.Second / TickRate
	ProjectileLifetime = 2 * time.Second
	FireCooldown       = 500 * time.Millisecond
	CountdownDuration  = 3 * time.Second
	MatchDuration      = 90 * time.Second
	HeartbeatTimeout   = 15 * time.Second
	HeartbeatInterval  = 5 * time.Second
)

// ルームIDの制約
const (
	MaxRoomIDLen  = 32
	DefaultRoomID = RoomID("default")
)
