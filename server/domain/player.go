package domain

import (
	"math"
	"time"
)

type PlayerID string

func (id PlayerID) String() string { return string(id) }

// CharacterID は参加順で決まるロール。先着がA、後着がB。
type CharacterID string

const (
	CharacterA CharacterID = "A"
	CharacterB CharacterID = "B"
)

// Player はルーム内の1参加者を表します。
// フィールドの変更はRoomのロック下でのみ行われます。
type Player struct {
	ID        PlayerID
	Character CharacterID
	X, Z      float64
	Rotation  float64
	Score     int

	joinSeq       int // 参加順 (0-indexed)、スポーン位置とタイブレークを固定する
	lastHeartbeat time.Time
	lastFireTime  time.Time
}

func newPlayer(id PlayerID, seq int, now time.Time) *Player {
	p := &Player{
		ID:            id,
		Character:     characterForSlot(seq),
		joinSeq:       seq,
		lastHeartbeat: now,
	}
	p.resetToSpawn()
	return p
}

func characterForSlot(seq int) CharacterID {
	if seq == 0 {
		return CharacterA
	}
	return CharacterB
}

// resetToSpawn は参加順に応じたスポーン位置・向きに戻します。
// スポーンはX軸に沿ったミラー配置。
func (p *Player) resetToSpawn() {
	if p.joinSeq == 0 {
		p.X = -SpawnOffset
		p.Rotation = 0
	} else {
		p.X = SpawnOffset
		p.Rotation = math.Pi
	}
	p.Z = 0
}

func (p *Player) touchHeartbeat(now time.Time) {
	p.lastHeartbeat = now
}

func (p *Player) isStale(now time.Time) bool {
	return now.Sub(p.lastHeartbeat) > HeartbeatTimeout
}
