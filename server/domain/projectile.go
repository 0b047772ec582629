package domain

import (
	"time"

	"github.com/google/uuid"
)

// Projectile は発射された弾を表します。速度は生成時に固定（加速なし）。
type Projectile struct {
	ID        string
	OwnerID   PlayerID
	X, Z      float64
	VX, VZ    float64
	CreatedAt time.Time
}

// newProjectile は正規化済みの方向から弾を生成します。
// 発射位置は射手の現在位置から照準方向に1ユニット進めた点。
func newProjectile(owner *Player, nx, nz float64, now time.Time) *Projectile {
	return &Projectile{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		X:         owner.X + nx,
		Z:         owner.Z + nz,
		VX:        nx * ProjectileSpeed,
		VZ:        nz * ProjectileSpeed,
		CreatedAt: now,
	}
}
