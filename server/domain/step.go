package domain

import (
	"math"
	"time"
)

const dirEpsilon = 1e-6

// tick は1シミュレーションステップを実行します。
// countdown中は締切の再評価のみ、playing以外はno-op。
// 決定性のため、処理順は 積分→寿命/場外→衝突→勝利判定→タイマー で固定。
func (r *Room) tick(now time.Time) []Event {
	switch r.phase {
	case PhaseCountdown:
		return r.advanceCountdown(now)
	case PhasePlaying:
	default:
		return nil
	}

	const dt = 1.0 / TickRate
	var events []Event
	expired := make([]string, 0, len(r.projectiles))

	for id, proj := range r.projectiles {
		proj.X += proj.VX * dt
		proj.Z += proj.VZ * dt

		// 場外・寿命切れは衝突判定をスキップ。場外判定に半径は含めない
		if math.Abs(proj.X) > ArenaHalfWidth || math.Abs(proj.Z) > ArenaHalfDepth ||
			now.Sub(proj.CreatedAt) > ProjectileLifetime {
			expired = append(expired, id)
			continue
		}

		// 参加順で走査する。同時に複数人へ重なった場合は先に参加した方に当たる
		for _, targetID := range r.joinOrder {
			target := r.players[targetID]
			if target.ID == proj.OwnerID {
				continue
			}
			dx := target.X - proj.X
			dz := target.Z - proj.Z
			if math.Hypot(dx, dz) >= PlayerRadius+ProjectileRadius {
				continue
			}

			events = append(events, &HitConfirmEvent{
				Type:         EventHitConfirm,
				ProjectileID: proj.ID,
				ShooterID:    proj.OwnerID,
				TargetID:     target.ID,
				X:            proj.X,
				Z:            proj.Z,
			})
			expired = append(expired, id)

			// 射手が既に退室している弾は命中のみ通知し、加点しない
			owner, ok := r.players[proj.OwnerID]
			if ok && r.phase == PhasePlaying {
				owner.Score++
				if owner.Score >= WinScore {
					events = append(events, r.endMatch(EndReasonScore))
				}
			}
			break
		}
	}

	for _, id := range expired {
		delete(r.projectiles, id)
	}

	if r.phase == PhasePlaying {
		r.timeRemaining = math.Max(0, MatchDuration.Seconds()-now.Sub(r.startTime).Seconds())
		if r.timeRemaining <= 0 {
			events = append(events, r.endMatch(EndReasonTimeout))
		}
	}
	if r.phase == PhaseEnded && len(r.projectiles) > 0 {
		r.projectiles = make(map[string]*Projectile)
	}
	return events
}

// move は検証済みの移動インテントを適用します。不正な値は黙って捨てる。
// 回転は範囲チェックせず生のヘディングとして受け入れる。
func (r *Room) move(playerID PlayerID, x, z, rotation float64) {
	p, ok := r.players[playerID]
	if !ok {
		return
	}
	if !isFinite(x) || !isFinite(z) || !isFinite(rotation) {
		return
	}
	p.X = clamp(x, -ArenaHalfWidth+PlayerRadius, ArenaHalfWidth-PlayerRadius)
	p.Z = clamp(z, -ArenaHalfDepth+PlayerRadius, ArenaHalfDepth-PlayerRadius)
	p.Rotation = rotation
}

// fire は発射インテントを検証し、通れば弾を生成します。
// 却下時はnil（no-op）。クールダウン中・縮退した方向ベクトル・playing以外は全て却下。
func (r *Room) fire(playerID PlayerID, dirX, dirZ float64, now time.Time) *Projectile {
	if r.phase != PhasePlaying {
		return nil
	}
	p, ok := r.players[playerID]
	if !ok {
		return nil
	}
	if !isFinite(dirX) || !isFinite(dirZ) {
		return nil
	}
	if now.Sub(p.lastFireTime) < FireCooldown {
		return nil
	}
	mag := math.Hypot(dirX, dirZ)
	if mag < dirEpsilon {
		return nil
	}

	proj := newProjectile(p, dirX/mag, dirZ/mag, now)
	r.projectiles[proj.ID] = proj
	p.lastFireTime = now
	return proj
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
