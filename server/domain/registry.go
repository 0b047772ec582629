package domain

import (
	"errors"
	"sync"
	"time"
)

// ErrRoomFull は定員に達したルームへのjoinで返されるエラーです。
var ErrRoomFull = errors.New("room is full")

// StaleRef はハートビートが途絶えたプレイヤーへの参照。
// 実際の退去はドライバ側がLeaveを呼ぶことで行い、単一ライターの規律を守る。
type StaleRef struct {
	RoomID   RoomID
	PlayerID PlayerID
}

// Registry はルーム集合を排他的に所有し、操作を対象ルームへ振り分けます。
// ルーム単位の変更は各Roomのロックで直列化され、ルーム間は独立に進行する。
// I/Oやタイマーは一切持たず、現在時刻は呼び出し側から渡される。
type Registry struct {
	mu    sync.RWMutex
	rooms map[RoomID]*Room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[RoomID]*Room),
	}
}

// getOrCreate はルームを遅延生成します。生成直後はwaiting。
func (g *Registry) getOrCreate(id RoomID) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.rooms[id]; ok {
		return r
	}
	r := newRoom(id)
	g.rooms[id] = r
	return r
}

func (g *Registry) get(id RoomID) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	return r, ok
}

// Join はプレイヤーをルームに参加させます。満員ならErrRoomFull。
// 最後のプレイヤー離脱と競合してルームが消えた場合は作り直して再試行する。
func (g *Registry) Join(roomID RoomID, playerID PlayerID, now time.Time) (PlayerState, []Event, error) {
	for {
		room := g.getOrCreate(roomID)
		room.mu.Lock()
		if room.removed {
			room.mu.Unlock()
			continue
		}
		state, events, err := room.join(playerID, now)
		room.mu.Unlock()
		return state, events, err
	}
}

// Leave はプレイヤーを削除します。空になったルームは登記ごと破棄する。
// 不明なルーム・プレイヤーはno-op。
func (g *Registry) Leave(roomID RoomID, playerID PlayerID) []Event {
	room, ok := g.get(roomID)
	if !ok {
		return nil
	}
	room.mu.Lock()
	events, empty := room.leave(playerID)
	if empty {
		room.removed = true
	}
	room.mu.Unlock()

	if empty {
		g.mu.Lock()
		if cur, ok := g.rooms[roomID]; ok && cur == room {
			delete(g.rooms, roomID)
		}
		g.mu.Unlock()
	}
	return events
}

// Move は移動インテントを適用します。不明なルームはno-op。
func (g *Registry) Move(roomID RoomID, playerID PlayerID, x, z, rotation float64) {
	room, ok := g.get(roomID)
	if !ok {
		return
	}
	room.mu.Lock()
	room.move(playerID, x, z, rotation)
	room.mu.Unlock()
}

// Fire は発射インテントを検証し、生成された弾の状態を返します。却下時はnil。
func (g *Registry) Fire(roomID RoomID, playerID PlayerID, dirX, dirZ float64, now time.Time) *ProjectileState {
	room, ok := g.get(roomID)
	if !ok {
		return nil
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	proj := room.fire(playerID, dirX, dirZ, now)
	if proj == nil {
		return nil
	}
	state := proj.state()
	return &state
}

// Heartbeat は生存時刻を更新します。
func (g *Registry) Heartbeat(roomID RoomID, playerID PlayerID, now time.Time) {
	room, ok := g.get(roomID)
	if !ok {
		return
	}
	room.mu.Lock()
	if p, ok := room.players[playerID]; ok {
		p.touchHeartbeat(now)
	}
	room.mu.Unlock()
}

// Rematch はended状態のルームをwaitingに戻します。受理されたらtrue。
// 既に満員ならそのままカウントダウンが始まる。
func (g *Registry) Rematch(roomID RoomID, now time.Time) (bool, []Event) {
	room, ok := g.get(roomID)
	if !ok {
		return false, nil
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if !room.rematch(now) {
		return false, nil
	}
	return true, room.advanceCountdown(now)
}

// Tick は対象ルームの1シミュレーションステップを実行し、発生イベントを返します。
func (g *Registry) Tick(roomID RoomID, now time.Time) []Event {
	room, ok := g.get(roomID)
	if !ok {
		return nil
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.tick(now)
}

// Snapshot はルームの全可視状態を返します。ルームが無ければok=false。
func (g *Registry) Snapshot(roomID RoomID) (*StateUpdateEvent, bool) {
	room, ok := g.get(roomID)
	if !ok {
		return nil, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.snapshot(), true
}

// ActiveRoomIDs はtickドライバ用のルームID一覧スナップショットを返します。
func (g *Registry) ActiveRoomIDs() []RoomID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]RoomID, 0, len(g.rooms))
	for id := range g.rooms {
		ids = append(ids, id)
	}
	return ids
}

// CollectStale はハートビートが途絶えたプレイヤーを列挙します。
// 変更は行わない。退去は呼び出し側がLeaveで実施する。
func (g *Registry) CollectStale(now time.Time) []StaleRef {
	var stale []StaleRef
	for _, id := range g.ActiveRoomIDs() {
		room, ok := g.get(id)
		if !ok {
			continue
		}
		room.mu.Lock()
		for _, pid := range room.joinOrder {
			if room.players[pid].isStale(now) {
				stale = append(stale, StaleRef{RoomID: room.ID, PlayerID: pid})
			}
		}
		room.mu.Unlock()
	}
	return stale
}

// SanitizeRoomID は外部由来のルームIDを検証します。
// 英数と_-のみ、最大MaxRoomIDLen文字。空や不正な値はデフォルトに落とす。
func SanitizeRoomID(raw string) RoomID {
	if raw == "" {
		return DefaultRoomID
	}
	if len(raw) > MaxRoomIDLen {
		raw = raw[:MaxRoomIDLen]
	}
	for _, c := range raw {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return DefaultRoomID
		}
	}
	return RoomID(raw)
}
