package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type routeKey struct {
	roomID   RoomID
	playerID PlayerID
}

// Hub はコア(Registry)を駆動する外部ドライバです。
// 接続のルーティング表を持ち、受信インテントをRegistry呼び出しに変換し、
// 固定レートのtickループとハートビート走査を回して結果をブロードキャストする。
// コア自身は時計もI/Oも持たないため、現在時刻は常にここから渡す。
type Hub struct {
	registry *Registry
	now      func() time.Time

	mu        sync.Mutex
	endpoints map[routeKey]*SessionEndpoint
	routes    map[*SessionEndpoint]routeKey
}

func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry:  registry,
		now:       time.Now,
		endpoints: make(map[routeKey]*SessionEndpoint),
		routes:    make(map[*SessionEndpoint]routeKey),
	}
}

// Run はtickループとstale走査ループを起動します。ctxキャンセルで終了。
func (h *Hub) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		h.tickLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		h.staleLoop(ctx)
		return nil
	})
	return eg.Wait()
}

// tickLoop は全ルームのシミュレーションを進め、イベントとスナップショットを配信します。
func (h *Hub) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, roomID := range h.registry.ActiveRoomIDs() {
				events := h.registry.Tick(roomID, h.now())
				h.broadcast(ctx, roomID, events...)
				if snap, ok := h.registry.Snapshot(roomID); ok {
					h.broadcast(ctx, roomID, snap)
				}
			}
		}
	}
}

// staleLoop はハートビートが途絶えたプレイヤーを強制退去させます。
func (h *Hub) staleLoop(ctx context.Context) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ref := range h.registry.CollectStale(h.now()) {
				slog.InfoContext(ctx, "evicting stale player",
					"roomID", ref.RoomID, "playerID", ref.PlayerID)
				h.evict(ctx, ref)
			}
		}
	}
}

// HandleIntent は受信メッセージを解釈してコアの操作に変換します。
// 不正なメッセージは警告ログのみでdropし、接続は維持する。
func (h *Hub) HandleIntent(ctx context.Context, se *SessionEndpoint, data []byte) {
	intent, err := ParseIntent(data)
	if err != nil {
		slog.WarnContext(ctx, "dropping malformed intent", "err", err)
		return
	}

	route, joined := h.routeOf(se)
	switch in := intent.(type) {
	case *JoinIntent:
		if joined {
			return
		}
		h.handleJoin(ctx, se, in)
	case *MoveIntent:
		if !joined {
			return
		}
		h.registry.Move(route.roomID, route.playerID, in.X, in.Z, in.Rotation)
	case *FireIntent:
		if !joined {
			return
		}
		if proj := h.registry.Fire(route.roomID, route.playerID, in.DirX, in.DirZ, h.now()); proj != nil {
			h.broadcast(ctx, route.roomID, newProjectileSpawn(*proj))
		}
	case *HeartbeatIntent:
		if !joined {
			return
		}
		h.registry.Heartbeat(route.roomID, route.playerID, h.now())
	case *RematchIntent:
		if !joined {
			return
		}
		if ok, events := h.registry.Rematch(route.roomID, h.now()); ok {
			h.broadcast(ctx, route.roomID, events...)
		}
	case *LeaveIntent:
		se.Close(ctx)
	}
}

func (h *Hub) handleJoin(ctx context.Context, se *SessionEndpoint, in *JoinIntent) {
	roomID := SanitizeRoomID(in.RoomID)
	playerID := PlayerID(se.session.ID())

	state, events, err := h.registry.Join(roomID, playerID, h.now())
	if err != nil {
		if errors.Is(err, ErrRoomFull) {
			if data, encErr := EncodeEvent(newRoomFull()); encErr == nil {
				_ = se.Send(data)
			}
			se.Close(ctx)
		}
		return
	}

	key := routeKey{roomID: roomID, playerID: state.ID}
	h.mu.Lock()
	h.endpoints[key] = se
	h.routes[se] = key
	h.mu.Unlock()

	slog.InfoContext(ctx, "player joined room",
		"roomID", roomID, "playerID", state.ID, "characterID", state.Character)
	h.broadcast(ctx, roomID, events...)
}

// Detach は接続終了時にプレイヤーをルームから退去させます。冪等。
func (h *Hub) Detach(ctx context.Context, se *SessionEndpoint) {
	h.mu.Lock()
	key, ok := h.routes[se]
	if ok {
		delete(h.routes, se)
		delete(h.endpoints, key)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	events := h.registry.Leave(key.roomID, key.playerID)
	slog.InfoContext(ctx, "player left room", "roomID", key.roomID, "playerID", key.playerID)
	h.broadcast(ctx, key.roomID, events...)
}

// evict はstale判定されたプレイヤーを退去させ、接続を閉じます。
func (h *Hub) evict(ctx context.Context, ref StaleRef) {
	key := routeKey{roomID: ref.RoomID, playerID: ref.PlayerID}
	h.mu.Lock()
	se, ok := h.endpoints[key]
	if ok {
		delete(h.endpoints, key)
		delete(h.routes, se)
	}
	h.mu.Unlock()

	events := h.registry.Leave(ref.RoomID, ref.PlayerID)
	h.broadcast(ctx, ref.RoomID, events...)
	if ok {
		se.ForceClose()
	}
}

// broadcast はルーム内の全接続へイベントを配信します。
// 送信キューが溢れた接続へはdropし、切断はしない。
func (h *Hub) broadcast(ctx context.Context, roomID RoomID, events ...Event) {
	if len(events) == 0 {
		return
	}

	h.mu.Lock()
	targets := make([]*SessionEndpoint, 0, MaxPlayers)
	for key, se := range h.endpoints {
		if key.roomID == roomID {
			targets = append(targets, se)
		}
	}
	h.mu.Unlock()

	for _, e := range events {
		data, err := EncodeEvent(e)
		if err != nil {
			slog.ErrorContext(ctx, "failed to encode event", "err", err)
			continue
		}
		for _, se := range targets {
			if err := se.Send(data); err != nil {
				slog.WarnContext(ctx, "writeCh full, event dropped", "roomID", roomID)
			}
		}
	}
}

func (h *Hub) routeOf(se *SessionEndpoint) (routeKey, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key, ok := h.routes[se]
	return key, ok
}
