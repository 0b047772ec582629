package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// クライアント→サーバーのインテントと、サーバー→クライアントのイベントを
// 閉じたタグ付きバリアントとして定義する。エンベロープは {"type": ..., ...} のフラットJSON。

type IntentType string

const (
	IntentJoin      IntentType = "join"
	IntentMove      IntentType = "move"
	IntentFire      IntentType = "fire"
	IntentHeartbeat IntentType = "heartbeat"
	IntentRematch   IntentType = "rematch"
	IntentLeave     IntentType = "leave"
)

var (
	ErrEmptyIntent   = errors.New("empty intent payload")
	ErrUnknownIntent = errors.New("unknown intent type")
)

// Intent は受信アクション。バリアントはインテント種別ごとに1つ。
type Intent interface {
	intent()
}

type JoinIntent struct {
	RoomID string `json:"roomId"`
}

type MoveIntent struct {
	X        float64 `json:"x"`
	Z        float64 `json:"z"`
	Rotation float64 `json:"rotation"`
}

type FireIntent struct {
	DirX float64 `json:"dirX"`
	DirZ float64 `json:"dirZ"`
}

type HeartbeatIntent struct{}

type RematchIntent struct{}

type LeaveIntent struct{}

func (*JoinIntent) intent()      {}
func (*MoveIntent) intent()      {}
func (*FireIntent) intent()      {}
func (*HeartbeatIntent) intent() {}
func (*RematchIntent) intent()   {}
func (*LeaveIntent) intent()     {}

// ParseIntent はワイヤーメッセージをインテントにデコードします。
// 未知のtypeや不正なJSONはエラーとして返し、呼び出し側でdropする。
func ParseIntent(data []byte) (Intent, error) {
	if len(data) == 0 {
		return nil, ErrEmptyIntent
	}
	var env struct {
		Type IntentType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case IntentJoin:
		in := &JoinIntent{}
		if err := json.Unmarshal(data, in); err != nil {
			return nil, err
		}
		return in, nil
	case IntentMove:
		in := &MoveIntent{}
		if err := json.Unmarshal(data, in); err != nil {
			return nil, err
		}
		return in, nil
	case IntentFire:
		in := &FireIntent{}
		if err := json.Unmarshal(data, in); err != nil {
			return nil, err
		}
		return in, nil
	case IntentHeartbeat:
		return &HeartbeatIntent{}, nil
	case IntentRematch:
		return &RematchIntent{}, nil
	case IntentLeave:
		return &LeaveIntent{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, env.Type)
	}
}

type EventType string

const (
	EventPlayerJoined    EventType = "player_joined"
	EventPlayerLeft      EventType = "player_left"
	EventStateUpdate     EventType = "state_update"
	EventProjectileSpawn EventType = "projectile_spawn"
	EventHitConfirm      EventType = "hit_confirm"
	EventMatchCountdown  EventType = "match_countdown"
	EventMatchStart      EventType = "match_start"
	EventMatchEnd        EventType = "match_end"
	EventRoomFull        EventType = "room_full"
)

// Event はブロードキャスト対象の送信イベント。
type Event interface {
	event()
}

// PlayerState はプレイヤーの可視状態のスナップショット。
type PlayerState struct {
	ID        PlayerID    `json:"id"`
	Character CharacterID `json:"characterId"`
	X         float64     `json:"x"`
	Z         float64     `json:"z"`
	Rotation  float64     `json:"rotation"`
	Score     int         `json:"score"`
}

// ProjectileState は弾の可視状態のスナップショット。
type ProjectileState struct {
	ID      string   `json:"id"`
	OwnerID PlayerID `json:"ownerId"`
	X       float64  `json:"x"`
	Z       float64  `json:"z"`
	VX      float64  `json:"vx"`
	VZ      float64  `json:"vz"`
}

// PlayerResult は試合終了時の1プレイヤーの最終成績。
type PlayerResult struct {
	ID        PlayerID    `json:"id"`
	Character CharacterID `json:"characterId"`
	Score     int         `json:"score"`
}

type PlayerJoinedEvent struct {
	Type   EventType   `json:"type"`
	Player PlayerState `json:"player"`
}

type PlayerLeftEvent struct {
	Type     EventType `json:"type"`
	PlayerID PlayerID  `json:"playerId"`
}

type StateUpdateEvent struct {
	Type          EventType         `json:"type"`
	Phase         string            `json:"phase"`
	TimeRemaining float64           `json:"timeRemaining"`
	Players       []PlayerState     `json:"players"`
	Projectiles   []ProjectileState `json:"projectiles"`
}

type ProjectileSpawnEvent struct {
	Type       EventType       `json:"type"`
	Projectile ProjectileState `json:"projectile"`
}

type HitConfirmEvent struct {
	Type         EventType `json:"type"`
	ProjectileID string    `json:"projectileId"`
	ShooterID    PlayerID  `json:"shooterId"`
	TargetID     PlayerID  `json:"targetId"`
	X            float64   `json:"x"`
	Z            float64   `json:"z"`
}

type MatchCountdownEvent struct {
	Type  EventType `json:"type"`
	Count int       `json:"count"`
}

type MatchStartEvent struct {
	Type EventType `json:"type"`
	// Duration は試合時間（秒）
	Duration float64 `json:"duration"`
}

type MatchEndEvent struct {
	Type     EventType      `json:"type"`
	Reason   string         `json:"reason"`
	WinnerID *PlayerID      `json:"winnerId"`
	IsTie    bool           `json:"isTie"`
	Results  []PlayerResult `json:"results"`
}

type RoomFullEvent struct {
	Type EventType `json:"type"`
}

func (*PlayerJoinedEvent) event()    {}
func (*PlayerLeftEvent) event()      {}
func (*StateUpdateEvent) event()     {}
func (*ProjectileSpawnEvent) event() {}
func (*HitConfirmEvent) event()      {}
func (*MatchCountdownEvent) event()  {}
func (*MatchStartEvent) event()      {}
func (*MatchEndEvent) event()        {}
func (*RoomFullEvent) event()        {}

func newPlayerJoined(p PlayerState) *PlayerJoinedEvent {
	return &PlayerJoinedEvent{Type: EventPlayerJoined, Player: p}
}

func newPlayerLeft(id PlayerID) *PlayerLeftEvent {
	return &PlayerLeftEvent{Type: EventPlayerLeft, PlayerID: id}
}

func newProjectileSpawn(p ProjectileState) *ProjectileSpawnEvent {
	return &ProjectileSpawnEvent{Type: EventProjectileSpawn, Projectile: p}
}

func newMatchCountdown(count int) *MatchCountdownEvent {
	return &MatchCountdownEvent{Type: EventMatchCountdown, Count: count}
}

func newMatchStart() *MatchStartEvent {
	return &MatchStartEvent{Type: EventMatchStart, Duration: MatchDuration.Seconds()}
}

func newRoomFull() *RoomFullEvent {
	return &RoomFullEvent{Type: EventRoomFull}
}

// EncodeEvent はイベントをワイヤー形式にエンコードします。
func EncodeEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
