package domain

import (
	"sync"
	"time"
)

type RoomID string

func (id RoomID) String() string { return string(id) }

// Phase はルームの試合ライフサイクル状態。
type Phase uint8

const (
	PhaseWaiting Phase = iota
	PhaseCountdown
	PhasePlaying
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// EndReason は試合終了の理由。
type EndReason string

const (
	EndReasonScore   EndReason = "score"
	EndReasonTimeout EndReason = "timeout"
)

// Room は1試合分の集約ルート。プレイヤーと弾を排他的に所有する。
// 全フィールドはmuの下でのみ読み書きされ、ルームをまたぐ共有状態はない。
type Room struct {
	ID RoomID

	mu      sync.Mutex
	removed bool // Registryから削除済み。遅れて届いた操作はno-opになる

	players     map[PlayerID]*Player
	joinOrder   []PlayerID // タイブレークとスポーン割当は参加順で決める
	projectiles map[string]*Projectile

	phase         Phase
	startTime     time.Time
	timeRemaining float64 // 秒

	// カウントダウンはwall-clockの締切で、tickドライバが毎回再評価する
	countdownEnd  time.Time
	countdownNext int
}

func newRoom(id RoomID) *Room {
	return &Room{
		ID:            id,
		players:       make(map[PlayerID]*Player),
		projectiles:   make(map[string]*Projectile),
		phase:         PhaseWaiting,
		timeRemaining: MatchDuration.Seconds(),
	}
}

// join はプレイヤーを追加します。満員ならErrRoomFull。
// 追加で満員になった場合はwaiting→countdown遷移が起きる。
func (r *Room) join(playerID PlayerID, now time.Time) (PlayerState, []Event, error) {
	if len(r.players) >= MaxPlayers {
		return PlayerState{}, nil, ErrRoomFull
	}

	p := newPlayer(playerID, len(r.players), now)
	r.players[playerID] = p
	r.joinOrder = append(r.joinOrder, playerID)

	state := p.state()
	events := []Event{newPlayerJoined(state)}
	if r.phase == PhaseWaiting && len(r.players) == MaxPlayers {
		r.enterCountdown(now)
	}
	return state, events, nil
}

// leave はプレイヤーを削除します。countdown/playing中の離脱は試合中断。
// 戻り値emptyがtrueならルームごと破棄する。
func (r *Room) leave(playerID PlayerID) (events []Event, empty bool) {
	if _, ok := r.players[playerID]; !ok {
		return nil, len(r.players) == 0
	}
	delete(r.players, playerID)
	for i, id := range r.joinOrder {
		if id == playerID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}

	events = append(events, newPlayerLeft(playerID))
	if len(r.players) == 0 {
		return events, true
	}

	// 2人制のため、進行中の試合は離脱で成立しなくなる
	if r.phase == PhaseCountdown || r.phase == PhasePlaying {
		r.abortMatch()
	}
	return events, false
}

// abortMatch は進行中の試合をwaitingに戻します。
// 残存プレイヤーのスコア・位置は次のカウントダウン開始まで維持する。
func (r *Room) abortMatch() {
	r.projectiles = make(map[string]*Projectile)
	r.phase = PhaseWaiting
	r.startTime = time.Time{}
	r.countdownEnd = time.Time{}
	r.countdownNext = 0
	r.timeRemaining = MatchDuration.Seconds()
}

// enterCountdown はwaiting→countdown遷移の入口処理。
// 弾をクリアし、全プレイヤーを参加順どおりのスポーン状態に戻す。
func (r *Room) enterCountdown(now time.Time) {
	r.projectiles = make(map[string]*Projectile)
	for seq, id := range r.joinOrder {
		p := r.players[id]
		p.joinSeq = seq
		p.Score = 0
		p.resetToSpawn()
	}
	r.phase = PhaseCountdown
	r.countdownEnd = now.Add(CountdownDuration)
	r.countdownNext = int(CountdownDuration / time.Second)
}

// advanceCountdown は締切に対する残り時間から未通知のカウントを流します。
// tick間隔が揺れても欠落しないよう、経過した整数秒ぶんをまとめて通知する。
func (r *Room) advanceCountdown(now time.Time) []Event {
	if r.phase != PhaseCountdown {
		return nil
	}
	var events []Event
	remaining := r.countdownEnd.Sub(now).Seconds()
	for r.countdownNext > 0 && remaining <= float64(r.countdownNext) {
		events = append(events, newMatchCountdown(r.countdownNext))
		r.countdownNext--
	}
	if remaining <= 0 {
		r.beginPlaying(now)
		events = append(events, newMatchStart())
	}
	return events
}

// beginPlaying はcountdown→playing遷移の入口処理。
func (r *Room) beginPlaying(now time.Time) {
	r.phase = PhasePlaying
	r.startTime = now
	r.timeRemaining = MatchDuration.Seconds()
	r.countdownEnd = time.Time{}
	r.countdownNext = 0
}

// endMatch はplaying→ended遷移の入口処理で、結果を一度だけ確定する。
func (r *Room) endMatch(reason EndReason) *MatchEndEvent {
	r.phase = PhaseEnded

	results := make([]PlayerResult, 0, len(r.players))
	for _, id := range r.joinOrder {
		p := r.players[id]
		results = append(results, PlayerResult{ID: p.ID, Character: p.Character, Score: p.Score})
	}

	var winnerID *PlayerID
	isTie := false
	best, bestCount := -1, 0
	for _, res := range results {
		if res.Score > best {
			best = res.Score
			bestCount = 1
		} else if res.Score == best {
			bestCount++
		}
	}
	if bestCount == 1 {
		for _, res := range results {
			if res.Score == best {
				id := res.ID
				winnerID = &id
				break
			}
		}
	} else {
		isTie = len(r.players) == MaxPlayers
	}

	return &MatchEndEvent{
		Type:     EventMatchEnd,
		Reason:   string(reason),
		WinnerID: winnerID,
		IsTie:    isTie,
		Results:  results,
	}
}

// rematch はended→waiting遷移。スコアと位置のリセットは次のカウントダウン入口で行う。
func (r *Room) rematch(now time.Time) bool {
	if r.phase != PhaseEnded {
		return false
	}
	r.projectiles = make(map[string]*Projectile)
	r.phase = PhaseWaiting
	r.startTime = time.Time{}
	r.timeRemaining = MatchDuration.Seconds()
	if len(r.players) == MaxPlayers {
		r.enterCountdown(now)
	}
	return true
}

// snapshot はブロードキャスト用の全可視状態を構築します。
func (r *Room) snapshot() *StateUpdateEvent {
	s := &StateUpdateEvent{
		Type:          EventStateUpdate,
		Phase:         r.phase.String(),
		TimeRemaining: r.timeRemaining,
		Players:       make([]PlayerState, 0, len(r.players)),
		Projectiles:   make([]ProjectileState, 0, len(r.projectiles)),
	}
	for _, id := range r.joinOrder {
		s.Players = append(s.Players, r.players[id].state())
	}
	for _, p := range r.projectiles {
		s.Projectiles = append(s.Projectiles, p.state())
	}
	return s
}

func (p *Player) state() PlayerState {
	return PlayerState{
		ID:        p.ID,
		Character: p.Character,
		X:         p.X,
		Z:         p.Z,
		Rotation:  p.Rotation,
		Score:     p.Score,
	}
}

func (p *Projectile) state() ProjectileState {
	return ProjectileState{
		ID:      p.ID,
		OwnerID: p.OwnerID,
		X:       p.X,
		Z:       p.Z,
		VX:      p.VX,
		VZ:      p.VZ,
	}
}
