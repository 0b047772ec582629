package domain

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session は1接続の論理的な状態を表します。
// IDはそのままコア側のプレイヤーIDとして使われ、ルーティングトークン
// (roomID, playerID) の片割れになる。
type Session struct {
	id string

	lastRead atomic.Int64

	closed atomic.Bool
}

func NewSession() *Session {
	s := &Session{
		id: uuid.NewString(),
	}
	s.lastRead.Store(time.Now().UnixNano())
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) TouchRead() {
	s.lastRead.Store(time.Now().UnixNano())
}

func (s *Session) LastRead() time.Time {
	return time.Unix(0, s.lastRead.Load())
}

// Close は初回呼び出しのみtrueを返します。
func (s *Session) Close() bool {
	return s.closed.CompareAndSwap(false, true)
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}
