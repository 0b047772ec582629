package domain_test

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"arena/server/domain"
	"arena/server/domain/mocks"
)

func newTestEndpoint(t *testing.T, ctrl *gomock.Controller, hub *domain.Hub) (*domain.SessionEndpoint, *domain.Session) {
	t.Helper()
	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	se, err := domain.NewSessionEndpoint(s, c, hub)
	if err != nil {
		t.Fatalf("failed to create endpoint: %v", err)
	}
	return se, s
}

func TestHub_JoinRoutesIntoRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	registry := domain.NewRegistry()
	hub := domain.NewHub(registry)
	se, s := newTestEndpoint(t, ctrl, hub)

	hub.HandleIntent(ctx, se, []byte(`{"type":"join","roomId":"r1"}`))

	snap, ok := registry.Snapshot("r1")
	if !ok {
		t.Fatal("room r1 should exist after join")
	}
	if len(snap.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(snap.Players))
	}
	// プレイヤーIDはセッションIDがそのまま使われる
	if string(snap.Players[0].ID) != s.ID() {
		t.Errorf("player id = %s, want session id %s", snap.Players[0].ID, s.ID())
	}
}

// 不正なルームIDはデフォルトルームに落ちる
func TestHub_JoinSanitizesRoomID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	registry := domain.NewRegistry()
	hub := domain.NewHub(registry)
	se, _ := newTestEndpoint(t, ctrl, hub)

	hub.HandleIntent(ctx, se, []byte(`{"type":"join","roomId":"no spaces!"}`))

	if _, ok := registry.Snapshot(domain.DefaultRoomID); !ok {
		t.Error("join with invalid room id should land in the default room")
	}
}

func TestHub_ThirdJoinDoesNotEnterRoom(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	registry := domain.NewRegistry()
	hub := domain.NewHub(registry)

	for i := 0; i < 3; i++ {
		se, _ := newTestEndpoint(t, ctrl, hub)
		hub.HandleIntent(ctx, se, []byte(`{"type":"join","roomId":"r1"}`))
	}

	snap, _ := registry.Snapshot("r1")
	if len(snap.Players) != domain.MaxPlayers {
		t.Errorf("players = %d, want %d", len(snap.Players), domain.MaxPlayers)
	}
}

func TestHub_MoveIntentAppliesToJoinedPlayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	registry := domain.NewRegistry()
	hub := domain.NewHub(registry)
	se, _ := newTestEndpoint(t, ctrl, hub)

	hub.HandleIntent(ctx, se, []byte(`{"type":"join","roomId":"r1"}`))
	hub.HandleIntent(ctx, se, []byte(`{"type":"move","x":1,"z":2,"rotation":0.5}`))

	snap, _ := registry.Snapshot("r1")
	p := snap.Players[0]
	if p.X != 1 || p.Z != 2 || p.Rotation != 0.5 {
		t.Errorf("player = (%f, %f, rot %f), want (1, 2, 0.5)", p.X, p.Z, p.Rotation)
	}
}

// 未参加の接続からのインテントは黙って捨てる
func TestHub_IntentBeforeJoinIsDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	registry := domain.NewRegistry()
	hub := domain.NewHub(registry)
	se, _ := newTestEndpoint(t, ctrl, hub)

	hub.HandleIntent(ctx, se, []byte(`{"type":"move","x":1,"z":2,"rotation":0}`))
	hub.HandleIntent(ctx, se, []byte(`{"type":"fire","dirX":1,"dirZ":0}`))

	if ids := registry.ActiveRoomIDs(); len(ids) != 0 {
		t.Errorf("rooms = %v, want none", ids)
	}
}

func TestHub_DetachRemovesPlayer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	registry := domain.NewRegistry()
	hub := domain.NewHub(registry)
	se, _ := newTestEndpoint(t, ctrl, hub)

	hub.HandleIntent(ctx, se, []byte(`{"type":"join","roomId":"r1"}`))
	hub.Detach(ctx, se)

	if _, ok := registry.Snapshot("r1"); ok {
		t.Error("room should be torn down after the only player detaches")
	}

	// Detachは冪等
	hub.Detach(ctx, se)
}
