package domain_test

import (
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"arena/server/domain"
	"arena/server/domain/mocks"
)

// 初期化時にリソースが正しくセットアップされることを確認
func TestNewSessionEndpoint_InitializesDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	hub := domain.NewHub(domain.NewRegistry())

	se, err := domain.NewSessionEndpoint(s, c, hub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if se == nil {
		t.Fatalf("endpoint is nil")
	}
}

func TestNewSessionEndpoint_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	hub := domain.NewHub(domain.NewRegistry())

	if _, err := domain.NewSessionEndpoint(nil, c, hub); !errors.Is(err, domain.ErrInitializationFailed) {
		t.Errorf("nil session err = %v, want ErrInitializationFailed", err)
	}
	if _, err := domain.NewSessionEndpoint(s, nil, hub); !errors.Is(err, domain.ErrInitializationFailed) {
		t.Errorf("nil connection err = %v, want ErrInitializationFailed", err)
	}
	if _, err := domain.NewSessionEndpoint(s, c, nil); !errors.Is(err, domain.ErrInitializationFailed) {
		t.Errorf("nil hub err = %v, want ErrInitializationFailed", err)
	}
}

// writeLoopが動いていない間はwriteChが溜まり、溢れたらErrBackpressure
func TestSessionEndpoint_SendBackpressure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	hub := domain.NewHub(domain.NewRegistry())

	se, err := domain.NewSessionEndpoint(s, c, hub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var backpressured bool
	for i := 0; i < 2048; i++ {
		if err := se.Send([]byte("x")); err != nil {
			if !errors.Is(err, domain.ErrBackpressure) {
				t.Fatalf("err = %v, want ErrBackpressure", err)
			}
			backpressured = true
			break
		}
	}
	if !backpressured {
		t.Error("Send never reported backpressure")
	}
}
