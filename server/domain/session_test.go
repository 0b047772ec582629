package domain

import "testing"

func TestNewSession_AssignsID(t *testing.T) {
	s1 := NewSession()
	s2 := NewSession()
	if s1.ID() == "" {
		t.Error("session ID should not be empty")
	}
	if s1.ID() == s2.ID() {
		t.Error("session IDs should be unique")
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := NewSession()
	if !s.Close() {
		t.Error("first Close should return true")
	}
	if s.Close() {
		t.Error("second Close should return false")
	}
	if !s.IsClosed() {
		t.Error("session should report closed")
	}
}

func TestSession_TouchReadAdvances(t *testing.T) {
	s := NewSession()
	before := s.LastRead()
	s.TouchRead()
	if s.LastRead().Before(before) {
		t.Error("LastRead went backwards")
	}
}
