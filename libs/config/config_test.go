package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "8080"); err == nil {
		t.Fatalf("expected error for out of range port")
	}
	t.Setenv("TEST_PORT", "")
	p, err := Port("TEST_PORT", "8085")
	if err != nil || p != "8085" {
		t.Fatalf("expected fallback 8085, got %q (%v)", p, err)
	}
}

func TestPositiveIntAndDuration(t *testing.T) {
	t.Setenv("TEST_STEP", "-3")
	if got := PositiveInt("TEST_STEP", 15); got != 15 {
		t.Fatalf("expected fallback 15, got %d", got)
	}
	t.Setenv("TEST_STEP", "30")
	if got := PositiveInt("TEST_STEP", 15); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}

	t.Setenv("TEST_TTL", "nonsense")
	if got := Duration("TEST_TTL", 5*time.Second); got != 5*time.Second {
		t.Fatalf("expected fallback, got %s", got)
	}
	t.Setenv("TEST_TTL", "750ms")
	if got := Duration("TEST_TTL", 5*time.Second); got != 750*time.Millisecond {
		t.Fatalf("expected 750ms, got %s", got)
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("TEST_FLAG", "off")
	if Bool("TEST_FLAG", true) {
		t.Fatalf("expected false")
	}
	t.Setenv("TEST_FLAG", "maybe")
	if !Bool("TEST_FLAG", true) {
		t.Fatalf("expected fallback true")
	}

	t.Setenv("TEST_LIST", " a, ,b ")
	got := List("TEST_LIST", "")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %v", got)
	}
}
