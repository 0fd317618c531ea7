package jwt

import (
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, mutate func(*Config)) *Manager {
	t.Helper()
	cfg := Config{
		Secret:    testSecret,
		AccessTTL: 15 * time.Minute,
		Issuer:    "shopauth-test",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return m
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t, nil)

	tokenStr, err := m.Issue("user-1", "device-1", "admin")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := m.Parse(tokenStr)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", claims.Subject)
	}
	if claims.DeviceID != "device-1" {
		t.Fatalf("device id = %q, want device-1", claims.DeviceID)
	}
	if claims.Role != "admin" {
		t.Fatalf("role = %q, want admin", claims.Role)
	}
}

func TestParseExpiredToken(t *testing.T) {
	m := newTestManager(t, func(cfg *Config) {
		cfg.AccessTTL = time.Nanosecond
	})

	tokenStr, err := m.Issue("user-1", "device-1", "user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := m.Parse(tokenStr); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestExpiredTokenWithinLeewayStillParses(t *testing.T) {
	issuer := newTestManager(t, func(cfg *Config) {
		cfg.AccessTTL = time.Nanosecond
	})
	parser := newTestManager(t, func(cfg *Config) {
		cfg.Leeway = time.Minute
	})

	tokenStr, err := issuer.Issue("user-1", "device-1", "user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := parser.Parse(tokenStr); err != nil {
		t.Fatalf("expected leeway to accept just-expired token, got %v", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t, nil)
	other := newTestManager(t, func(cfg *Config) {
		cfg.Secret = []byte("ffffffffffffffffffffffffffffffff")
	})

	tokenStr, err := m.Issue("user-1", "device-1", "user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := other.Parse(tokenStr); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	m := newTestManager(t, nil)
	other := newTestManager(t, func(cfg *Config) {
		cfg.Issuer = "someone-else"
	})

	tokenStr, err := m.Issue("user-1", "device-1", "user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := other.Parse(tokenStr); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := newTestManager(t, nil)

	for _, tokenStr := range []string{"", "garbage", "a.b.c"} {
		if _, err := m.Parse(tokenStr); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid for %q, got %v", tokenStr, err)
		}
	}
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	_, err := NewManager(Config{
		Secret:    []byte("too-short"),
		AccessTTL: time.Minute,
	})
	if err == nil {
		t.Fatal("expected error for short secret")
	}
}
