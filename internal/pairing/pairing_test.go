package pairing

import (
	"testing"
	"time"

	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	store, err := settings.Open(":memory:")
	if err != nil {
		t.Fatalf("open settings: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

func TestGenerateCode_SixDigits(t *testing.T) {
	m := newManager(t)
	code, err := m.GenerateCode("H1", "Living Room")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("expected all-digit code, got %q", code)
		}
	}
}

func TestGenerateCode_ReplacesPrior(t *testing.T) {
	m := newManager(t)
	first, _ := m.GenerateCode("H1", "Hub1")
	second, _ := m.GenerateCode("H2", "Hub2")

	if _, ok, _ := m.ValidateCode("H1", first); ok {
		t.Error("expected first pending code to be replaced")
	}
	if _, ok, _ := m.ValidateCode("H2", second); !ok {
		t.Error("expected second pending code to validate")
	}
}

func TestValidateCode_Success(t *testing.T) {
	m := newManager(t)
	code, _ := m.GenerateCode("H1", "Living Room")

	token, ok, err := m.ValidateCode("H1", code)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !ok {
		t.Fatal("expected validation success")
	}
	if len(token) != 32 {
		t.Errorf("expected 32-char token, got %d chars", len(token))
	}

	valid, err := m.ValidateToken("H1", token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if !valid {
		t.Error("expected issued token to validate")
	}
}

func TestValidateCode_WrongHub(t *testing.T) {
	m := newManager(t)
	code, _ := m.GenerateCode("H1", "Hub1")

	if _, ok, _ := m.ValidateCode("H2", code); ok {
		t.Error("expected validation to fail for mismatched hubId")
	}
}

func TestValidateCode_WrongCode(t *testing.T) {
	m := newManager(t)
	m.GenerateCode("H1", "Hub1")

	if _, ok, _ := m.ValidateCode("H1", "000000"); ok {
		t.Error("expected validation to fail for wrong code")
	}
}

func TestValidateCode_Expired(t *testing.T) {
	m := newManager(t)
	CodeExpiry = 10 * time.Millisecond
	defer func() { CodeExpiry = 60 * time.Second }()

	code, _ := m.GenerateCode("H1", "Hub1")
	time.Sleep(20 * time.Millisecond)

	if _, ok, _ := m.ValidateCode("H1", code); ok {
		t.Error("expected validation to fail after expiry")
	}
}

func TestValidateCode_NotReusable(t *testing.T) {
	m := newManager(t)
	code, _ := m.GenerateCode("H1", "Hub1")

	if _, ok, _ := m.ValidateCode("H1", code); !ok {
		t.Fatal("expected first validation to succeed")
	}
	if _, ok, _ := m.ValidateCode("H1", code); ok {
		t.Error("expected second validation with same code to fail")
	}
}

func TestValidateToken_PersistsAcrossManagers(t *testing.T) {
	store, err := settings.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	m1 := New(store)
	code, _ := m1.GenerateCode("H1", "Hub1")
	token, _, _ := m1.ValidateCode("H1", code)

	m2 := New(store)
	valid, err := m2.ValidateToken("H1", token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !valid {
		t.Error("expected token issued by one manager to validate via another sharing the same store")
	}
}

func TestRevokeHub(t *testing.T) {
	m := newManager(t)
	code, _ := m.GenerateCode("H1", "Hub1")
	token, _, _ := m.ValidateCode("H1", code)

	revoked, err := m.RevokeHub("H1")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !revoked {
		t.Error("expected revoke of known hub to report true")
	}
	if valid, _ := m.ValidateToken("H1", token); valid {
		t.Error("expected token to be invalid after revoke")
	}
}

func TestRevokeHub_UnknownIsIdempotent(t *testing.T) {
	m := newManager(t)
	revoked, err := m.RevokeHub("never-paired")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked {
		t.Error("expected revoke of unknown hub to report false")
	}
}
