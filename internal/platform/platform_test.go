package platform

import "testing"

func TestLocalIPv4_NeverEmpty(t *testing.T) {
	ip := LocalIPv4()
	if ip == "" {
		t.Fatal("expected a non-empty IPv4 address")
	}
}

func TestHostname_NeverEmpty(t *testing.T) {
	if Hostname() == "" {
		t.Fatal("expected a non-empty hostname")
	}
}

func TestExpandHome_NoTilde(t *testing.T) {
	if got := ExpandHome("/opt/games"); got != "/opt/games" {
		t.Errorf("expected unchanged path, got %q", got)
	}
}

func TestExpandHome_Tilde(t *testing.T) {
	got := ExpandHome("~/Games")
	home := UserHome()
	want := home + "/Games"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDetect_ReturnsKnownValue(t *testing.T) {
	switch Detect() {
	case "steamdeck", "legiongologo", "rogally", "chimeraos", "bazzite", "linux":
	default:
		t.Errorf("unexpected platform value: %q", Detect())
	}
}
