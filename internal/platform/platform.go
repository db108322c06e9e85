// Package platform probes the host handheld for identity facts the rest of
// the agent needs: which device family it's running on, its LAN-facing
// IPv4 address, and the real (non-root) user home directory, since the
// agent is typically execed by a plugin loader running as a system service.
package platform

import (
	"net"
	"os"
	"path/filepath"
	"strings"
)

// Detect identifies the handheld platform by checking a fixed list of
// well-known filesystem markers, falling back to a substring scan of
// /etc/os-release, and finally to the generic "linux".
func Detect() string {
	if exists("/home/deck") {
		return "steamdeck"
	}
	if exists("/usr/share/plymouth/themes/legion-go") {
		return "legiongologo"
	}
	if exists("/usr/share/plymouth/themes/rogally") {
		return "rogally"
	}

	if data, err := os.ReadFile("/etc/os-release"); err == nil {
		content := strings.ToLower(string(data))
		switch {
		case strings.Contains(content, "steamos"):
			return "steamdeck"
		case strings.Contains(content, "chimeraos"):
			return "chimeraos"
		case strings.Contains(content, "bazzite"):
			return "bazzite"
		}
	}

	return "linux"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LocalIPv4 returns the first non-loopback IPv4 address reachable on the
// LAN, discovered by connecting a UDP socket to a well-known external
// address and reading back its local endpoint (no packets are actually
// sent). Falls back to 127.0.0.1 if no route exists.
func LocalIPv4() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}

// Hostname returns the machine hostname, or "localhost" if unavailable.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localhost"
	}
	return h
}

// UserHome returns the real, non-root user's home directory. The agent
// often runs execed by a root-owned plugin loader, so os.UserHomeDir()
// would return /root; this instead prefers known handheld user homes and
// falls back to scanning /home for a directory with a Steam install.
func UserHome() string {
	for _, candidate := range []string{"/home/deck", "/home/lobinux"} {
		if exists(candidate) {
			return candidate
		}
	}

	if entries, err := os.ReadDir("/home"); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			homePath := filepath.Join("/home", entry.Name())
			if exists(filepath.Join(homePath, ".steam")) {
				return homePath
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "/root"
}

// ExpandHome expands a leading "~/" in path to UserHome(). Paths without
// that prefix are returned unchanged.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(UserHome(), path[2:])
	}
	return path
}
