// Package shortcut tracks Steam shortcut records on behalf of the agent's
// UI and enumerates Steam users for read-only queries. The agent never
// writes shortcuts.vdf itself — that remains a UI-resident operation
// driven through SteamClient — but it does parse the binary VDF format to
// answer get_steam_users-style read-only queries about what a user's
// library already has.
package shortcut

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/lobinuxsoft/capydeploy/internal/platform"
)

// steamDirCandidates are checked in order under the resolved user home.
var steamDirCandidates = []string{
	filepath.Join(".steam", "steam"),
	filepath.Join(".local", "share", "Steam"),
	filepath.Join(".var", "app", "com.valvesoftware.Steam", ".steam", "steam"),
}

// SteamDir locates the Steam installation directory, or "" if none of the
// known candidate paths exist.
func SteamDir() string {
	home := platform.UserHome()
	for _, candidate := range steamDirCandidates {
		path := filepath.Join(home, candidate)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return ""
}

// User describes one enumerated Steam userdata account.
type User struct {
	ID           string
	HasShortcuts bool
}

// Users enumerates numeric, non-zero userdata directories under the Steam
// installation, reporting whether each already has a shortcuts.vdf.
func Users() []User {
	steamDir := SteamDir()
	if steamDir == "" {
		return nil
	}
	userdataDir := filepath.Join(steamDir, "userdata")
	entries, err := os.ReadDir(userdataDir)
	if err != nil {
		return nil
	}

	var users []User
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "0" {
			continue
		}
		if _, err := strconv.ParseUint(name, 10, 64); err != nil {
			continue
		}
		hasShortcuts := fileExists(filepath.Join(userdataDir, name, "config", "shortcuts.vdf"))
		users = append(users, User{ID: name, HasShortcuts: hasShortcuts})
	}
	return users
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ShortcutEntry is one parsed record from a user's shortcuts.vdf.
type ShortcutEntry struct {
	AppID         uint32
	Name          string
	Exe           string
	StartDir      string
	LaunchOptions string
	LastPlayed    int64
}

// ReadShortcuts parses the binary shortcuts.vdf for the given Steam userID,
// returning nil if Steam isn't installed or the user has no such file.
func ReadShortcuts(userID string) []ShortcutEntry {
	steamDir := SteamDir()
	if steamDir == "" {
		return nil
	}
	path := filepath.Join(steamDir, "userdata", userID, "config", "shortcuts.vdf")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return ParseVDF(data)
}
