// Package agent is the main orchestrator that ties together the settings
// store, pairing manager, upload/event plumbing, and DNS-SD advertiser
// behind a single WebSocket listener, and exposes the in-process control
// API the co-located UI drives directly (no wire protocol involved).
package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lobinuxsoft/capydeploy/internal/agentconn"
	"github.com/lobinuxsoft/capydeploy/internal/discovery"
	"github.com/lobinuxsoft/capydeploy/internal/events"
	"github.com/lobinuxsoft/capydeploy/internal/pairing"
	"github.com/lobinuxsoft/capydeploy/internal/platform"
	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

const version = "0.1.0"

// Status mirrors the local getStatus() control call.
type Status struct {
	Enabled     bool   `json:"enabled"`
	Connected   bool   `json:"connected"`
	HubName     string `json:"hubName,omitempty"`
	AgentName   string `json:"agentName"`
	InstallPath string `json:"installPath"`
	Platform    string `json:"platform"`
	Version     string `json:"version"`
	Port        int    `json:"port"`
	IP          string `json:"ip"`
}

// Supervisor wires the agent's components together and exposes the
// in-process control surface consumed by the co-located UI.
type Supervisor struct {
	store      *settings.Store
	pairing    *pairing.Manager
	events     *events.Publisher
	advertiser *discovery.Advertiser
	logger     atomic.Pointer[slog.Logger]

	addr string
	port int

	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu            sync.Mutex
	enabled       bool
	connectedHub  string
	connectedName string
}

// New builds a Supervisor. addr is the "host:port" the WebSocket listener
// binds to; port is advertised separately since DNS-SD needs an int.
func New(store *settings.Store, logger *slog.Logger, addr string, port int) *Supervisor {
	s := &Supervisor{
		store:      store,
		pairing:    pairing.New(store),
		events:     events.New(store),
		advertiser: &discovery.Advertiser{},
		addr:       addr,
		port:       port,
		upgrader:   websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
	s.logger.Store(logger)
	return s
}

// log returns the current logger. Reading through this accessor (rather
// than the field directly) is what makes SetLogger safe to call while the
// supervisor is serving connections.
func (s *Supervisor) log() *slog.Logger {
	return s.logger.Load()
}

// SetLogger swaps the logger used for all future log calls, including by
// connections accepted after the swap. In-flight connections keep the
// logger they were handed at accept time.
func (s *Supervisor) SetLogger(logger *slog.Logger) {
	s.logger.Store(logger)
}

// PersistedEnabled reports the last persisted enabled/disabled intent, for
// the caller to decide whether to Enable() on startup.
func (s *Supervisor) PersistedEnabled() bool {
	return s.store.GetBool("enabled", true)
}

// agentID returns the persisted agent identifier, deriving and persisting
// one on first use. Once set it never changes.
func (s *Supervisor) agentID() string {
	var id string
	if ok, _ := s.store.Get("agent_id", &id); ok && id != "" {
		return id
	}

	name := s.agentName()
	seed := fmt.Sprintf("%s|linux|%d", name, time.Now().UnixNano())
	sum := sha256.Sum256([]byte(seed))
	id = hex.EncodeToString(sum[:])[:8]

	if err := s.store.Set("agent_id", id); err != nil {
		s.log().Error("persist agent_id", "error", err)
	}
	return id
}

func (s *Supervisor) agentName() string {
	return s.GetSetting("agent_name", "capydeploy").(string)
}

func (s *Supervisor) installPath() string {
	raw := s.GetSetting("install_path", "~/Games").(string)
	return platform.ExpandHome(raw)
}

// Router builds the HTTP mux: a WebSocket upgrade endpoint plus minimal
// health routes, matching the teacher's chi conventions.
func (s *Supervisor) Router() *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(chimw.RealIP)
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Get("/ws", s.handleWS)
	return mux
}

func (s *Supervisor) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Warn("websocket upgrade failed", "error", err)
		return
	}

	identity := agentconn.Identity{
		AgentID:     s.agentID(),
		AgentName:   s.agentName(),
		Platform:    platform.Detect(),
		Version:     version,
		InstallPath: s.installPath(),
	}

	conn := agentconn.New(ws, s.log(), identity, s.pairing, s.store, s.events, agentconn.Hooks{
		ConnectedHubID:  s.connectedHubID,
		SetConnectedHub: s.setConnectedHub,
	})
	conn.Serve()
}

func (s *Supervisor) connectedHubID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedHub
}

func (s *Supervisor) setConnectedHub(hubID, name string) {
	s.mu.Lock()
	s.connectedHub = hubID
	s.connectedName = name
	s.mu.Unlock()
}

// Enable starts the WebSocket listener and DNS-SD advertisement. It is
// idempotent: calling it while already enabled is a no-op.
func (s *Supervisor) Enable(ctx context.Context) error {
	s.mu.Lock()
	if s.enabled {
		s.mu.Unlock()
		return nil
	}
	s.enabled = true
	s.mu.Unlock()

	if err := s.store.Set("enabled", true); err != nil {
		s.log().Error("persist enabled flag", "error", err)
	}

	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Router()}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log().Error("websocket listener exited", "error", err)
		}
	}()

	props := discovery.Properties{
		ID:       s.agentID(),
		Name:     s.agentName(),
		Platform: platform.Detect(),
		Version:  version,
	}
	if err := s.advertiser.Start(props, s.port); err != nil {
		s.log().Error("start dns-sd advertiser", "error", err)
	}

	return nil
}

// Disable stops the WebSocket listener and DNS-SD advertisement.
func (s *Supervisor) Disable(ctx context.Context) error {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return nil
	}
	s.enabled = false
	s.mu.Unlock()

	if err := s.store.Set("enabled", false); err != nil {
		s.log().Error("persist enabled flag", "error", err)
	}

	s.advertiser.Stop()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// SetEnabled toggles Enable/Disable based on the requested state.
func (s *Supervisor) SetEnabled(ctx context.Context, enabled bool) error {
	if enabled {
		return s.Enable(ctx)
	}
	return s.Disable(ctx)
}

// GetStatus answers the UI's getStatus() control call.
func (s *Supervisor) GetStatus() Status {
	s.mu.Lock()
	enabled := s.enabled
	hubName := s.connectedName
	connected := s.connectedHub != ""
	s.mu.Unlock()

	return Status{
		Enabled:     enabled,
		Connected:   connected,
		HubName:     hubName,
		AgentName:   s.agentName(),
		InstallPath: s.installPath(),
		Platform:    platform.Detect(),
		Version:     version,
		Port:        s.port,
		IP:          platform.LocalIPv4(),
	}
}

// GetSetting reads a settings-store value, or fallback if absent.
func (s *Supervisor) GetSetting(key string, fallback any) any {
	var v any
	ok, err := s.store.Get(key, &v)
	if err != nil {
		s.log().Error("get setting", "key", key, "error", err)
		return fallback
	}
	if !ok {
		return fallback
	}
	return v
}

// SetSetting writes a settings-store value.
func (s *Supervisor) SetSetting(key string, value any) error {
	return s.store.Set(key, value)
}

// SetAgentName updates the persisted agent name.
func (s *Supervisor) SetAgentName(name string) error {
	return s.store.Set("agent_name", name)
}

// SetInstallPath updates the persisted install path, expanding a leading
// "~/" to the real user home before storing.
func (s *Supervisor) SetInstallPath(path string) error {
	return s.store.Set("install_path", platform.ExpandHome(path))
}

// GetEvent drains the named lifecycle event for UI polling.
func (s *Supervisor) GetEvent(name string) (events.Record, bool, error) {
	return s.events.Drain(name)
}

// GetAuthorizedHubs lists hubs with a valid pairing token.
func (s *Supervisor) GetAuthorizedHubs() (map[string]pairing.AuthorizedHub, error) {
	return s.pairing.AuthorizedHubs()
}

// RevokeHub removes a hub's pairing token.
func (s *Supervisor) RevokeHub(hubID string) (bool, error) {
	return s.pairing.RevokeHub(hubID)
}

// LogInfo and LogError let the UI funnel its own messages into the
// agent's structured log.
func (s *Supervisor) LogInfo(msg string, args ...any)  { s.log().Info(msg, args...) }
func (s *Supervisor) LogError(msg string, args ...any) { s.log().Error(msg, args...) }

// TrackedShortcut is a Steam shortcut record created for an installed
// game, keyed by game name. This is the settings-store bookkeeping the
// wire protocol's list_shortcuts/delete_game operate on; it is distinct
// from InstalledGame, which reflects what's actually on disk.
type TrackedShortcut struct {
	Name        string `json:"name"`
	Exe         string `json:"exe"`
	StartDir    string `json:"startDir"`
	AppID       int64  `json:"appId"`
	InstalledAt int64  `json:"installedAt"`
}

// InstalledGame describes one game folder found directly under the
// install root, with its total on-disk size.
type InstalledGame struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// GetInstalledGames lists the subdirectories of the install root,
// recursively summing each one's file sizes.
func (s *Supervisor) GetInstalledGames() ([]InstalledGame, error) {
	root := s.installPath()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read install root: %w", err)
	}

	var games []InstalledGame
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		gamePath := filepath.Join(root, entry.Name())
		games = append(games, InstalledGame{
			Name: entry.Name(),
			Path: gamePath,
			Size: dirSize(gamePath),
		})
	}
	return games, nil
}

// dirSize recursively sums file sizes under path, skipping entries it
// cannot stat rather than failing the whole walk.
func dirSize(path string) int64 {
	var total int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// UninstallGame removes a game's install directory by name and drops any
// tracked shortcut pointing at it.
func (s *Supervisor) UninstallGame(name string) error {
	gamePath := filepath.Join(s.installPath(), name)
	info, err := os.Stat(gamePath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("game not found: %s", name)
	}
	if err := os.RemoveAll(gamePath); err != nil {
		return fmt.Errorf("remove install directory: %w", err)
	}

	var tracked []TrackedShortcut
	if _, err := s.store.Get("tracked_shortcuts", &tracked); err != nil {
		return err
	}
	for i, g := range tracked {
		if strings.EqualFold(g.Name, name) {
			tracked = append(tracked[:i], tracked[i+1:]...)
			return s.store.Set("tracked_shortcuts", tracked)
		}
	}
	return nil
}

// RegisterShortcut records a Steam-assigned appId against a tracked
// shortcut once the UI has created it via the Steam client.
func (s *Supervisor) RegisterShortcut(gameName string, appID int64) error {
	var tracked []TrackedShortcut
	if _, err := s.store.Get("tracked_shortcuts", &tracked); err != nil {
		return err
	}
	for i, g := range tracked {
		if strings.EqualFold(g.Name, gameName) {
			tracked[i].AppID = appID
			return s.store.Set("tracked_shortcuts", tracked)
		}
	}
	return fmt.Errorf("no tracked shortcut for game: %s", gameName)
}
