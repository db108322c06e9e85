// Package agentconn implements the per-connection protocol state machine
// between this agent and a single authorized Hub. Each connection runs
// exactly two logical tasks: a reader that dispatches incoming frames and
// a writer that drains a FIFO send queue, so concurrent handlers never
// interleave bytes on the wire and replies preserve handler-completion
// order.
package agentconn

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lobinuxsoft/capydeploy/internal/events"
	"github.com/lobinuxsoft/capydeploy/internal/pairing"
	"github.com/lobinuxsoft/capydeploy/internal/procmgr"
	"github.com/lobinuxsoft/capydeploy/internal/protocol"
	"github.com/lobinuxsoft/capydeploy/internal/settings"
	"github.com/lobinuxsoft/capydeploy/internal/shortcut"
	"github.com/lobinuxsoft/capydeploy/internal/upload"
)

// state is the connection's authorization lifecycle.
type state int

const (
	stateNew state = iota
	stateAwaitingPair
	stateAuthorized
	stateClosed
)

const sendQueueDepth = 32

// Identity carries this agent's self-reported identity, used in handshake
// and get_info replies.
type Identity struct {
	AgentID     string
	AgentName   string
	Platform    string
	Version     string
	InstallPath string
}

// Hooks lets the owning supervisor observe connection-level lifecycle
// transitions without agentconn importing the supervisor package.
type Hooks struct {
	// ConnectedHubID returns the hubId currently considered connected,
	// or "" if none.
	ConnectedHubID func() string
	// SetConnectedHub records which hub is connected (hubId, name), or
	// clears it when hubID is "".
	SetConnectedHub func(hubID, name string)
}

// Conn owns one WebSocket connection's lifecycle: reader loop, writer
// loop, and the pairing/upload/shortcut state those handlers touch.
type Conn struct {
	ws       *websocket.Conn
	logger   *slog.Logger
	identity Identity

	pairing *pairing.Manager
	uploads *upload.Registry
	pub     *events.Publisher
	store   *settings.Store
	hooks   Hooks

	mu    sync.Mutex
	state state
	hubID string

	send chan []byte
}

// New constructs a Conn ready to Serve. installPath is the already-expanded
// install root passed to the upload registry.
func New(ws *websocket.Conn, logger *slog.Logger, identity Identity, pm *pairing.Manager, store *settings.Store, pub *events.Publisher, hooks Hooks) *Conn {
	connID := uuid.NewString()
	return &Conn{
		ws:       ws,
		logger:   logger.With("connId", connID),
		identity: identity,
		pairing:  pm,
		uploads:  upload.NewRegistry(identity.InstallPath),
		pub:      pub,
		store:    store,
		hooks:    hooks,
		state:    stateNew,
		send:     make(chan []byte, sendQueueDepth),
	}
}

// Serve runs the reader and writer tasks until the connection closes. It
// blocks until teardown completes.
func (c *Conn) Serve() {
	c.ws.SetReadLimit(protocol.MaxFrameBytes)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()

	c.readLoop()

	close(c.send)
	wg.Wait()
	c.teardown()
}

func (c *Conn) writeLoop() {
	for frame := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.logger.Warn("write failed", "error", err)
			return
		}
	}
}

func (c *Conn) readLoop() {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.TextMessage:
			c.handleText(data)
		case websocket.BinaryMessage:
			c.handleBinary(data)
		}
	}
}

func (c *Conn) teardown() {
	_ = c.ws.Close()
	c.uploads.CancelAll()

	c.mu.Lock()
	hubID := c.hubID
	c.state = stateClosed
	c.mu.Unlock()

	if hubID != "" && c.hooks.ConnectedHubID != nil && c.hooks.ConnectedHubID() == hubID {
		c.hooks.SetConnectedHub("", "")
		_ = c.pub.Publish("hub_disconnected", map[string]any{})
	}
}

// enqueue pushes a frame onto the send queue. It is only ever called from
// the reader goroutine, which also owns closing c.send, so it never races
// a closed channel.
func (c *Conn) enqueue(frame []byte) {
	c.send <- frame
}

func (c *Conn) reply(id, msgType string, payload any) {
	env, err := protocol.Reply(id, msgType, payload)
	if err != nil {
		c.logger.Error("encode reply", "type", msgType, "error", err)
		return
	}
	data, err := protocol.EncodeEnvelope(env)
	if err != nil {
		c.logger.Error("marshal reply", "type", msgType, "error", err)
		return
	}
	c.enqueue(data)
}

func (c *Conn) replyError(id string, code int, message string) {
	env := protocol.ErrorReply(id, code, message)
	data, err := protocol.EncodeEnvelope(env)
	if err != nil {
		c.logger.Error("marshal error reply", "error", err)
		return
	}
	c.enqueue(data)
}

func (c *Conn) isAuthorized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateAuthorized
}

func (c *Conn) handleText(data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		c.logger.Warn("failed to parse json message", "error", err)
		return
	}

	switch env.Type {
	case protocol.TypeHubConnected:
		c.handleHubConnected(env)
		return
	case protocol.TypePairConfirm:
		c.handlePairConfirm(env)
		return
	}

	if !c.isAuthorized() {
		c.replyError(env.ID, 401, "Not authorized")
		return
	}

	switch env.Type {
	case protocol.TypePing:
		c.reply(env.ID, protocol.TypePong, nil)
	case protocol.TypeGetInfo:
		c.handleGetInfo(env)
	case protocol.TypeGetConfig:
		c.handleGetConfig(env)
	case protocol.TypeInitUpload:
		c.handleInitUpload(env)
	case protocol.TypeUploadChunk:
		c.handleUploadChunkText(env)
	case protocol.TypeCompleteUpload:
		c.handleCompleteUpload(env)
	case protocol.TypeCancelUpload:
		c.handleCancelUpload(env)
	case protocol.TypeGetSteamUsers:
		c.handleGetSteamUsers(env)
	case protocol.TypeListShortcuts:
		c.handleListShortcuts(env)
	case protocol.TypeDeleteGame:
		c.handleDeleteGame(env)
	case protocol.TypeRestartSteam:
		c.handleRestartSteam(env)
	default:
		c.logger.Warn("unknown message type", "type", env.Type)
	}
}

func (c *Conn) handleBinary(data []byte) {
	if !c.isAuthorized() {
		return
	}
	hdr, payload, err := protocol.DecodeBinaryFrame(data)
	if err != nil {
		c.logger.Warn("failed to parse binary frame", "error", err)
		return
	}
	c.writeChunk(hdr.ID, hdr.UploadID, hdr.FilePath, hdr.Offset, payload)
}

func (c *Conn) handleHubConnected(env protocol.Envelope) {
	var hello protocol.HubConnectedPayload
	if err := protocol.DecodePayload(env, &hello); err != nil {
		c.logger.Warn("bad hub_connected payload", "error", err)
		return
	}

	if hello.Token != "" {
		ok, err := c.pairing.ValidateToken(hello.HubID, hello.Token)
		if err != nil {
			c.logger.Error("validate token", "error", err)
		}
		if ok {
			c.authorize(hello.HubID, hello.Name)
			c.reply(env.ID, protocol.TypeAgentStatus, protocol.AgentStatusPayload{
				Name:              c.identity.AgentName,
				Version:           c.identity.Version,
				Platform:          c.identity.Platform,
				AcceptConnections: true,
			})
			_ = c.pub.Publish("hub_connected", map[string]any{"hubId": hello.HubID, "name": hello.Name})
			return
		}
	}

	if hello.HubID == "" {
		c.replyError(env.ID, 401, "hub_id required")
		return
	}

	c.mu.Lock()
	c.state = stateAwaitingPair
	c.hubID = hello.HubID
	c.mu.Unlock()

	code, err := c.pairing.GenerateCode(hello.HubID, hello.Name)
	if err != nil {
		c.logger.Error("generate pairing code", "error", err)
		return
	}
	c.reply(env.ID, protocol.TypePairingRequired, protocol.PairingRequiredPayload{
		Code:      code,
		ExpiresIn: int(pairing.CodeExpiry.Seconds()),
	})
	_ = c.pub.Publish("pairing_code", map[string]any{"code": code})
}

func (c *Conn) handlePairConfirm(env protocol.Envelope) {
	var req protocol.PairConfirmPayload
	if err := protocol.DecodePayload(env, &req); err != nil {
		c.logger.Warn("bad pair_confirm payload", "error", err)
		return
	}

	c.mu.Lock()
	hubID := c.hubID
	c.mu.Unlock()

	token, ok, err := c.pairing.ValidateCode(hubID, req.Code)
	if err != nil {
		c.logger.Error("validate code", "error", err)
	}
	if !ok {
		c.reply(env.ID, protocol.TypePairFailed, protocol.PairFailedPayload{Reason: "Invalid code"})
		return
	}

	c.authorize(hubID, "")
	c.reply(env.ID, protocol.TypePairSuccess, protocol.PairSuccessPayload{Token: token})
	_ = c.pub.Publish("pairing_success", map[string]any{"hubId": hubID})
}

func (c *Conn) authorize(hubID, name string) {
	c.mu.Lock()
	c.state = stateAuthorized
	c.hubID = hubID
	c.mu.Unlock()

	if c.hooks.SetConnectedHub != nil {
		c.hooks.SetConnectedHub(hubID, name)
	}
}

func (c *Conn) handleGetInfo(env protocol.Envelope) {
	c.reply(env.ID, protocol.TypeInfoResponse, protocol.InfoResponsePayload{
		AgentID:      c.identity.AgentID,
		AgentName:    c.identity.AgentName,
		Platform:     c.identity.Platform,
		Version:      c.identity.Version,
		Capabilities: protocol.Capabilities,
	})
}

func (c *Conn) handleGetConfig(env protocol.Envelope) {
	c.reply(env.ID, protocol.TypeConfigResponse, protocol.ConfigResponsePayload{
		InstallPath: c.identity.InstallPath,
	})
}

func (c *Conn) handleInitUpload(env protocol.Envelope) {
	var req protocol.InitUploadPayload
	if err := protocol.DecodePayload(env, &req); err != nil {
		c.logger.Warn("bad init_upload payload", "error", err)
		return
	}

	files := make([]upload.File, len(req.Files))
	for i, f := range req.Files {
		files[i] = upload.File{Path: f.Path, Size: f.Size, Mode: f.Mode}
	}

	session, err := c.uploads.Open(req.Config.GameName, req.TotalSize, files)
	if err != nil {
		c.logger.Error("open upload session", "error", err)
		c.replyError(env.ID, 500, "failed to start upload")
		return
	}

	c.logger.Info("upload started", "game", req.Config.GameName, "bytes", req.TotalSize, "path", session.InstallPath)
	_ = c.pub.Publish("operation_event", protocol.OperationEventPayload{
		Type: "install", Status: "start", GameName: req.Config.GameName,
	})

	c.reply(env.ID, protocol.TypeUploadInitResp, protocol.UploadInitResponsePayload{
		UploadID:  session.ID,
		ChunkSize: upload.ChunkSize,
	})
}

func (c *Conn) handleUploadChunkText(env protocol.Envelope) {
	var req protocol.UploadChunkPayload
	if err := protocol.DecodePayload(env, &req); err != nil {
		c.logger.Warn("bad upload_chunk payload", "error", err)
		return
	}
	c.writeChunk(env.ID, req.UploadID, req.FilePath, req.Offset, req.Data)
}

func (c *Conn) writeChunk(replyID, uploadID, filePath string, offset int64, data []byte) {
	written, total, err := c.uploads.WriteChunk(uploadID, filePath, offset, data)
	if err != nil {
		if err == upload.ErrNotFound {
			c.replyError(replyID, 404, "Upload not found")
			return
		}
		c.logger.Error("write chunk", "uploadId", uploadID, "error", err)
		c.replyError(replyID, 500, "write failed")
		return
	}

	c.reply(replyID, protocol.TypeUploadChunkResp, protocol.UploadChunkResponsePayload{
		BytesWritten: written,
		TotalWritten: total,
	})

	if session, ok := c.uploads.Get(uploadID); ok {
		_ = c.pub.Publish("upload_progress", protocol.UploadProgressPayload{
			UploadID:         uploadID,
			TransferredBytes: session.TransferredBytes,
			TotalSize:        session.TotalSize,
			CurrentFile:      session.CurrentFile,
		})
	}
}

func (c *Conn) handleCompleteUpload(env protocol.Envelope) {
	var req protocol.CompleteUploadPayload
	if err := protocol.DecodePayload(env, &req); err != nil {
		c.logger.Warn("bad complete_upload payload", "error", err)
		return
	}

	session, _ := c.uploads.Get(req.UploadID)
	gameName := ""
	if session != nil {
		gameName = session.GameName
	}

	installPath, err := c.uploads.Complete(req.UploadID)
	if err != nil {
		c.replyError(env.ID, 404, "Upload not found")
		return
	}

	if req.CreateShortcut && req.Shortcut != nil {
		c.createShortcut(installPath, gameName, req.Shortcut)
	}

	_ = c.pub.Publish("operation_event", protocol.OperationEventPayload{
		Type: "install", Status: "complete", GameName: gameName, Progress: 100,
	})

	c.reply(env.ID, protocol.TypeOperationResult, protocol.OperationResultPayload{
		Success: true,
		Path:    installPath,
	})
}

// createShortcut makes the install's executable runnable, asks the UI to
// register it with the Steam client, and pre-tracks the record with
// appId 0 — the UI fills in the real appId later via registerShortcut
// once Steam has assigned one.
func (c *Conn) createShortcut(installPath, gameName string, spec *protocol.ShortcutSpec) {
	exeName := filepath.Base(spec.Exe)
	exePath := filepath.Join(installPath, exeName)
	if _, err := os.Stat(exePath); err == nil {
		if err := os.Chmod(exePath, 0o755); err != nil {
			c.logger.Warn("failed to mark executable", "path", exePath, "error", err)
		}
	}

	shortcutName := gameName
	_ = c.pub.Publish("create_shortcut", map[string]any{
		"name":     shortcutName,
		"exe":      exePath,
		"startDir": fmt.Sprintf("%q", installPath),
		"artwork":  spec.Artwork,
	})

	var tracked []protocol.TrackedShortcutPayload
	_, _ = c.store.Get("tracked_shortcuts", &tracked)
	tracked = append(tracked, protocol.TrackedShortcutPayload{
		Name:        shortcutName,
		Exe:         exePath,
		StartDir:    installPath,
		AppID:       0,
		GameName:    gameName,
		InstalledAt: time.Now().Unix(),
	})
	if err := c.store.Set("tracked_shortcuts", tracked); err != nil {
		c.logger.Error("persist tracked shortcut", "error", err)
	}
}

func (c *Conn) handleCancelUpload(env protocol.Envelope) {
	var req protocol.CancelUploadPayload
	if err := protocol.DecodePayload(env, &req); err != nil {
		c.logger.Warn("bad cancel_upload payload", "error", err)
		return
	}
	_ = c.uploads.Cancel(req.UploadID) // idempotent: always reply success
	c.reply(env.ID, protocol.TypeOperationResult, protocol.OperationResultPayload{Success: true})
}

func (c *Conn) handleGetSteamUsers(env protocol.Envelope) {
	steamUsers := shortcut.Users()
	users := make([]protocol.SteamUser, len(steamUsers))
	for i, u := range steamUsers {
		users[i] = protocol.SteamUser{ID: u.ID, HasShortcuts: u.HasShortcuts}
	}
	c.reply(env.ID, protocol.TypeSteamUsersResp, protocol.SteamUsersResponsePayload{Users: users})
}

func (c *Conn) handleListShortcuts(env protocol.Envelope) {
	var tracked []protocol.TrackedShortcutPayload
	if _, err := c.store.Get("tracked_shortcuts", &tracked); err != nil {
		c.logger.Error("load tracked shortcuts", "error", err)
	}
	c.reply(env.ID, protocol.TypeShortcutsResp, protocol.ShortcutsResponsePayload{Shortcuts: tracked})
}

func (c *Conn) handleDeleteGame(env protocol.Envelope) {
	var req protocol.DeleteGamePayload
	if err := protocol.DecodePayload(env, &req); err != nil {
		c.logger.Warn("bad delete_game payload", "error", err)
		return
	}

	var tracked []protocol.TrackedShortcutPayload
	_, _ = c.store.Get("tracked_shortcuts", &tracked)

	idx := -1
	for i, sc := range tracked {
		if sc.AppID == req.AppID {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.replyError(env.ID, 404, "game not found")
		return
	}
	game := tracked[idx]

	_ = c.pub.Publish("operation_event", protocol.OperationEventPayload{
		Type: "delete", Status: "start", GameName: game.GameName,
	})

	if err := removeAll(game.StartDir); err != nil {
		c.logger.Warn("failed to remove game directory", "path", game.StartDir, "error", err)
	}

	tracked = append(tracked[:idx], tracked[idx+1:]...)
	if err := c.store.Set("tracked_shortcuts", tracked); err != nil {
		c.logger.Error("persist tracked shortcuts after delete", "error", err)
	}
	_ = c.pub.Publish("remove_shortcut", map[string]any{"appId": req.AppID})

	steamRestarted := false
	if err := procmgr.RestartSteam(context.Background()); err != nil {
		c.logger.Error("restart steam after delete", "error", err)
	} else {
		steamRestarted = true
	}

	_ = c.pub.Publish("operation_event", protocol.OperationEventPayload{
		Type: "delete", Status: "complete", GameName: game.GameName, Progress: 100,
	})

	c.reply(env.ID, protocol.TypeOperationResult, protocol.OperationResultPayload{
		Status:         "deleted",
		GameName:       game.GameName,
		SteamRestarted: steamRestarted,
	})
}

func (c *Conn) handleRestartSteam(env protocol.Envelope) {
	if err := procmgr.RestartSteam(context.Background()); err != nil {
		c.reply(env.ID, protocol.TypeSteamResponse, protocol.SteamResponsePayload{
			Success: false,
			Message: err.Error(),
		})
		return
	}
	c.reply(env.ID, protocol.TypeSteamResponse, protocol.SteamResponsePayload{
		Success: true,
		Message: "restarting",
	})
}

// removeAll is a thin indirection point so tests can stub directory
// removal without touching the real filesystem.
var removeAll = func(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	return removeAllReal(path)
}
