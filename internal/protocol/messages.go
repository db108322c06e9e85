package protocol

// Message type strings used in Envelope.Type.
const (
	TypeHubConnected    = "hub_connected"
	TypePairConfirm     = "pair_confirm"
	TypePairingRequired = "pairing_required"
	TypePairSuccess     = "pair_success"
	TypePairFailed      = "pair_failed"
	TypeAgentStatus     = "agent_status"
	TypePing            = "ping"
	TypePong            = "pong"
	TypeGetInfo         = "get_info"
	TypeInfoResponse    = "info_response"
	TypeGetConfig       = "get_config"
	TypeConfigResponse  = "config_response"
	TypeInitUpload      = "init_upload"
	TypeUploadInitResp  = "upload_init_response"
	TypeUploadChunk     = "upload_chunk"
	TypeUploadChunkResp = "upload_chunk_response"
	TypeCompleteUpload  = "complete_upload"
	TypeCancelUpload    = "cancel_upload"
	TypeOperationResult = "operation_result"
	TypeOperationEvent  = "operation_event"
	TypeUploadProgress  = "upload_progress"
	TypeGetSteamUsers   = "get_steam_users"
	TypeSteamUsersResp  = "steam_users_response"
	TypeListShortcuts   = "list_shortcuts"
	TypeShortcutsResp   = "shortcuts_response"
	TypeDeleteGame      = "delete_game"
	TypeRestartSteam    = "restart_steam"
	TypeSteamResponse   = "steam_response"
	TypeError           = "error"
)

// Capabilities advertised in info_response; fixed per the protocol's
// component design, not configurable.
var Capabilities = []string{"file_upload", "steam_shortcuts", "steam_artwork"}

// HubConnectedPayload is the handshake the Hub sends immediately on connect.
type HubConnectedPayload struct {
	HubID   string `json:"hubId"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Token   string `json:"token,omitempty"`
}

// PairConfirmPayload carries the 6-digit code a human read off the Hub.
type PairConfirmPayload struct {
	Code string `json:"code"`
}

// PairingRequiredPayload replies to an unpaired handshake.
type PairingRequiredPayload struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expiresIn"`
}

// PairSuccessPayload carries the freshly issued bearer token.
type PairSuccessPayload struct {
	Token string `json:"token"`
}

// PairFailedPayload explains why pair_confirm was rejected.
type PairFailedPayload struct {
	Reason string `json:"reason"`
}

// AgentStatusPayload is sent on a successful handshake (new or resumed).
type AgentStatusPayload struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Platform          string `json:"platform"`
	AcceptConnections bool   `json:"acceptConnections"`
}

// InfoResponsePayload answers get_info.
type InfoResponsePayload struct {
	AgentID      string   `json:"agentId"`
	AgentName    string   `json:"agentName"`
	Platform     string   `json:"platform"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// ConfigResponsePayload answers get_config.
type ConfigResponsePayload struct {
	InstallPath string `json:"installPath"`
}

// UploadFile describes one file within an init_upload request.
type UploadFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Mode string `json:"mode,omitempty"`
}

// InitUploadConfig is the nested "config" object of an init_upload request.
type InitUploadConfig struct {
	GameName string `json:"gameName"`
}

// InitUploadPayload requests a new upload session.
type InitUploadPayload struct {
	Config    InitUploadConfig `json:"config"`
	TotalSize int64            `json:"totalSize"`
	Files     []UploadFile     `json:"files"`
}

// UploadInitResponsePayload answers init_upload.
type UploadInitResponsePayload struct {
	UploadID  string `json:"uploadId"`
	ChunkSize int64  `json:"chunkSize"`
}

// UploadChunkPayload is the text-frame variant of a chunk write, carrying
// base64-encoded data (the binary frame variant is decoded separately by
// DecodeBinaryFrame).
type UploadChunkPayload struct {
	UploadID string `json:"uploadId"`
	FilePath string `json:"filePath"`
	Offset   int64  `json:"offset"`
	Data     []byte `json:"data"` // encoding/json base64-decodes []byte fields automatically
}

// UploadChunkResponsePayload answers a chunk write.
type UploadChunkResponsePayload struct {
	BytesWritten  int64 `json:"bytesWritten"`
	TotalWritten  int64 `json:"totalWritten"`
}

// ShortcutSpec describes the optional Steam shortcut to create on upload
// completion.
type ShortcutSpec struct {
	Exe     string `json:"exe"`
	Artwork string `json:"artwork,omitempty"`
}

// CompleteUploadPayload finalizes an upload session.
type CompleteUploadPayload struct {
	UploadID       string        `json:"uploadId"`
	CreateShortcut bool          `json:"createShortcut"`
	Shortcut       *ShortcutSpec `json:"shortcut,omitempty"`
}

// CancelUploadPayload aborts an upload session.
type CancelUploadPayload struct {
	UploadID string `json:"uploadId"`
}

// OperationResultPayload is the generic reply for long-running operations.
// complete_upload and cancel_upload report outcome via Success (and, for
// complete_upload, Path); delete_game reports outcome via Status instead,
// matching the original implementation's differing conventions per op.
type OperationResultPayload struct {
	Success        bool   `json:"success,omitempty"`
	Status         string `json:"status,omitempty"`
	GameName       string `json:"gameName,omitempty"`
	Path           string `json:"path,omitempty"`
	SteamRestarted bool   `json:"steamRestarted,omitempty"`
}

// SteamResponsePayload answers restart_steam.
type SteamResponsePayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OperationEventPayload describes install/delete lifecycle progress,
// published both as a reply payload and via internal/events.
type OperationEventPayload struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	GameName string `json:"gameName,omitempty"`
	Progress int    `json:"progress"`
}

// UploadProgressPayload reports bytes transferred so far for a session.
type UploadProgressPayload struct {
	UploadID         string `json:"uploadId"`
	TransferredBytes int64  `json:"transferredBytes"`
	TotalSize        int64  `json:"totalSize"`
	CurrentFile      string `json:"currentFile"`
}

// SteamUser is one enumerated Steam userdata account.
type SteamUser struct {
	ID            string `json:"id"`
	HasShortcuts  bool   `json:"hasShortcuts"`
}

// SteamUsersResponsePayload answers get_steam_users.
type SteamUsersResponsePayload struct {
	Users []SteamUser `json:"users"`
}

// TrackedShortcutPayload mirrors internal/shortcut.TrackedShortcut on the
// wire.
type TrackedShortcutPayload struct {
	Name        string `json:"name"`
	Exe         string `json:"exe"`
	StartDir    string `json:"startDir"`
	AppID       int64  `json:"appId"`
	GameName    string `json:"gameName"`
	InstalledAt int64  `json:"installedAt"`
}

// ShortcutsResponsePayload answers list_shortcuts.
type ShortcutsResponsePayload struct {
	Shortcuts []TrackedShortcutPayload `json:"shortcuts"`
}

// DeleteGamePayload requests removal of an installed game by its tracked
// shortcut appId.
type DeleteGamePayload struct {
	AppID int64 `json:"appId"`
}
