// Package pairing implements the agent's handshake authorization state
// machine: a single pending pairing code that a Hub exchanges for a
// long-lived bearer token, and validation of tokens presented on
// reconnect.
package pairing

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/lobinuxsoft/capydeploy/internal/settings"
)

const (
	codeLength  = 6
	codeDigits  = "0123456789"
	tokenLength = 32
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	settingsKey = "authorized_hubs"
)

// CodeExpiry is how long a generated code stays valid, configurable from
// the agent's bootstrap config.
var CodeExpiry = 60 * time.Second

// AuthorizedHub is the persisted record of a successfully paired Hub.
type AuthorizedHub struct {
	Name     string `json:"name"`
	Token    string `json:"token"`
	PairedAt int64  `json:"paired_at"`
}

// pending is the at-most-one in-memory pairing in progress.
type pending struct {
	code      string
	hubID     string
	hubName   string
	expiresAt time.Time
}

// Manager owns the single pending pairing slot and the persisted
// authorized-hub map.
type Manager struct {
	store *settings.Store

	mu      sync.Mutex
	pending *pending
}

// New creates a pairing Manager backed by store.
func New(store *settings.Store) *Manager {
	return &Manager{store: store}
}

// GenerateCode replaces any prior pending pairing with a new six-digit code
// for hubID/hubName, valid for CodeExpiry.
func (m *Manager) GenerateCode(hubID, hubName string) (string, error) {
	code, err := randomString(codeLength, codeDigits)
	if err != nil {
		return "", fmt.Errorf("generate pairing code: %w", err)
	}

	m.mu.Lock()
	m.pending = &pending{
		code:      code,
		hubID:     hubID,
		hubName:   hubName,
		expiresAt: time.Now().Add(CodeExpiry),
	}
	m.mu.Unlock()

	return code, nil
}

// ValidateCode checks code against the pending pairing for hubID. On
// success it issues a bearer token, persists the authorized hub, clears
// the pending slot, and returns the token. ok is false on any mismatch or
// expiry, in which case the pending slot is left untouched so the Hub may
// retry until it expires.
func (m *Manager) ValidateCode(hubID, code string) (token string, ok bool, err error) {
	m.mu.Lock()
	p := m.pending
	if p == nil || time.Now().After(p.expiresAt) || p.hubID != hubID || p.code != code {
		m.mu.Unlock()
		return "", false, nil
	}
	hubName := p.hubName
	m.mu.Unlock()

	token, err = randomString(tokenLength, tokenAlphabet)
	if err != nil {
		return "", false, fmt.Errorf("generate token: %w", err)
	}

	authorized, err := m.loadAuthorized()
	if err != nil {
		return "", false, err
	}
	authorized[hubID] = AuthorizedHub{
		Name:     hubName,
		Token:    token,
		PairedAt: time.Now().Unix(),
	}
	if err := m.store.Set(settingsKey, authorized); err != nil {
		return "", false, fmt.Errorf("persist authorized hub: %w", err)
	}

	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()

	return token, true, nil
}

// ValidateToken reports whether token is the current bearer token for
// hubID.
func (m *Manager) ValidateToken(hubID, token string) (bool, error) {
	authorized, err := m.loadAuthorized()
	if err != nil {
		return false, err
	}
	hub, ok := authorized[hubID]
	return ok && hub.Token == token, nil
}

// AuthorizedHubs returns the full persisted hub → record map.
func (m *Manager) AuthorizedHubs() (map[string]AuthorizedHub, error) {
	return m.loadAuthorized()
}

// RevokeHub removes hubID's authorization. Returns false if hubID was not
// known (idempotent no-op).
func (m *Manager) RevokeHub(hubID string) (bool, error) {
	authorized, err := m.loadAuthorized()
	if err != nil {
		return false, err
	}
	if _, ok := authorized[hubID]; !ok {
		return false, nil
	}
	delete(authorized, hubID)
	if err := m.store.Set(settingsKey, authorized); err != nil {
		return false, fmt.Errorf("persist revoke: %w", err)
	}
	return true, nil
}

func (m *Manager) loadAuthorized() (map[string]AuthorizedHub, error) {
	authorized := map[string]AuthorizedHub{}
	_, err := m.store.Get(settingsKey, &authorized)
	if err != nil {
		return nil, fmt.Errorf("load authorized hubs: %w", err)
	}
	if authorized == nil {
		authorized = map[string]AuthorizedHub{}
	}
	return authorized, nil
}

func randomString(n int, alphabet string) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
