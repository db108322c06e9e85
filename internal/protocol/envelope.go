// Package protocol defines the agent's wire format: a text-frame JSON
// envelope for control messages and a length-prefixed binary frame for
// upload chunk payloads. The codec only frames and parses; it carries no
// dispatch semantics — that lives in internal/agentconn.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Envelope is the top-level shape of every text frame exchanged with a Hub.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

// ErrorPayload is the canonical {code,message} shape for error responses.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DecodeEnvelope parses a text frame into an Envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// EncodeEnvelope serializes an Envelope back to a text frame.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// Reply builds a response envelope that echoes id with a JSON-encodable
// payload.
func Reply(id, msgType string, payload any) (Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode payload for %s: %w", msgType, err)
		}
		raw = data
	}
	return Envelope{ID: id, Type: msgType, Payload: raw}, nil
}

// ErrorReply builds an error response envelope echoing id.
func ErrorReply(id string, code int, message string) Envelope {
	return Envelope{ID: id, Type: "error", Error: &ErrorPayload{Code: code, Message: message}}
}

// DecodePayload unmarshals env's payload into dest.
func DecodePayload(env Envelope, dest any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("message %s has no payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, dest); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return nil
}

// MaxFrameBytes is the largest frame the agent will accept, matching the
// WebSocket upgrade's configured read limit.
const MaxFrameBytes = 10 * 1024 * 1024

// BinaryHeader is the JSON header prefixing every binary chunk frame.
type BinaryHeader struct {
	ID       string `json:"id"`
	UploadID string `json:"uploadId"`
	FilePath string `json:"filePath"`
	Offset   int64  `json:"offset"`
	// Checksum is accepted and round-tripped but never verified, per the
	// upstream source's behavior.
	Checksum string `json:"checksum,omitempty"`
}

const binaryHeaderLenBytes = 4

// DecodeBinaryFrame splits a binary WebSocket frame into its header and raw
// chunk payload. Frame shape: [4-byte BE header length][JSON header][chunk
// bytes].
func DecodeBinaryFrame(frame []byte) (BinaryHeader, []byte, error) {
	if len(frame) < binaryHeaderLenBytes {
		return BinaryHeader{}, nil, fmt.Errorf("binary frame too short for length prefix")
	}
	headerLen := binary.BigEndian.Uint32(frame[:binaryHeaderLenBytes])
	rest := frame[binaryHeaderLenBytes:]
	if uint64(headerLen) > uint64(len(rest)) {
		return BinaryHeader{}, nil, fmt.Errorf("binary frame header length %d exceeds frame size %d", headerLen, len(rest))
	}

	var hdr BinaryHeader
	if err := json.Unmarshal(rest[:headerLen], &hdr); err != nil {
		return BinaryHeader{}, nil, fmt.Errorf("decode binary frame header: %w", err)
	}
	payload := rest[headerLen:]
	return hdr, payload, nil
}

// EncodeBinaryFrame assembles a binary frame from a header and chunk
// payload. Not used by the agent today (it only receives chunks) but kept
// symmetric with DecodeBinaryFrame for tests and any future push path.
func EncodeBinaryFrame(hdr BinaryHeader, payload []byte) ([]byte, error) {
	hdrBytes, err := json.Marshal(hdr)
	if err != nil {
		return nil, fmt.Errorf("encode binary frame header: %w", err)
	}
	buf := make([]byte, binaryHeaderLenBytes+len(hdrBytes)+len(payload))
	binary.BigEndian.PutUint32(buf[:binaryHeaderLenBytes], uint32(len(hdrBytes)))
	copy(buf[binaryHeaderLenBytes:], hdrBytes)
	copy(buf[binaryHeaderLenBytes+len(hdrBytes):], payload)
	return buf, nil
}
