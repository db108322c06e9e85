package protocol

import (
	"encoding/binary"
	"testing"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	env, err := Reply("1", TypePong, nil)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	data, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "1" || decoded.Type != TypePong {
		t.Errorf("unexpected decoded envelope: %+v", decoded)
	}
}

func TestEnvelope_WithPayload(t *testing.T) {
	env, err := Reply("2", TypePairSuccess, PairSuccessPayload{Token: "abc"})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	var payload PairSuccessPayload
	if err := DecodePayload(env, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Token != "abc" {
		t.Errorf("expected token abc, got %q", payload.Token)
	}
}

func TestErrorReply(t *testing.T) {
	env := ErrorReply("3", 401, "Not authorized")
	if env.Error == nil || env.Error.Code != 401 {
		t.Fatalf("expected error payload with code 401, got %+v", env.Error)
	}
}

func TestDecodePayload_EmptyPayload(t *testing.T) {
	env := Envelope{ID: "1", Type: TypePing}
	var dest struct{}
	if err := DecodePayload(env, &dest); err == nil {
		t.Fatal("expected error decoding empty payload")
	}
}

func TestBinaryFrame_RoundTrip(t *testing.T) {
	hdr := BinaryHeader{ID: "4", UploadID: "upload-1", FilePath: "a.bin", Offset: 0}
	payload := []byte("hello")

	frame, err := EncodeBinaryFrame(hdr, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	gotHdr, gotPayload, err := DecodeBinaryFrame(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotHdr.UploadID != hdr.UploadID || gotHdr.FilePath != hdr.FilePath {
		t.Errorf("header mismatch: %+v", gotHdr)
	}
	if string(gotPayload) != "hello" {
		t.Errorf("expected payload hello, got %q", gotPayload)
	}
}

func TestBinaryFrame_TooShort(t *testing.T) {
	_, _, err := DecodeBinaryFrame([]byte{0, 0})
	if err == nil {
		t.Fatal("expected error for frame shorter than length prefix")
	}
}

func TestBinaryFrame_HeaderLengthExceedsFrame(t *testing.T) {
	frame := make([]byte, 4)
	binary.BigEndian.PutUint32(frame, 1000)
	_, _, err := DecodeBinaryFrame(frame)
	if err == nil {
		t.Fatal("expected error when header length exceeds remaining frame size")
	}
}
