package snapshot

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// cborEncMode uses canonical mode so that equal snapshots encode to equal
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalCBOR serializes a Snapshot to canonical CBOR bytes.
func MarshalCBOR(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalCBOR deserializes a Snapshot from CBOR bytes.
func UnmarshalCBOR(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal cbor: %w", err)
	}
	return &s, nil
}

// Digest returns the SHA-256 of the canonical CBOR encoding.
func Digest(s *Snapshot) ([32]byte, error) {
	data, err := MarshalCBOR(s)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Encode writes a Snapshot to w as msgpack.
func Encode(w io.Writer, s *Snapshot) error {
	if err := msgpack.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("snapshot: encode msgpack: %w", err)
	}
	return nil
}

// Decode reads a msgpack Snapshot from r.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot: decode msgpack: %w", err)
	}
	return &s, nil
}

// MarshalMsgpack serializes a Snapshot to msgpack bytes.
func MarshalMsgpack(s *Snapshot) ([]byte, error) {
	return msgpack.Marshal(s)
}

// UnmarshalMsgpack deserializes a Snapshot from msgpack bytes.
func UnmarshalMsgpack(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal msgpack: %w", err)
	}
	return &s, nil
}
