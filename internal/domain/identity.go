package domain

import (
	"encoding/hex"
	"fmt"
)

// ─── Identity & Digest Types ────────────────────────────────────────────────
// Identities are Ed25519 public keys. Digests and signatures are fixed-size
// byte arrays rendered as lowercase hex everywhere outside the process.

const (
	IdentitySize  = 32
	DigestSize    = 32
	SignatureSize = 64
)

// Identity is a 32-byte Ed25519 public key.
type Identity [IdentitySize]byte

// Digest is a 32-byte hash value.
type Digest [DigestSize]byte

// Signature is a 64-byte Ed25519 signature.
type Signature [SignatureSize]byte

// ParseIdentity decodes a hex-encoded identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	err := decodeFixed(id[:], s, "identity")
	return id, err
}

// ParseDigest decodes a hex-encoded digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	err := decodeFixed(d[:], s, "digest")
	return d, err
}

// ParseSignature decodes a hex-encoded signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	err := decodeFixed(sig[:], s, "signature")
	return sig, err
}

func decodeFixed(dst []byte, s, what string) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("decode %s: want %d bytes, got %d", what, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool { return id == Identity{} }

func (id Identity) String() string { return hex.EncodeToString(id[:]) }

// Short returns the first 8 hex characters, for logs and tables.
func (id Identity) Short() string { return id.String()[:8] }

func (id Identity) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *Identity) UnmarshalText(b []byte) error {
	v, err := ParseIdentity(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// IsZero reports whether the digest is all zero bytes.
func (d Digest) IsZero() bool { return d == Digest{} }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

func (d Digest) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Digest) UnmarshalText(b []byte) error {
	v, err := ParseDigest(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(b []byte) error {
	v, err := ParseSignature(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
