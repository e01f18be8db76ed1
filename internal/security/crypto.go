// Package security provides the local Ed25519 identity and request signing.
// The public key is the caller's marketplace identity; every mutating API
// request is signed with the private key.
package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errorsmod "cosmossdk.io/errors"

	"github.com/tutu-network/swarmpay/internal/domain"
)

// Keypair holds an Ed25519 identity.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair creates a new Ed25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 keypair: %w", err)
	}
	return &Keypair{Public: pub, Private: priv}, nil
}

// KeyPaths returns the public and private key files under home.
func KeyPaths(home string) (pubPath, privPath string) {
	keyDir := filepath.Join(home, "keys")
	return filepath.Join(keyDir, "identity.pub"), filepath.Join(keyDir, "identity.key")
}

// LoadOrCreateKeypair loads an existing keypair from disk, or generates
// a new one on first run. Keys are stored hex-encoded in home/keys/.
func LoadOrCreateKeypair(home string) (*Keypair, error) {
	pubPath, privPath := KeyPaths(home)

	pubBytes, pubErr := os.ReadFile(pubPath)
	privBytes, privErr := os.ReadFile(privPath)

	if pubErr == nil && privErr == nil {
		return decodeKeypair(string(pubBytes), string(privBytes))
	}

	kp, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(pubPath), 0700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(kp.Public)), 0644); err != nil {
		return nil, fmt.Errorf("write public key: %w", err)
	}
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(kp.Private)), 0600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}

	return kp, nil
}

func decodeKeypair(pubHex, privHex string) (*Keypair, error) {
	pub, err := hex.DecodeString(strings.TrimSpace(pubHex))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	priv, err := hex.DecodeString(strings.TrimSpace(privHex))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize || len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("key files have wrong sizes (%d, %d)", len(pub), len(priv))
	}
	kp := &Keypair{Public: ed25519.PublicKey(pub), Private: ed25519.PrivateKey(priv)}
	if !kp.Public.Equal(kp.Private.Public()) {
		return nil, fmt.Errorf("public key does not match private key")
	}
	return kp, nil
}

// Identity returns the public key as a marketplace identity.
func (kp *Keypair) Identity() domain.Identity {
	var id domain.Identity
	copy(id[:], kp.Public)
	return id
}

// PublicKeyHex returns the public key as a hex string.
func (kp *Keypair) PublicKeyHex() string {
	return hex.EncodeToString(kp.Public)
}

// Sign signs a message with the private key.
func (kp *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.Private, message)
}

// SignDigest signs a task hash as a swarm member.
func (kp *Keypair) SignDigest(d domain.Digest) domain.Signature {
	var sig domain.Signature
	copy(sig[:], kp.Sign(d[:]))
	return sig
}

// Verify checks a signature against a public key.
func Verify(message, signature []byte, publicKey ed25519.PublicKey) bool {
	return ed25519.Verify(publicKey, message, signature)
}

// SignedRequest is the part of an API request a signature covers.
// Binding method, URI and timestamp keeps a signature from being reused on
// another endpoint or long after it was made.
type SignedRequest struct {
	Method    string
	URI       string // path and query, as sent
	Timestamp string // unix seconds
	Body      []byte
}

// Message is the canonical byte string that is signed:
// method, URI and timestamp on their own lines, then the raw body.
func (r SignedRequest) Message() []byte {
	msg := make([]byte, 0, len(r.Method)+len(r.URI)+len(r.Timestamp)+len(r.Body)+3)
	msg = append(msg, r.Method...)
	msg = append(msg, '\n')
	msg = append(msg, r.URI...)
	msg = append(msg, '\n')
	msg = append(msg, r.Timestamp...)
	msg = append(msg, '\n')
	return append(msg, r.Body...)
}

// SignRequest returns the hex signature of a request.
func (kp *Keypair) SignRequest(r SignedRequest) string {
	return hex.EncodeToString(kp.Sign(r.Message()))
}

// VerifyRequest checks a hex request signature made by id over r.
func VerifyRequest(id domain.Identity, r SignedRequest, sigHex string) error {
	if id.IsZero() {
		return errorsmod.Wrap(domain.ErrUnauthorized, "missing identity")
	}
	sig, err := domain.ParseSignature(sigHex)
	if err != nil {
		return errorsmod.Wrapf(domain.ErrUnauthorized, "bad signature: %s", err)
	}
	if !Verify(r.Message(), sig[:], ed25519.PublicKey(id[:])) {
		return errorsmod.Wrapf(domain.ErrUnauthorized, "signature does not match %s %s", r.Method, r.URI)
	}
	return nil
}
