package security

import (
	"encoding/hex"
	"errors"
	"os"
	"testing"

	"github.com/tutu-network/swarmpay/internal/domain"
)

// ─── Keypair Generation ─────────────────────────────────────────────────────

func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	if len(kp.Public) != 32 {
		t.Errorf("public key len = %d, want 32", len(kp.Public))
	}
	if len(kp.Private) != 64 {
		t.Errorf("private key len = %d, want 64", len(kp.Private))
	}
}

func TestGenerateKeypair_Unique(t *testing.T) {
	kp1, _ := GenerateKeypair()
	kp2, _ := GenerateKeypair()

	if kp1.PublicKeyHex() == kp2.PublicKeyHex() {
		t.Error("two generated keypairs should have different public keys")
	}
}

func TestIdentity(t *testing.T) {
	kp, _ := GenerateKeypair()
	id := kp.Identity()
	if id.String() != kp.PublicKeyHex() {
		t.Errorf("Identity() = %s, want %s", id, kp.PublicKeyHex())
	}
}

// ─── Sign / Verify ──────────────────────────────────────────────────────────

func TestSignVerify(t *testing.T) {
	kp, _ := GenerateKeypair()
	message := []byte(`{"reward":1000}`)

	sig := kp.Sign(message)
	if len(sig) != 64 {
		t.Errorf("signature len = %d, want 64", len(sig))
	}
	if !Verify(message, sig, kp.Public) {
		t.Error("Verify() should return true for valid signature")
	}
	if Verify([]byte("tampered"), sig, kp.Public) {
		t.Error("Verify() should return false for wrong message")
	}
}

func TestSignDigest(t *testing.T) {
	kp, _ := GenerateKeypair()
	d := domain.Digest{1, 2, 3}

	sig := kp.SignDigest(d)
	if !Verify(d[:], sig[:], kp.Public) {
		t.Error("digest signature should verify")
	}
}

func TestVerifyRequest(t *testing.T) {
	kp, _ := GenerateKeypair()
	req := SignedRequest{
		Method:    "POST",
		URI:       "/v1/tasks",
		Timestamp: "1700000000",
		Body:      []byte(`{"computation_units":10,"reward":1000}`),
	}
	sigHex := kp.SignRequest(req)

	if err := VerifyRequest(kp.Identity(), req, sigHex); err != nil {
		t.Fatalf("VerifyRequest() error: %v", err)
	}

	with := func(mutate func(*SignedRequest)) SignedRequest {
		r := req
		mutate(&r)
		return r
	}
	other, _ := GenerateKeypair()
	cases := map[string]error{
		"wrong body":      VerifyRequest(kp.Identity(), with(func(r *SignedRequest) { r.Body = []byte("{}") }), sigHex),
		"wrong path":      VerifyRequest(kp.Identity(), with(func(r *SignedRequest) { r.URI = "/v1/pool/reserve" }), sigHex),
		"wrong method":    VerifyRequest(kp.Identity(), with(func(r *SignedRequest) { r.Method = "PUT" }), sigHex),
		"wrong timestamp": VerifyRequest(kp.Identity(), with(func(r *SignedRequest) { r.Timestamp = "1700000001" }), sigHex),
		"wrong identity":  VerifyRequest(other.Identity(), req, sigHex),
		"zero identity":   VerifyRequest(domain.Identity{}, req, sigHex),
		"malformed":       VerifyRequest(kp.Identity(), req, "xyz"),
		"body only":       VerifyRequest(kp.Identity(), req, hex.EncodeToString(kp.Sign(req.Body))),
	}
	for name, err := range cases {
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("%s: error = %v, want ErrUnauthorized", name, err)
		}
	}
}

// ─── Persistence ────────────────────────────────────────────────────────────

func TestLoadOrCreateKeypair_Creates(t *testing.T) {
	home := t.TempDir()
	kp, err := LoadOrCreateKeypair(home)
	if err != nil {
		t.Fatalf("LoadOrCreateKeypair() error: %v", err)
	}
	if kp == nil {
		t.Fatal("LoadOrCreateKeypair() returned nil")
	}

	pubPath, privPath := KeyPaths(home)
	if _, err := os.Stat(pubPath); os.IsNotExist(err) {
		t.Error("identity.pub should exist")
	}
	info, err := os.Stat(privPath)
	if err != nil {
		t.Fatalf("identity.key should exist: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("identity.key mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadOrCreateKeypair_Loads(t *testing.T) {
	home := t.TempDir()

	kp1, _ := LoadOrCreateKeypair(home)
	kp2, err := LoadOrCreateKeypair(home)
	if err != nil {
		t.Fatalf("LoadOrCreateKeypair() second call error: %v", err)
	}
	if kp1.Identity() != kp2.Identity() {
		t.Error("loaded keypair should match created keypair")
	}

	message := []byte("persistent identity test")
	if !Verify(message, kp1.Sign(message), kp2.Public) {
		t.Error("signature should verify after reloading keypair")
	}
}

func TestLoadOrCreateKeypair_RejectsMismatchedKeys(t *testing.T) {
	home := t.TempDir()
	if _, err := LoadOrCreateKeypair(home); err != nil {
		t.Fatalf("LoadOrCreateKeypair() error: %v", err)
	}

	other, _ := GenerateKeypair()
	pubPath, _ := KeyPaths(home)
	if err := os.WriteFile(pubPath, []byte(other.PublicKeyHex()), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadOrCreateKeypair(home); err == nil {
		t.Error("mismatched key files should fail to load")
	}
}
