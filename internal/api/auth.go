package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/domain"
	"github.com/tutu-network/swarmpay/internal/security"
)

// Request authentication headers.
const (
	HeaderIdentity  = "X-Swarmpay-Identity"
	HeaderSignature = "X-Swarmpay-Signature"
	HeaderTimestamp = "X-Swarmpay-Timestamp"
)

// MaxClockSkew bounds how far a signed timestamp may be from server time.
const MaxClockSkew = 5 * time.Minute

// maxBodyBytes bounds request bodies; the signature covers the whole body.
const maxBodyBytes = 1 << 20

type callerKey struct{}

// authenticate resolves the caller identity from the request headers and,
// when signatures are required, checks the request signature, its
// timestamp window, and that the signature has not been used before.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := domain.ParseIdentity(r.Header.Get(HeaderIdentity))
		if err != nil || id.IsZero() {
			writeUnauthorized(w, errorsmod.Wrapf(domain.ErrUnauthorized, "missing or malformed %s header", HeaderIdentity))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			writeError(w, badRequest("read body: %s", err))
			return
		}
		if len(body) > maxBodyBytes {
			writeError(w, badRequest("body exceeds %d bytes", maxBodyBytes))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if s.opts.RequireSignatures {
			if err := s.verifySignature(id, r, body); err != nil {
				s.log.Warn("Rejected request signature",
					zap.Stringer("identity", id),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				writeUnauthorized(w, err)
				return
			}
		}

		ctx := context.WithValue(r.Context(), callerKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) verifySignature(id domain.Identity, r *http.Request, body []byte) error {
	ts := r.Header.Get(HeaderTimestamp)
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errorsmod.Wrapf(domain.ErrUnauthorized, "missing or malformed %s header", HeaderTimestamp)
	}
	now := s.now()
	signedAt := time.Unix(unix, 0)
	if signedAt.Before(now.Add(-MaxClockSkew)) || signedAt.After(now.Add(MaxClockSkew)) {
		return errorsmod.Wrapf(domain.ErrUnauthorized, "timestamp %s outside the %s window", ts, MaxClockSkew)
	}

	sig := r.Header.Get(HeaderSignature)
	err = security.VerifyRequest(id, security.SignedRequest{
		Method:    r.Method,
		URI:       r.URL.RequestURI(),
		Timestamp: ts,
		Body:      body,
	}, sig)
	if err != nil {
		return err
	}

	// Ed25519 signatures are deterministic, so a repeated signature is a
	// repeated request.
	if !s.replays.firstUse(sig, signedAt.Add(MaxClockSkew), now) {
		return errorsmod.Wrap(domain.ErrUnauthorized, "signature already used")
	}
	return nil
}

// caller returns the authenticated identity of the request.
func caller(r *http.Request) domain.Identity {
	id, _ := r.Context().Value(callerKey{}).(domain.Identity)
	return id
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	writeErrorStatus(w, http.StatusUnauthorized, err)
}

// replayGuard remembers accepted signatures until their timestamp leaves
// the skew window, after which the window check rejects them anyway.
type replayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newReplayGuard() *replayGuard {
	return &replayGuard{seen: make(map[string]time.Time)}
}

// firstUse records sig until expires and reports whether it was unseen.
func (g *replayGuard) firstUse(sig string, expires, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for k, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[sig]; ok {
		return false
	}
	g.seen[sig] = expires
	return true
}
