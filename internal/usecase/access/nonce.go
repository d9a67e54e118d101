package access

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/entrydex/internal/domain"
)

// DefaultNonceTTL is used when the configured TTL is not positive.
const DefaultNonceTTL = time.Hour

// Nonces issues and verifies export nonces: "<unix expiry>.<hex hmac>",
// the MAC binding the view id and expiry.
type Nonces struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewNonces creates a nonce issuer. An empty secret is replaced with a random
// one, so nonces stay valid for the lifetime of the process only.
func NewNonces(secret string, ttl time.Duration) (*Nonces, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate nonce secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &Nonces{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a nonce for viewID and its expiry.
func (n *Nonces) Issue(viewID string) (string, time.Time) {
	exp := n.now().Add(n.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(exp.Unix(), 10)
	return ts + "." + n.sign(viewID, ts), exp
}

// Verify checks a nonce for viewID. Failures are access denials with
// reason invalid_export_nonce.
func (n *Nonces) Verify(viewID, nonce string) error {
	ts, mac, ok := strings.Cut(nonce, ".")
	if !ok || ts == "" || mac == "" {
		return domain.NewAccessDenied(domain.ReasonInvalidExportNonce)
	}
	exp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return domain.NewAccessDenied(domain.ReasonInvalidExportNonce)
	}
	if !hmac.Equal([]byte(mac), []byte(n.sign(viewID, ts))) {
		return domain.NewAccessDenied(domain.ReasonInvalidExportNonce)
	}
	if n.now().Unix() > exp {
		return domain.NewAccessDenied(domain.ReasonInvalidExportNonce)
	}
	return nil
}

func (n *Nonces) sign(viewID, ts string) string {
	h := hmac.New(sha256.New, n.secret)
	h.Write([]byte(viewID))
	h.Write([]byte{0})
	h.Write([]byte(ts))
	return hex.EncodeToString(h.Sum(nil))
}
