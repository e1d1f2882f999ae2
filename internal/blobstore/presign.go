package blobstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"assistbridge/internal/metrics"
)

// Sentinel errors for presign verification failures.
var (
	ErrSignatureMismatch = errors.New("presign: signature mismatch")
	ErrLinkExpired       = errors.New("presign: link expired")
	ErrMalformedLink     = errors.New("presign: malformed expiry")
)

// Presigner mints and verifies time-limited download URLs. Signatures cover
// the exact object key and expiry timestamp, so a URL cannot be replayed for
// another object or a later deadline.
type Presigner struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

// NewPresigner builds a Presigner. baseURL is the external base clients see
// (scheme://host[:port]); ttl bounds link lifetime.
func NewPresigner(secret string, ttl time.Duration, baseURL string) (*Presigner, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("presign: secret too short (%d bytes, need 16)", len(secret))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("presign: ttl must be positive, got %s", ttl)
	}
	return &Presigner{
		secret:  []byte(secret),
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// SignURL mints a presigned download URL for key.
func (p *Presigner) SignURL(key string) string {
	expires := p.now().Add(p.ttl).Unix()
	sig := p.signature(key, expires)

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", sig)
	metrics.IncPresignedIssued()
	return fmt.Sprintf("%s/files/%s?%s", p.baseURL, url.PathEscape(key), q.Encode())
}

// Verify validates the signature and expiry for a download request.
func (p *Presigner) Verify(key, expiresRaw, sig string) error {
	expires, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedLink, expiresRaw)
	}

	want := p.signature(key, expires)
	// Compare signatures before the expiry check so both failure modes take
	// the same code path for tampered links.
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrSignatureMismatch
	}
	if p.now().Unix() > expires {
		return ErrLinkExpired
	}
	return nil
}

func (p *Presigner) signature(key string, expires int64) string {
	mac := hmac.New(sha256.New, p.secret)
	fmt.Fprintf(mac, "%s\n%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
