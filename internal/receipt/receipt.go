// Package receipt renders a finalized custody entry, plus its chain context,
// into a signed transfer receipt. The receipt carries every digest up to and
// including the entry so a third party can re-verify integrity without
// trusting the issuing system.
package receipt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/crypto/hkdf"

	"custodia/internal/integrity"
)

// Receipt is the exportable proof of one custody transfer.
type Receipt struct {
	EntryID        string    `json:"entry_id"`
	EvidenceID     string    `json:"evidence_id"`
	EvidenceNumber string    `json:"evidence_number"`
	Seq            int64     `json:"seq"`
	Action         string    `json:"action"`
	FromCustodian  string    `json:"from_custodian,omitempty"`
	ToCustodian    string    `json:"to_custodian"`
	Location       string    `json:"location,omitempty"`
	Purpose        string    `json:"purpose,omitempty"`
	RecordedBy     string    `json:"recorded_by"`
	RecordedAt     time.Time `json:"recorded_at"`
	FinalizedAt    time.Time `json:"finalized_at"`
	// EntryDigest is the entry's own chained digest.
	EntryDigest string `json:"entry_digest"`
	// ChainDigests is every FINAL digest from sequence 1 through this entry.
	ChainDigests []string `json:"chain_digests"`
	IssuedAt     time.Time `json:"issued_at"`
	// Signature is an HMAC-SHA256 over the canonical receipt payload.
	Signature string `json:"signature"`
}

// Signer produces and checks receipt signatures. The HMAC key is derived from
// the service secret with HKDF so the receipt key is never the raw secret
// shared with other concerns.
type Signer struct {
	key []byte
}

// hkdfInfo binds the derived key to this purpose; changing it invalidates all
// previously issued signatures.
const hkdfInfo = "custodia/receipt-signing/v1"

// NewSigner derives the receipt signing key from secret.
func NewSigner(secret string) (*Signer, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive receipt key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Sign computes the receipt's signature over its canonical payload and stores
// it on the receipt.
func (s *Signer) Sign(r *Receipt) {
	r.Signature = s.compute(r)
}

// Verify recomputes the signature and compares in constant time.
func (s *Signer) Verify(r *Receipt) bool {
	expected := s.compute(r)
	return hmac.Equal([]byte(expected), []byte(r.Signature))
}

// compute serializes the canonical fields in fixed order, each framed by its
// byte length so content cannot shift between adjacent fields. The signature
// must not cover itself, and must not depend on JSON field ordering.
func (s *Signer) compute(r *Receipt) string {
	mac := hmac.New(sha256.New, s.key)
	integrity.WriteCanonical(mac,
		r.EntryID,
		r.EvidenceID,
		r.EvidenceNumber,
		strconv.FormatInt(r.Seq, 10),
		r.Action,
		r.FromCustodian,
		r.ToCustodian,
		r.Location,
		r.Purpose,
		r.RecordedBy,
		r.RecordedAt.UTC().Format(time.RFC3339Nano),
		r.FinalizedAt.UTC().Format(time.RFC3339Nano),
		r.EntryDigest,
	)
	integrity.WriteCanonical(mac, strconv.Itoa(len(r.ChainDigests)))
	integrity.WriteCanonical(mac, r.ChainDigests...)
	return hex.EncodeToString(mac.Sum(nil))
}
