// Package integrity computes and checks the SHA-256 digests that make the
// custody ledger tamper-evident.
//
// Each finalized custody entry carries a digest over its canonical fields
// chained with the previous entry's digest:
//
//	SHA-256(frame(prev_digest) frame(item_id) frame(seq) frame(action)
//	        frame(from) frame(to) frame(location) frame(purpose)
//	        frame(recorded_by) frame(ts))
//
// where frame(v) is "<byte length>:<v>;". Length framing makes the
// serialization injective: free-text content can never shift across a field
// boundary and re-serialize to the same bytes. Modifying any stored entry
// invalidates every digest after it. The first entry of an item chains from a
// fixed genesis constant.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"custodia/pkg/domain"
)

// GenesisDigest anchors the first entry of every item's chain. A fixed,
// obviously-artificial value keeps recomputation possible without any stored
// state before sequence 1.
const GenesisDigest = "0000000000000000000000000000000000000000000000000000000000000000"

// EntryFields is the canonical subset of a custody entry that participates in
// chain hashing. All fields are flat scalars so the byte ordering below is the
// only serialization in play - no JSON, no maps.
type EntryFields struct {
	ItemID     domain.EvidenceID
	Seq        int64
	Action     domain.CustodyAction
	From       string
	To         string
	Location   string
	Purpose    string
	RecordedBy domain.UserID
	Timestamp  time.Time
}

// DigestFile returns the hex SHA-256 of raw file bytes. Deterministic and
// pure; the ledger never sees the bytes again after this.
func DigestFile(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestEntry computes the chained digest for one entry. prevDigest is the
// digest of the previous FINAL entry, or GenesisDigest for sequence 1.
// Timestamps are canonicalized to UTC RFC3339Nano so the digest does not
// depend on the zone the entry was recorded in.
func DigestEntry(f EntryFields, prevDigest string) string {
	h := sha256.New()
	WriteCanonical(h,
		prevDigest,
		f.ItemID.String(),
		strconv.FormatInt(f.Seq, 10),
		string(f.Action),
		f.From,
		f.To,
		f.Location,
		f.Purpose,
		f.RecordedBy.String(),
		f.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return hex.EncodeToString(h.Sum(nil))
}

// WriteCanonical writes each field framed by its byte length. The framing is
// what keeps the serialization injective: "locker|14" in one field and
// "locker" / "|14" split across two produce different bytes.
func WriteCanonical(w io.Writer, fields ...string) {
	for _, f := range fields {
		fmt.Fprintf(w, "%d:%s;", len(f), f)
	}
}

// VerifyFileDigest recomputes the content digest over data and compares it to
// the stored value in constant time.
func VerifyFileDigest(stored string, data []byte) bool {
	computed := DigestFile(data)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(computed)) == 1
}
