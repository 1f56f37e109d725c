package integrity

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/pkg/domain"
)

func testFields(seq int64) EntryFields {
	return EntryFields{
		ItemID:     domain.EvidenceID(uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")),
		Seq:        seq,
		Action:     domain.ActionTransferred,
		From:       "officer-lee",
		To:         "lab-tech",
		Location:   "forensics lab",
		Purpose:    "fingerprint analysis",
		RecordedBy: domain.UserID(uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")),
		Timestamp:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestDigestFile(t *testing.T) {
	t.Run("known vector", func(t *testing.T) {
		// sha256 of the empty input.
		assert.Equal(t,
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			DigestFile(nil))
	})

	t.Run("deterministic", func(t *testing.T) {
		data := []byte("disk image bytes")
		assert.Equal(t, DigestFile(data), DigestFile(data))
		assert.NotEqual(t, DigestFile(data), DigestFile([]byte("other bytes")))
	})
}

func TestDigestEntry(t *testing.T) {
	t.Run("deterministic hex sha-256", func(t *testing.T) {
		d := DigestEntry(testFields(1), GenesisDigest)
		assert.Len(t, d, 64)
		assert.Equal(t, d, DigestEntry(testFields(1), GenesisDigest))
		assert.Equal(t, strings.ToLower(d), d)
	})

	t.Run("every canonical field participates", func(t *testing.T) {
		base := DigestEntry(testFields(1), GenesisDigest)

		mutations := map[string]EntryFields{}
		f := testFields(1)
		f.Seq = 2
		mutations["seq"] = f
		f = testFields(1)
		f.Action = domain.ActionAnalyzed
		mutations["action"] = f
		f = testFields(1)
		f.From = "someone-else"
		mutations["from"] = f
		f = testFields(1)
		f.To = "someone-else"
		mutations["to"] = f
		f = testFields(1)
		f.Location = "evidence room"
		mutations["location"] = f
		f = testFields(1)
		f.Purpose = "court hearing"
		mutations["purpose"] = f
		f = testFields(1)
		f.Timestamp = f.Timestamp.Add(time.Nanosecond)
		mutations["timestamp"] = f

		for name, mutated := range mutations {
			assert.NotEqual(t, base, DigestEntry(mutated, GenesisDigest),
				"changing %s must change the digest", name)
		}
	})

	t.Run("content cannot shift across field boundaries", func(t *testing.T) {
		// A tamper that moves bytes from the end of one free-text field to
		// the start of the next must always change the digest, whatever
		// characters are involved.
		a := testFields(1)
		a.Location = "locker|14"
		a.Purpose = "storage"

		b := testFields(1)
		b.Location = "locker"
		b.Purpose = "14|storage"

		assert.NotEqual(t, DigestEntry(a, GenesisDigest), DigestEntry(b, GenesisDigest))

		c := testFields(1)
		c.From = "officer-lee;3:x"
		c.To = "lab"

		d := testFields(1)
		d.From = "officer-lee"
		d.To = ";3:xlab"

		assert.NotEqual(t, DigestEntry(c, GenesisDigest), DigestEntry(d, GenesisDigest))
	})

	t.Run("previous digest participates", func(t *testing.T) {
		a := DigestEntry(testFields(2), GenesisDigest)
		b := DigestEntry(testFields(2), DigestEntry(testFields(1), GenesisDigest))
		assert.NotEqual(t, a, b)
	})

	t.Run("timestamp zone does not matter", func(t *testing.T) {
		f := testFields(1)
		utc := DigestEntry(f, GenesisDigest)

		zoned := f
		zoned.Timestamp = f.Timestamp.In(time.FixedZone("KST", 9*3600))
		assert.Equal(t, utc, DigestEntry(zoned, GenesisDigest))
	})
}

func TestVerifyFileDigest(t *testing.T) {
	data := []byte("disk image bytes")
	assert.True(t, VerifyFileDigest(DigestFile(data), data))
	assert.False(t, VerifyFileDigest(DigestFile(data), []byte("tampered")))
}

func TestVerifyChain(t *testing.T) {
	chain := func(n int) []ChainLink {
		links := make([]ChainLink, n)
		prev := GenesisDigest
		for i := range links {
			f := testFields(int64(i + 1))
			d := DigestEntry(f, prev)
			links[i] = ChainLink{Fields: f, Digest: d}
			prev = d
		}
		return links
	}

	t.Run("empty chain verifies", func(t *testing.T) {
		report := VerifyChain(nil)
		assert.True(t, report.OK)
		assert.Zero(t, report.Checked)
	})

	t.Run("intact chain verifies", func(t *testing.T) {
		report := VerifyChain(chain(4))
		assert.True(t, report.OK)
		assert.Equal(t, 4, report.Checked)
	})

	t.Run("altered field breaks from that entry", func(t *testing.T) {
		links := chain(4)
		links[2].Fields.To = "intruder"

		report := VerifyChain(links)
		assert.False(t, report.OK)
		assert.Equal(t, int64(3), report.BadSeq)
	})

	t.Run("shifting content between fields is caught", func(t *testing.T) {
		links := chain(4)
		links[2].Fields.Location = "forensics"
		links[2].Fields.Purpose = " labfingerprint analysis"

		report := VerifyChain(links)
		assert.False(t, report.OK)
		assert.Equal(t, int64(3), report.BadSeq)
	})

	t.Run("altered stored digest is caught", func(t *testing.T) {
		links := chain(3)
		links[1].Digest = strings.Repeat("ab", 32)

		report := VerifyChain(links)
		assert.False(t, report.OK)
		assert.Equal(t, int64(2), report.BadSeq)
	})

	t.Run("sequence gap is a mismatch", func(t *testing.T) {
		links := chain(3)
		links = append(links[:1], links[2])
		require.Len(t, links, 2)

		report := VerifyChain(links)
		assert.False(t, report.OK)
		assert.Equal(t, int64(3), report.BadSeq)
	})
}
