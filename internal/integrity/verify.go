package integrity

// ChainLink pairs an entry's canonical fields with its stored digest for
// verification. Entries must be supplied in sequence order.
type ChainLink struct {
	Fields EntryFields
	Digest string
}

// ChainReport is the outcome of a chain verification pass.
type ChainReport struct {
	OK      bool
	Checked int
	// BadSeq is the sequence number of the first entry whose recomputed
	// digest differs from the stored one. Zero when OK.
	BadSeq int64
}

// VerifyChain recomputes digests sequentially from genesis and compares each
// to the stored value. It stops at the first mismatch: once one digest is
// wrong, every later comparison is meaningless.
//
// An empty chain verifies trivially. A sequence gap or out-of-order input is
// reported as a mismatch at that entry, since the recomputed digest cannot
// match a chain built over different positions.
func VerifyChain(links []ChainLink) ChainReport {
	prev := GenesisDigest
	for i, link := range links {
		if link.Fields.Seq != int64(i)+1 {
			return ChainReport{OK: false, Checked: i, BadSeq: link.Fields.Seq}
		}
		computed := DigestEntry(link.Fields, prev)
		if computed != link.Digest {
			return ChainReport{OK: false, Checked: i, BadSeq: link.Fields.Seq}
		}
		prev = link.Digest
	}
	return ChainReport{OK: true, Checked: len(links)}
}
