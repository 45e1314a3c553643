package extract

import "hash/crc32"

// Fingerprint is a cheap (length, CRC-32) key over a byte span. It guards
// against reporting the same image twice within one scan and is not a
// security digest.
type Fingerprint struct {
	Length   int
	Checksum uint32
}

// Sum computes the fingerprint of b.
func Sum(b []byte) Fingerprint {
	return Fingerprint{Length: len(b), Checksum: crc32.ChecksumIEEE(b)}
}

// Index is the set of fingerprints seen during one scan. It is not safe for
// concurrent use; each scan owns its own index.
type Index struct {
	seen map[Fingerprint]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{seen: make(map[Fingerprint]struct{})}
}

// Add records b and reports whether its fingerprint was new.
func (x *Index) Add(b []byte) bool {
	fp := Sum(b)
	if _, ok := x.seen[fp]; ok {
		return false
	}
	x.seen[fp] = struct{}{}
	return true
}

// Len returns the number of distinct fingerprints recorded.
func (x *Index) Len() int { return len(x.seen) }
