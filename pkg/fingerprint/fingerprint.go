// Package fingerprint derives content fingerprints from canonical token sequences.
package fingerprint

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// separator delimits tokens inside a shingle before hashing. Canonical
// tokens are keywords, placeholders, numbers in source form, and
// operator glyphs; none contain control bytes, so the separator cannot
// collide with token text.
const separator = 0x1f

// Set is an immutable set of 64-bit shingle fingerprints.
type Set struct {
	bits *roaring64.Bitmap
}

// Shingle fingerprints a canonical sequence with sliding windows of k
// tokens. A non-empty sequence shorter than k yields exactly one
// fingerprint over the whole sequence, so short files still contribute a
// comparable signal. An empty sequence yields an empty set.
func Shingle(tokens []string, k int) (*Set, error) {
	if k <= 0 {
		return nil, fmt.Errorf("shingle size must be >= 1, got %d", k)
	}

	bits := roaring64.New()
	h := blake3.New()

	if len(tokens) < k {
		if len(tokens) > 0 {
			bits.Add(hashWindow(h, tokens))
		}
		return &Set{bits: bits}, nil
	}

	for i := 0; i <= len(tokens)-k; i++ {
		bits.Add(hashWindow(h, tokens[i:i+k]))
	}

	return &Set{bits: bits}, nil
}

// hashWindow hashes one window of tokens, separator-joined so that
// adjacent tokens cannot merge into the same digest input.
func hashWindow(h *blake3.Hasher, window []string) uint64 {
	h.Reset()
	for i, tok := range window {
		if i > 0 {
			h.Write([]byte{separator})
		}
		h.Write([]byte(tok))
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// Count returns the number of distinct fingerprints.
func (s *Set) Count() uint64 {
	if s == nil || s.bits == nil {
		return 0
	}
	return s.bits.GetCardinality()
}

// Jaccard computes |X ∩ Y| / |X ∪ Y|. When both sets are empty the
// result is 0.0: two files with no fingerprintable content carry no
// evidence of similarity. One-empty is likewise 0.0.
func (s *Set) Jaccard(other *Set) float64 {
	if s.Count() == 0 || other.Count() == 0 {
		return 0.0
	}

	inter := roaring64.And(s.bits, other.bits).GetCardinality()
	union := roaring64.Or(s.bits, other.bits).GetCardinality()
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

// Equal reports whether two sets hold identical fingerprints.
func (s *Set) Equal(other *Set) bool {
	if s.Count() != other.Count() {
		return false
	}
	if s.Count() == 0 {
		return true
	}
	return s.bits.Equals(other.bits)
}

// SequenceDigest returns a 64-bit digest of the whole canonical
// sequence, used as a fast identical-content signal alongside the
// windowed fingerprints.
func SequenceDigest(tokens []string) uint64 {
	d := xxhash.New()
	for i, tok := range tokens {
		if i > 0 {
			d.Write([]byte{separator})
		}
		d.WriteString(tok)
	}
	return d.Sum64()
}
