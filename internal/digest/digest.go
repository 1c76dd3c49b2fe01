// Package digest computes the 160-bit message digest carried in a
// segment trailer. The archive format only fixes the digest's size and
// placement; SHA-1 is the 160-bit digest used here.
package digest

import "crypto/sha1"

// Size is the fixed digest length carried after a 0xFD segment trailer
// byte.
const Size = sha1.Size // 20 bytes == 160 bits

// Hash accumulates a digest over a stream of bytes, one per call to
// Write/WriteByte, mirroring how the orchestrator and post-processor
// feed it one decoded byte at a time.
type Hash struct {
	h hashState
}

// hashState is the subset of hash.Hash this package relies on; kept as
// its own name so the rest of the package reads in domain terms rather
// than crypto/sha1 terms.
type hashState interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
}

// New returns a fresh digest accumulator.
func New() *Hash {
	return &Hash{h: sha1.New()}
}

// WriteByte feeds one byte into the running digest.
func (d *Hash) WriteByte(b byte) error {
	_, err := d.h.Write([]byte{b})
	return err
}

// Write feeds a run of bytes into the running digest.
func (d *Hash) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum returns the final 160-bit digest.
func (d *Hash) Sum() [Size]byte {
	var out [Size]byte
	copy(out[:], d.h.Sum(nil))
	return out
}
