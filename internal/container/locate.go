package container

import (
	"bufio"
	"fmt"
	"io"
)

// The four rolling hashes below each use an even multiplier, so after
// 16 bytes the contribution of whatever state preceded those 16 bytes
// is multiplied by mult^16, which is congruent to 0 modulo 2^32 (every
// multiplier here is divisible by 4, and 4^16 already has more factors
// of 2 than a uint32 holds). That makes each hash depend only on the
// most recent 16 bytes despite never subtracting a trailing term,
// letting FindStart scan a single byte at a time with four plain
// running sums. The seed constants are the hash state after the 13 tag
// bytes, so an untagged archive whose stream begins directly with
// "zPQ" matches after just those three bytes; anywhere else, the full
// 16-byte tag+magic sequence is required.
const (
	seed1, target1 = 0x3D49B113, 0xB16B88F1
	seed2, target2 = 0x29EB7F93, 0xFF5376F1
	seed3, target3 = 0x2614BE13, 0x72AC5BF1
	seed4, target4 = 0x3828EB13, 0x2F909AF1
)

// FindStart scans r byte by byte for the locator tag immediately
// followed by "zPQ", leaving r positioned at the first byte after
// "zPQ" (i.e. at the level byte, exactly where OpenBlock expects to
// continue reading) when found. It reports found=false, err=nil if r
// is exhausted with no match.
func FindStart(r *bufio.Reader) (found bool, err error) {
	h1, h2, h3, h4 := uint32(seed1), uint32(seed2), uint32(seed3), uint32(seed4)
	for {
		c, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, fmt.Errorf("container: scanning for locator tag: %w", err)
		}
		h1 = h1*12 + uint32(c)
		h2 = h2*20 + uint32(c)
		h3 = h3*28 + uint32(c)
		h4 = h4*44 + uint32(c)
		if h1 == target1 && h2 == target2 && h3 == target3 && h4 == target4 {
			return true, nil
		}
	}
}
