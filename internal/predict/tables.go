package predict

import (
	"fmt"
	"math"
	"sync"
)

// Tables holds the squash (logistic) and stretch (logit) lookup tables
// shared by every component that mixes or combines probabilities.
// squash maps a stretched value
// in -2048..2047 to a 15-bit probability in 0..32767; stretch is its
// approximate inverse. Both are computed once at process start and
// checksum-verified so every implementation of this format agrees
// bit-for-bit, since the archive's arithmetic coding depends on exactly
// reproducible predictions.
type Tables struct {
	Squash  [4096]int32  // Squash[x+2048], x in -2048..2047
	Stretch [32768]int32 // Stretch[p], p in 0..32767
}

// The fixed checksums every conforming build's tables must sum to
// (sum = sum*3 + value, accumulated from the highest index down). A
// mismatch means this platform's math.Log/math.Exp disagree with other
// builds in the last bit, which would make encoded archives
// non-portable.
const (
	stretchChecksum uint32 = 3887533746
	squashChecksum  uint32 = 2278286169
)

func buildTables() *Tables {
	var t Tables
	for i := 0; i < 32768; i++ {
		v := math.Log((float64(i)+0.5)/(32767.5-float64(i)))*64 + 0.5 + 100000
		t.Stretch[i] = int32(v) - 100000
	}
	for i := 0; i < 4096; i++ {
		v := 32768.0 / (1 + math.Exp(float64(i-2048)*(-1.0/64)))
		t.Squash[i] = int32(v)
	}

	var stsum, sqsum uint32
	for i := 32767; i >= 0; i-- {
		stsum = stsum*3 + uint32(t.Stretch[i])
	}
	for i := 4095; i >= 0; i-- {
		sqsum = sqsum*3 + uint32(t.Squash[i])
	}
	if stsum != stretchChecksum {
		panic(fmt.Sprintf("predict: stretch table checksum %d, want %d", stsum, stretchChecksum))
	}
	if sqsum != squashChecksum {
		panic(fmt.Sprintf("predict: squash table checksum %d, want %d", sqsum, squashChecksum))
	}
	return &t
}

var sharedTables = sync.OnceValue(buildTables)

// SharedTables returns the process-wide stretch/squash tables, building
// and checksum-verifying them once.
func SharedTables() *Tables {
	return sharedTables()
}

// Squash0 returns squash(x) for x already known to be in -2048..2047.
func (t *Tables) Squash0(x int32) int32 {
	return t.Squash[x+2048]
}

// Clamp2k bounds x to a signed 12-bit range, the domain squash expects.
func Clamp2k(x int32) int32 {
	if x < -2048 {
		return -2048
	}
	if x > 2047 {
		return 2047
	}
	return x
}

// Clamp512k bounds x to a signed 20-bit range, used by MIX/ISSE weight
// updates before they are shifted back down to stretch scale.
func Clamp512k(x int32) int32 {
	if x < -(1 << 19) {
		return -(1 << 19)
	}
	if x >= 1<<19 {
		return 1<<19 - 1
	}
	return x
}

// Stretch0 returns stretch(p) for p already known to be in 0..32767.
func (t *Tables) Stretch0(p int32) int32 {
	return t.Stretch[p]
}
