package predict_test

import (
	"testing"

	"github.com/lookbusy1344/zpaqgo/internal/predict"
	"github.com/stretchr/testify/assert"
)

func TestSharedTables_BuildsWithoutPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		predict.SharedTables()
	})
}

func TestSharedTables_SquashStretchRoundTripNearMidpoint(t *testing.T) {
	tabs := predict.SharedTables()
	// squash(0) should land near the middle of the 15-bit probability
	// range, and stretch of that value should land back near 0.
	mid := tabs.Squash0(0)
	assert.Greater(t, mid, int32(16000))
	assert.Less(t, mid, int32(16768))
	assert.InDelta(t, 0, tabs.Stretch0(mid), 64)
}

func TestClamp2k_BoundsToSigned12Bit(t *testing.T) {
	assert.Equal(t, int32(-2048), predict.Clamp2k(-9999))
	assert.Equal(t, int32(2047), predict.Clamp2k(9999))
	assert.Equal(t, int32(5), predict.Clamp2k(5))
}

func TestClamp512k_BoundsToSigned20Bit(t *testing.T) {
	assert.Equal(t, int32(-(1 << 19)), predict.Clamp512k(-999999))
	assert.Equal(t, int32(1<<19-1), predict.Clamp512k(999999))
}
