package zpaql_test

import (
	"testing"

	"github.com/lookbusy1344/zpaqgo/internal/zpaql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_Halt_Immediately(t *testing.T) {
	m := zpaql.New([]byte{byte(zpaql.OpHalt)}, 0, 0)
	err := m.Run(42)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), m.A)
}

func TestMachine_MinCfgHash(t *testing.T) {
	// *d<>a a+=*d a*=192 *d=a halt  (an order-1 rolling context hash)
	code := []byte{
		byte(zpaql.OpHDSwap),
		byte(zpaql.OpAAddHD),
		byte(zpaql.OpAMulN), 192,
		byte(zpaql.OpHDEqA),
		byte(zpaql.OpHalt),
	}
	m := zpaql.New(code, 18, 0)
	require.NoError(t, m.Run('a'))
	require.NoError(t, m.Run('a'))
	assert.NotZero(t, m.H[0])
}

func TestMachine_DivModByZero(t *testing.T) {
	code := []byte{
		byte(zpaql.OpAEqN), 7,
		byte(zpaql.OpBZero),
		byte(zpaql.OpADivB),
		byte(zpaql.OpHalt),
	}
	m := zpaql.New(code, 0, 0)
	require.NoError(t, m.Run(0))
	assert.Equal(t, uint32(0), m.A)
}

func TestMachine_ByteSwapPreservesHighBits(t *testing.T) {
	code := []byte{
		byte(zpaql.OpAEqN), 0xAB,
		byte(zpaql.OpAShlN), 8, // A = 0xAB00
		byte(zpaql.OpAAddN), 0x34, // A = 0xAB34
		byte(zpaql.OpMBSwap),      // *M[0] <-> low byte of A
		byte(zpaql.OpHalt),
	}
	m := zpaql.New(code, 0, 0)
	m.M[0] = 0x12
	require.NoError(t, m.Run(0))
	assert.Equal(t, uint32(0xAB12), m.A)
	assert.Equal(t, byte(0x34), m.M[0])
}

func TestMachine_ShortJumpBackward(t *testing.T) {
	// A=0; loop: A++; A==5 -> JT end; JMP loop; end: HALT
	jumpBack := int8(-7)
	code := []byte{
		byte(zpaql.OpAZero),
		byte(zpaql.OpAInc),
		byte(zpaql.OpAEqEqN), 5,
		byte(zpaql.OpJT), 2,
		byte(zpaql.OpJmp), byte(jumpBack),
		byte(zpaql.OpHalt),
	}
	m := zpaql.New(code, 0, 0)
	require.NoError(t, m.Run(0))
	assert.Equal(t, uint32(5), m.A)
}

func TestMachine_LongJumpOutOfRangeIsFatal(t *testing.T) {
	code := []byte{byte(zpaql.OpLJ), 0xFF, 0xFF}
	m := zpaql.New(code, 0, 0)
	err := m.Run(0)
	require.Error(t, err)
	var zerr *zpaql.Error
	require.ErrorAs(t, err, &zerr)
}

func TestMachine_PCOutOfRangeIsFatal(t *testing.T) {
	code := []byte{byte(zpaql.OpAEqN), 1} // no HALT: execution runs off the end
	m := zpaql.New(code, 0, 0)
	err := m.Run(0)
	require.Error(t, err)
}

func TestMachine_OutEmitsToSink(t *testing.T) {
	code := []byte{
		byte(zpaql.OpAEqN), 65,
		byte(zpaql.OpOut),
		byte(zpaql.OpHalt),
	}
	m := zpaql.New(code, 0, 0)
	sink := &collectingSink{}
	m.Out = sink
	require.NoError(t, m.Run(0))
	assert.Equal(t, []byte{65}, sink.bytes)
}

type collectingSink struct{ bytes []byte }

func (s *collectingSink) WriteByte(b byte) error {
	s.bytes = append(s.bytes, b)
	return nil
}
