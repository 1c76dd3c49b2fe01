package integration_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/lookbusy1344/zpaqgo/internal/cfgcompile"
	"github.com/lookbusy1344/zpaqgo/internal/orchestrate"
	"github.com/stretchr/testify/require"
)

// identityPre leaves its input untouched; the matching PCOMP program
// just echoes every byte back out.
type identityPre struct{}

func (identityPre) Transform(in []byte) ([]byte, error) {
	return append([]byte(nil), in...), nil
}

// addOnePre adds one (mod 256) to every byte; the matching PCOMP
// program subtracts it again.
type addOnePre struct{}

func (addOnePre) Transform(in []byte) ([]byte, error) {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b + 1
	}
	return out, nil
}

// brokenPre claims to be addOnePre but corrupts one byte, so the
// round-trip digest check must reject it.
type brokenPre struct{}

func (brokenPre) Transform(in []byte) ([]byte, error) {
	out, _ := addOnePre{}.Transform(in)
	if len(out) > 0 {
		out[0] ^= 0x55
	}
	return out, nil
}

// A PCOMP program is invoked once per decoded byte with the byte in A,
// and once more with A=0xFFFFFFFF at end of segment; the comparison
// against 255 filters out that end marker.
const identityPCOMP = `comp 0 0 0 0 1
  0 cm 16 32
hcomp
  halt
pcomp ./identity ;
  a> 255
  ifnot
    out
  endif
  halt
end
`

const subOnePCOMP = `comp 0 0 0 0 1
  0 cm 16 32
hcomp
  halt
pcomp ./addone ;
  a> 255
  ifnot
    a--
    a&= 255
    out
  endif
  halt
end
`

func compileSource(t *testing.T, src string) *cfgcompile.Config {
	t.Helper()
	cfg, err := cfgcompile.Compile(src)
	require.NoError(t, err)
	return cfg
}

func TestPCOMP_IdentityProgramRoundTrips(t *testing.T) {
	cfg := compileSource(t, identityPCOMP)
	data := []byte("postprocess me, please")

	var archive bytes.Buffer
	skipped, err := orchestrate.CompressBlock(&archive, cfg, []orchestrate.Input{
		{Name: "id.bin", Data: data},
	}, identityPre{}, true)
	require.NoError(t, err)
	require.Empty(t, skipped)

	handlers := decompressAll(t, archive.Bytes())
	require.Len(t, handlers, 1)
	require.Equal(t, data, handlers[0].buf.Bytes())
	require.NotNil(t, handlers[0].want)
	require.Equal(t, *handlers[0].want, *handlers[0].got)
}

func TestPCOMP_NonTrivialTransformRoundTrips(t *testing.T) {
	cfg := compileSource(t, subOnePCOMP)
	data := []byte{0x00, 0x41, 0xFF, 0x00, 0x7F, 0x80}

	var archive bytes.Buffer
	skipped, err := orchestrate.CompressBlock(&archive, cfg, []orchestrate.Input{
		{Name: "t.bin", Data: data},
	}, addOnePre{}, true)
	require.NoError(t, err)
	require.Empty(t, skipped)

	handlers := decompressAll(t, archive.Bytes())
	require.Len(t, handlers, 1)
	require.Equal(t, data, handlers[0].buf.Bytes())
}

func TestPCOMP_ProgramSentOnceForMultipleSegments(t *testing.T) {
	cfg := compileSource(t, subOnePCOMP)
	inputs := []orchestrate.Input{
		{Name: "one.bin", Data: []byte("first segment")},
		{Name: "two.bin", Data: []byte("second segment reuses the loaded program")},
	}

	var archive bytes.Buffer
	skipped, err := orchestrate.CompressBlock(&archive, cfg, inputs, addOnePre{}, true)
	require.NoError(t, err)
	require.Empty(t, skipped)

	handlers := decompressAll(t, archive.Bytes())
	require.Len(t, handlers, 2)
	for i, in := range inputs {
		require.Equal(t, in.Data, handlers[i].buf.Bytes(), "segment %d", i)
	}
}

func TestPCOMP_VerificationFailureSkipsFile(t *testing.T) {
	cfg := compileSource(t, subOnePCOMP)

	var archive bytes.Buffer
	skipped, err := orchestrate.CompressBlock(&archive, cfg, []orchestrate.Input{
		{Name: "bad.bin", Data: []byte("this will fail verification")},
	}, brokenPre{}, true)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	require.True(t, errors.Is(skipped[0], orchestrate.ErrVerifyFailed))

	// The block exists but carries no segments.
	handlers := decompressAll(t, archive.Bytes())
	require.Empty(t, handlers)
}

func TestPCOMP_MissingPreprocessorSkipsFile(t *testing.T) {
	cfg := compileSource(t, subOnePCOMP)

	var archive bytes.Buffer
	skipped, err := orchestrate.CompressBlock(&archive, cfg, []orchestrate.Input{
		{Name: "f.bin", Data: []byte("no preprocessor supplied")},
	}, nil, false)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
}
