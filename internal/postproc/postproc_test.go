package postproc_test

import (
	"testing"

	"github.com/lookbusy1344/zpaqgo/internal/postproc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingSink struct{ got []byte }

func (s *collectingSink) WriteByte(b byte) error {
	s.got = append(s.got, b)
	return nil
}

func TestProcessor_Pass_CopiesBytesThrough(t *testing.T) {
	sink := &collectingSink{}
	p := postproc.New(0, 0, sink, nil)

	require.NoError(t, p.Write(0)) // PASS selector
	for _, b := range []byte("hello") {
		require.NoError(t, p.Write(int(b)))
	}

	assert.Equal(t, []byte("hello"), sink.got)
}

func TestProcessor_Prog_RunsEmbeddedProgramPerByte(t *testing.T) {
	sink := &collectingSink{}
	p := postproc.New(0, 0, sink, nil)

	require.NoError(t, p.Write(1)) // PROG selector
	require.NoError(t, p.Write(2)) // psize low byte
	require.NoError(t, p.Write(0)) // psize high byte: hsize=2+0*256+1=3

	// Program body (hsize-1=2 bytes): OUT, HALT. A third (guard) zero
	// byte is appended automatically once the body is complete.
	require.NoError(t, p.Write(57)) // OUT
	require.NoError(t, p.Write(56)) // HALT

	require.NoError(t, p.Write(65)) // 'A', run through OUT -> emits A unchanged
	require.NoError(t, p.Write(66)) // 'B'

	assert.Equal(t, []byte{65, 66}, sink.got)
}

func TestProcessor_RejectsUnknownSelector(t *testing.T) {
	p := postproc.New(0, 0, &collectingSink{}, nil)
	assert.Error(t, p.Write(2))
}
