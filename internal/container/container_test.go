package container_test

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/lookbusy1344/zpaqgo/internal/container"
	"github.com/lookbusy1344/zpaqgo/internal/digest"
	"github.com/lookbusy1344/zpaqgo/internal/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader() *predict.Header {
	return &predict.Header{
		HH: 2, HM: 3, PH: 0, PM: 0,
		Comps: []predict.Comp{
			{Type: predict.CM, Params: []byte{18, 20}},
		},
		HCOMP: []byte{56, 0}, // halt, terminator
	}
}

// writeTestBlock frames payload (raw bytes standing in for a coded
// stream; the framing layer never interprets them) as a one-segment
// block.
func writeTestBlock(t *testing.T, w io.Writer, filename, comment string, payload []byte, sum *[digest.Size]byte) {
	t.Helper()
	bw, err := container.NewBlockWriter(w, testHeader())
	require.NoError(t, err)
	seg, err := bw.StartSegment(filename, comment)
	require.NoError(t, err)
	_, err = seg.Write(payload)
	require.NoError(t, err)
	require.NoError(t, bw.FinishSegment(sum))
	require.NoError(t, bw.Close())
}

func TestBlockRoundTrip_HeaderAndSegmentFraming(t *testing.T) {
	payload := []byte{0x11, 0x22, 0x33, 0x44, 0x55}
	sum := [digest.Size]byte{1, 2, 3}

	var buf bytes.Buffer
	writeTestBlock(t, &buf, "file.bin", "5 ", payload, &sum)

	r := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	br, err := container.OpenBlock(r)
	require.NoError(t, err)
	assert.Equal(t, testHeader(), br.Header)

	name, comment, ok, err := br.NextSegment()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "file.bin", name)
	assert.Equal(t, "5 ", comment)

	got := make([]byte, len(payload))
	_, err = io.ReadFull(br.Payload(), got)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	want, err := br.FinishSegment()
	require.NoError(t, err)
	require.NotNil(t, want)
	assert.Equal(t, sum, *want)

	_, _, ok, err = br.NextSegment()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlockRoundTrip_NoChecksumEmptyNames(t *testing.T) {
	var buf bytes.Buffer
	writeTestBlock(t, &buf, "", "", []byte{0xAA}, nil)

	r := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	br, err := container.OpenBlock(r)
	require.NoError(t, err)

	name, comment, ok, err := br.NextSegment()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, name)
	assert.Empty(t, comment)

	_, err = br.Payload().ReadByte()
	require.NoError(t, err)

	want, err := br.FinishSegment()
	require.NoError(t, err)
	assert.Nil(t, want)
}

func TestOpenBlock_RejectsBadMagic(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("not an archive at all"))
	_, err := container.OpenBlock(r)
	require.ErrorIs(t, err, container.ErrFormat)
}

func TestOpenBlock_RejectsUnsupportedLevel(t *testing.T) {
	var buf bytes.Buffer
	writeTestBlock(t, &buf, "", "", []byte{1}, nil)
	raw := buf.Bytes()
	raw[3] = 9 // level byte

	_, err := container.OpenBlock(bufio.NewReader(bytes.NewReader(raw)))
	require.ErrorIs(t, err, container.ErrFormat)
}

func TestOpenBlock_RejectsTruncatedComponentList(t *testing.T) {
	var buf bytes.Buffer
	writeTestBlock(t, &buf, "", "", []byte{1}, nil)
	raw := buf.Bytes()
	// Inflate the declared component count past what the header holds
	// (magic+level+reserved are bytes 0..4, hsize 5..6, hh/hm/ph/pm
	// 7..10, n at 11).
	raw[11] = 200

	_, err := container.OpenBlock(bufio.NewReader(bytes.NewReader(raw)))
	require.Error(t, err)
}

func TestFindStart_LocatesTagAfterNoise(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(strings.Repeat("noise bytes that are not an archive ", 100))
	require.NoError(t, container.WriteLocatorTag(&buf))
	buf.WriteString(container.Magic)
	buf.WriteByte(0x7E) // stand-in for the level byte

	r := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	found, err := container.FindStart(r)
	require.NoError(t, err)
	require.True(t, found)

	// The scan consumes through "zPQ"; the next byte is the level.
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x7E), b)
}

func TestFindStart_FindsTagAtVeryStart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, container.WriteLocatorTag(&buf))
	buf.WriteString(container.Magic)

	found, err := container.FindStart(bufio.NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFindStart_MatchesBareMagicAtStreamStart(t *testing.T) {
	// The rolling-hash seeds pre-fold the 13 locator-tag bytes, so an
	// untagged archive beginning directly with "zPQ" still matches.
	r := bufio.NewReader(strings.NewReader(container.Magic + "\x01\x01"))
	found, err := container.FindStart(r)
	require.NoError(t, err)
	require.True(t, found)

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), b)
}

func TestFindStart_ReportsNotFoundAtEOF(t *testing.T) {
	found, err := container.FindStart(bufio.NewReader(strings.NewReader("nothing here")))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListBlocks_SummarizesWithoutDecoding(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, container.WriteLocatorTag(&buf))
	sum := [digest.Size]byte{9, 9, 9}
	writeTestBlock(t, &buf, "a.txt", "11 ", []byte{0x10, 0x20, 0x30}, &sum)

	blocks, err := container.ListBlocks(bufio.NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Len(t, blocks[0].Segments, 1)

	seg := blocks[0].Segments[0]
	assert.Equal(t, "a.txt", seg.Filename)
	assert.Equal(t, "11 ", seg.Comment)
	assert.Equal(t, 3, seg.Size)
	require.NotNil(t, seg.Digest)
	assert.Equal(t, sum, *seg.Digest)
}

func TestSizeComment_RoundTrip(t *testing.T) {
	c := container.FormatSizeComment(12345, "e8e9")
	size, tag, ok := container.ParseSizeComment(c)
	require.True(t, ok)
	assert.Equal(t, int64(12345), size)
	assert.Equal(t, "e8e9", tag)

	c = container.FormatSizeComment(7, "")
	size, tag, ok = container.ParseSizeComment(c)
	require.True(t, ok)
	assert.Equal(t, int64(7), size)
	assert.Empty(t, tag)
}

func TestParseSizeComment_RejectsFreeFormComments(t *testing.T) {
	_, _, ok := container.ParseSizeComment("created by hand")
	assert.False(t, ok)
	_, _, ok = container.ParseSizeComment("")
	assert.False(t, ok)
	_, _, ok = container.ParseSizeComment("-4 neg")
	assert.False(t, ok)
}
