// Package container implements the archive block/segment framing: a
// sequence of blocks, each carrying a predictor header and one or more
// named/unnamed segments, optionally preceded by a 13-byte locator tag
// that lets a scanner find an archive embedded inside unrelated bytes.
//
// A segment's compressed payload has no length prefix: the arithmetic
// coder it carries is self-terminating (internal/arith signals end of
// data with its own coded EOF bit), so this package never tries to
// locate a payload's end by scanning. Instead BlockReader hands the
// caller the raw byte stream to decode from and waits to be told the
// payload is finished before reading the fixed trailer that follows it.
package container

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/lookbusy1344/zpaqgo/internal/digest"
	"github.com/lookbusy1344/zpaqgo/internal/predict"
)

// Magic is the 3-byte archive signature written after an optional
// locator tag.
const Magic = "zPQ"

// Level is the only archive format version this package writes or
// accepts.
const Level = 1

// LocatorTag is the fixed 13-byte string a reader can scan for to find
// an archive's start inside otherwise unrelated data.
var LocatorTag = [13]byte{0x37, 0x6B, 0x53, 0x74, 0xA0, 0x31, 0x83, 0xD3, 0x8C, 0xB2, 0x28, 0xB0, 0xD3}

const (
	segStart      = 0x01
	segNoChecksum = 0xFE
	segChecksum   = 0xFD
	blockEnd      = 0xFF
)

// payloadPad is the fixed number of literal zero bytes written after a
// segment's compressed payload, before its checksum trailer. The
// decoder's end-of-segment check consumes these zeros as it shifts in
// the final coded bytes, so they are load-bearing, not padding.
const payloadPad = 4

// ErrFormat reports archive framing violations: bad magic, wrong
// version, a missing terminator byte, or a declared size that would
// overflow the header buffer.
var ErrFormat = errors.New("container: malformed archive")

// WriteLocatorTag writes the optional 13-byte locator string that lets
// a reader find this archive's start by scanning.
func WriteLocatorTag(w io.Writer) error {
	_, err := w.Write(LocatorTag[:])
	return err
}

// BlockWriter writes one block's framing: the magic/level bytes, the
// predictor header, and then each segment's filename/comment header,
// raw payload bytes, and trailer, ending with the block terminator.
type BlockWriter struct {
	w io.Writer
}

// NewBlockWriter writes the magic, level, and predictor header for a
// new block and returns a BlockWriter ready for StartSegment.
func NewBlockWriter(w io.Writer, h *predict.Header) (*BlockWriter, error) {
	if _, err := w.Write([]byte{Magic[0], Magic[1], Magic[2], Level, 1}); err != nil {
		return nil, fmt.Errorf("container: writing magic: %w", err)
	}
	if err := writeHeader(w, h); err != nil {
		return nil, err
	}
	return &BlockWriter{w: w}, nil
}

// Writer returns the block's single underlying writer, the same object
// on every call. Callers that need to construct a coder once per block
// (an Encoder's low/high window must flow continuously across segment
// boundaries, not reset per segment) use this instead of the per-call
// return value from StartSegment.
func (bw *BlockWriter) Writer() io.Writer {
	return bw.w
}

// StartSegment writes a segment's start tag, filename, comment, and
// reserved byte, and returns the underlying writer for the caller to
// stream the segment's arithmetic-coded payload to directly.
func (bw *BlockWriter) StartSegment(filename, comment string) (io.Writer, error) {
	if _, err := bw.w.Write([]byte{segStart}); err != nil {
		return nil, err
	}
	if err := writeCString(bw.w, filename); err != nil {
		return nil, err
	}
	if err := writeCString(bw.w, comment); err != nil {
		return nil, err
	}
	if _, err := bw.w.Write([]byte{0}); err != nil {
		return nil, err
	}
	return bw.w, nil
}

// FinishSegment writes the fixed zero padding and checksum trailer
// after the caller has finished streaming a segment's payload through
// the writer StartSegment returned. sha1sum is nil for an unchecked
// segment.
func (bw *BlockWriter) FinishSegment(sha1sum *[digest.Size]byte) error {
	if _, err := bw.w.Write(make([]byte, payloadPad)); err != nil {
		return err
	}
	if sha1sum == nil {
		_, err := bw.w.Write([]byte{segNoChecksum})
		return err
	}
	if _, err := bw.w.Write([]byte{segChecksum}); err != nil {
		return err
	}
	_, err := bw.w.Write(sha1sum[:])
	return err
}

// Close writes the block terminator. No more segments may be started
// afterward.
func (bw *BlockWriter) Close() error {
	_, err := bw.w.Write([]byte{blockEnd})
	return err
}

func writeHeader(w io.Writer, h *predict.Header) error {
	var comp []byte
	for i, c := range h.Comps {
		if int(c.Type) >= len(predict.CompSize) || predict.CompSize[c.Type] == 0 {
			return fmt.Errorf("container: component %d has unknown type %d", i, c.Type)
		}
		comp = append(comp, byte(c.Type))
		comp = append(comp, c.Params...)
	}
	comp = append(comp, 0) // end of COMP list

	hsize := 5 + len(comp) + len(h.HCOMP)
	if hsize > 0xFFFF {
		return fmt.Errorf("container: header size %d overflows 16 bits", hsize)
	}
	if _, err := w.Write([]byte{byte(hsize), byte(hsize >> 8)}); err != nil {
		return err
	}
	if _, err := w.Write([]byte{h.HH, h.HM, h.PH, h.PM, byte(len(h.Comps))}); err != nil {
		return err
	}
	if _, err := w.Write(comp); err != nil {
		return err
	}
	_, err := w.Write(h.HCOMP)
	return err
}

func writeCString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

// BlockReader reads one block's framing. After OpenBlock returns,
// NextSegment must be called in a loop; each call that reports ok
// leaves r positioned at the first byte of that segment's payload,
// ready for an internal/arith.Decoder (wrapping r, which implements
// io.ByteReader) to consume until it signals end of data, after which
// the caller must call FinishSegment before the next NextSegment call.
type BlockReader struct {
	r      *bufio.Reader
	Header *predict.Header
}

// OpenBlock reads the magic, level, and predictor header for the next
// block starting at the current position of r (immediately after any
// locator tag). It returns io.EOF if r is exhausted before any bytes of
// a new block are read.
func OpenBlock(r *bufio.Reader) (*BlockReader, error) {
	magic := make([]byte, 3)
	if _, err := io.ReadFull(r, magic); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("container: reading magic: %w", err)
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, magic)
	}
	return openBlockAfterMagic(r)
}

// FindNextBlock scans r for a locator tag followed by "zPQ" (see
// FindStart) and, once found, reads the level/reserved bytes and
// predictor header that follow the magic. It returns io.EOF if no more
// locator tags are found before r is exhausted. Unlike OpenBlock, it
// does not require the archive to start exactly at the current
// position; it is the entry point for scanning a locator tag out of
// otherwise unrelated bytes.
func FindNextBlock(r *bufio.Reader) (*BlockReader, error) {
	found, err := FindStart(r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, io.EOF
	}
	return openBlockAfterMagic(r)
}

// openBlockAfterMagic continues block-opening once the "zPQ" magic
// bytes have already been consumed, shared by OpenBlock (which reads
// them itself) and FindNextBlock (whose locator-tag scan already
// consumes them as the tail of its rolling hash match).
func openBlockAfterMagic(r *bufio.Reader) (*BlockReader, error) {
	level, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if level < 1 || level > Level {
		return nil, fmt.Errorf("%w: unsupported level %d", ErrFormat, level)
	}
	if reserved, err := r.ReadByte(); err != nil {
		return nil, err
	} else if reserved != 1 {
		return nil, fmt.Errorf("%w: reserved byte %d, want 1", ErrFormat, reserved)
	}

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	return &BlockReader{r: r, Header: header}, nil
}

// NextSegment reads the next segment's start tag, filename, and
// comment, or reports ok=false (with err=nil) once the block
// terminator is reached.
func (br *BlockReader) NextSegment() (filename, comment string, ok bool, err error) {
	tag, err := br.r.ReadByte()
	if err != nil {
		return "", "", false, fmt.Errorf("container: reading segment tag: %w", err)
	}
	if tag == blockEnd {
		return "", "", false, nil
	}
	if tag != segStart {
		return "", "", false, fmt.Errorf("%w: unexpected segment tag %d", ErrFormat, tag)
	}
	if filename, err = readCString(br.r); err != nil {
		return "", "", false, fmt.Errorf("container: reading filename: %w", err)
	}
	if comment, err = readCString(br.r); err != nil {
		return "", "", false, fmt.Errorf("container: reading comment: %w", err)
	}
	reserved, err := br.r.ReadByte()
	if err != nil {
		return "", "", false, err
	}
	if reserved != 0 {
		return "", "", false, fmt.Errorf("%w: reserved byte %d, want 0", ErrFormat, reserved)
	}
	return filename, comment, true, nil
}

// Payload returns the reader a decoder should consume this segment's
// compressed bytes from. It implements io.ByteReader, which
// internal/arith.NewDecoder requires.
func (br *BlockReader) Payload() *bufio.Reader {
	return br.r
}

// FinishSegment reads the fixed zero padding after a segment's payload
// if it is still ahead (an internal/arith decoder already shifts it in
// while decoding its end-of-data bit), then reads its checksum trailer.
// Call this only after a decoder driven by Payload has reported end of
// data.
func (br *BlockReader) FinishSegment() (*[digest.Size]byte, error) {
	if next, err := br.r.Peek(1); err == nil && next[0] == 0 {
		pad := make([]byte, payloadPad)
		if _, err := io.ReadFull(br.r, pad); err != nil {
			return nil, fmt.Errorf("container: reading payload padding: %w", err)
		}
	}
	tag, err := br.r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("container: reading segment trailer: %w", err)
	}
	switch tag {
	case segNoChecksum:
		return nil, nil
	case segChecksum:
		var d [digest.Size]byte
		if _, err := io.ReadFull(br.r, d[:]); err != nil {
			return nil, fmt.Errorf("container: reading digest: %w", err)
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("%w: missing end-of-segment marker, found %d", ErrFormat, tag)
	}
}

func readHeader(r *bufio.Reader) (*predict.Header, error) {
	var sizeBuf [2]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, fmt.Errorf("container: reading header size: %w", err)
	}
	hsize := int(sizeBuf[0]) + 256*int(sizeBuf[1])
	if hsize < 5 {
		return nil, fmt.Errorf("%w: header size %d too small", ErrFormat, hsize)
	}
	body := make([]byte, hsize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("container: reading header body: %w", err)
	}

	h := &predict.Header{HH: body[0], HM: body[1], PH: body[2], PM: body[3]}
	n := int(body[4])
	pos := 5
	for i := 0; i < n; i++ {
		if pos >= len(body) {
			return nil, fmt.Errorf("%w: component list overruns header", ErrFormat)
		}
		ct := predict.CompType(body[pos])
		if int(ct) >= len(predict.CompSize) || predict.CompSize[ct] == 0 {
			return nil, fmt.Errorf("%w: component %d has unknown type %d", ErrFormat, i, ct)
		}
		size := predict.CompSize[ct]
		if pos+size > len(body) {
			return nil, fmt.Errorf("%w: component %d overruns header", ErrFormat, i)
		}
		params := make([]byte, size-1)
		copy(params, body[pos+1:pos+size])
		h.Comps = append(h.Comps, predict.Comp{Type: ct, Params: params})
		pos += size
	}
	if pos >= len(body) || body[pos] != 0 {
		return nil, fmt.Errorf("%w: missing end-of-COMP marker", ErrFormat)
	}
	pos++
	h.HCOMP = append([]byte(nil), body[pos:]...)
	if len(h.HCOMP) == 0 || h.HCOMP[len(h.HCOMP)-1] != 0 {
		return nil, fmt.Errorf("%w: HCOMP missing terminator", ErrFormat)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func readCString(r *bufio.Reader) (string, error) {
	s, err := r.ReadString(0)
	if err != nil {
		return "", err
	}
	return s[:len(s)-1], nil
}
