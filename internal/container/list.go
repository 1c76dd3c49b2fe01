package container

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/lookbusy1344/zpaqgo/internal/digest"
	"github.com/lookbusy1344/zpaqgo/internal/predict"
)

// SegmentInfo summarizes one segment without decoding its payload.
type SegmentInfo struct {
	Filename string
	Comment  string
	Digest   *[digest.Size]byte
	Size     int // compressed payload bytes, excluding padding and trailer
}

// BlockInfo summarizes one block without decoding any of its segments.
type BlockInfo struct {
	Header   *predict.Header
	Segments []SegmentInfo
}

// ListBlocks scans an entire archive and returns a summary of every
// block and segment, without running the arithmetic decoder on any
// payload. Segment payloads are skipped with a 4-zero-byte rolling
// scan: the encoder never emits four consecutive zero bytes (its low
// counter skips zero after each byte flush), so the first such run is
// the segment's terminator.
func ListBlocks(r *bufio.Reader) ([]BlockInfo, error) {
	var blocks []BlockInfo
	for {
		found, err := FindStart(r)
		if err != nil {
			return nil, err
		}
		if !found {
			return blocks, nil
		}
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
		info := BlockInfo{Header: header}
		for {
			tag, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("container: reading segment tag: %w", err)
			}
			if tag == blockEnd {
				break
			}
			if tag != segStart {
				return nil, fmt.Errorf("%w: unexpected segment tag %d", ErrFormat, tag)
			}
			seg, err := scanSegment(r)
			if err != nil {
				return nil, fmt.Errorf("container: segment %d: %w", len(info.Segments), err)
			}
			info.Segments = append(info.Segments, *seg)
		}
		blocks = append(blocks, info)
	}
}

func scanSegment(r *bufio.Reader) (*SegmentInfo, error) {
	seg := &SegmentInfo{}
	var err error
	if seg.Filename, err = readCString(r); err != nil {
		return nil, fmt.Errorf("reading filename: %w", err)
	}
	if seg.Comment, err = readCString(r); err != nil {
		return nil, fmt.Errorf("reading comment: %w", err)
	}
	reserved, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if reserved != 0 {
		return nil, fmt.Errorf("%w: reserved byte %d, want 0", ErrFormat, reserved)
	}

	var c4 uint32 = 0xFFFFFFFF
	size := 0
	for {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: unexpected end of file in segment payload", ErrFormat)
			}
			return nil, err
		}
		c4 = c4<<8 | uint32(c)
		if c4 == 0 {
			break
		}
		size++
	}
	seg.Size = size - (payloadPad - 1) // the loop's last 3 bytes counted were padding, not payload

	tag, err := r.ReadByte()
	for err == nil && tag == 0 {
		seg.Size++ // the payload ended in a zero byte, so the scan stopped one pad byte early
		tag, err = r.ReadByte()
	}
	if err != nil {
		return nil, fmt.Errorf("reading trailer: %w", err)
	}
	switch tag {
	case segNoChecksum:
	case segChecksum:
		var d [digest.Size]byte
		if _, err := io.ReadFull(r, d[:]); err != nil {
			return nil, fmt.Errorf("reading digest: %w", err)
		}
		seg.Digest = &d
	default:
		return nil, fmt.Errorf("%w: missing end-of-segment marker, found %d", ErrFormat, tag)
	}
	return seg, nil
}
