// Package arith implements the binary arithmetic coder: a 32-bit range
// [low,high] narrowed bit by bit according to the predictor's
// probability estimate, with identical leading bytes flushed (encoder)
// or consumed (decoder) as the range narrows below 2^24.
package arith

import (
	"errors"
	"fmt"
	"io"

	"github.com/lookbusy1344/zpaqgo/internal/predict"
)

// ErrCorrupt is returned when the decoder's current window falls outside
// [low,high], which can only happen if the archive bytes were altered.
var ErrCorrupt = errors.New("arith: archive corrupted")

// Encoder narrows [low,high] one bit at a time and writes out
// high-order bytes as they stop changing.
type Encoder struct {
	w         io.ByteWriter
	pr        *predict.Predictor
	low, high uint32
}

// NewEncoder returns an encoder that writes coded bytes to w, consulting
// pr for the probability of each bit and training it as bits are coded.
func NewEncoder(w io.ByteWriter, pr *predict.Predictor) *Encoder {
	return &Encoder{w: w, pr: pr, low: 1, high: 0xFFFFFFFF}
}

func mid(low, high uint32, p int32) uint32 {
	return low + ((high-low)>>16)*uint32(p) + (((high-low)&0xffff)*uint32(p))>>16
}

func (e *Encoder) encodeBit(y int32, p int32) error {
	m := mid(e.low, e.high, p)
	if y != 0 {
		e.high = m
	} else {
		e.low = m + 1
	}
	for (e.high^e.low)&0xff000000 == 0 {
		if err := e.w.WriteByte(byte(e.high >> 24)); err != nil {
			return err
		}
		e.high = e.high<<8 | 255
		e.low = e.low << 8
		if e.low == 0 {
			e.low++
		}
	}
	return nil
}

// EncodeByte arithmetic-codes one literal byte (a 0 flag bit followed by
// its 8 data bits, most significant first), training pr after each bit.
func (e *Encoder) EncodeByte(c byte) error {
	if err := e.encodeBit(0, 0); err != nil {
		return err
	}
	for i := 7; i >= 0; i-- {
		p := e.pr.Predict()*2 + 1
		y := int32(c>>uint(i)) & 1
		if err := e.encodeBit(y, p); err != nil {
			return err
		}
		if err := e.pr.Update(y); err != nil {
			return err
		}
	}
	return nil
}

// EncodeEOF writes the end-of-segment marker: a flag bit of 1 coded at
// p=0, which only the decoder's matching EOF check can consume cleanly.
func (e *Encoder) EncodeEOF() error {
	return e.encodeBit(1, 0)
}

// Decoder is the inverse of Encoder: it reads coded bytes from r and
// narrows the same [low,high] window, tracking the last four coded
// bytes in curr to know which half the encoder picked. One Decoder
// serves an entire block, not just one segment: low, high, and curr are
// never reset between segments. curr happens to read back as exactly
// zero right after a properly terminated segment's EOF bit, which is
// what DecodeByte uses to notice it must refill curr with a fresh
// segment's first four bytes; there is no separate "new segment"
// signal.
type Decoder struct {
	r               io.ByteReader
	pr              *predict.Predictor
	low, high, curr uint32
}

// NewDecoder returns a decoder reading from r, predicting with pr.
func NewDecoder(r io.ByteReader, pr *predict.Predictor) *Decoder {
	return &Decoder{r: r, pr: pr, low: 1, high: 0xFFFFFFFF}
}

func (d *Decoder) fill() error {
	for (d.high^d.low)&0xff000000 == 0 {
		d.high = d.high<<8 | 255
		d.low = d.low << 8
		if d.low == 0 {
			d.low++
		}
		c, err := d.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("arith: unexpected end of stream: %w", err)
		}
		d.curr = d.curr<<8 | uint32(c)
	}
	return nil
}

func (d *Decoder) decodeBit(p int32) (int32, error) {
	if d.curr < d.low || d.curr > d.high {
		return 0, ErrCorrupt
	}
	m := mid(d.low, d.high, p)
	var y int32
	if d.curr <= m {
		y = 1
		d.high = m
	} else {
		d.low = m + 1
	}
	if err := d.fill(); err != nil {
		return 0, err
	}
	return y, nil
}

// DecodeByte returns the next decoded byte, or io.EOF when the segment's
// end-of-data marker is reached.
func (d *Decoder) DecodeByte() (byte, error) {
	if d.curr == 0 {
		for i := 0; i < 4; i++ {
			c, err := d.r.ReadByte()
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return 0, fmt.Errorf("arith: reading initial window: %w", err)
			}
			d.curr = d.curr<<8 | uint32(c)
		}
	}
	y, err := d.decodeBit(0)
	if err != nil {
		return 0, err
	}
	if y != 0 {
		if d.curr != 0 {
			return 0, errors.New("arith: decoding end of stream")
		}
		return 0, io.EOF
	}
	c := int32(1)
	for c < 256 {
		p := d.pr.Predict()*2 + 1
		bit, err := d.decodeBit(p)
		if err != nil {
			return 0, err
		}
		c = c*2 + bit
		if err := d.pr.Update(c & 1); err != nil {
			return 0, err
		}
	}
	return byte(c - 256), nil
}
