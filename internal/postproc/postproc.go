// Package postproc implements the post-processing state machine that
// consumes the decoded byte stream: the first decoded byte of a block
// selects PASS (0, copy decoded bytes straight through) or PROG (1, run
// an embedded PCOMP program over every decoded byte).
package postproc

import (
	"errors"
	"fmt"

	"github.com/lookbusy1344/zpaqgo/internal/digest"
	"github.com/lookbusy1344/zpaqgo/internal/zpaql"
)

type state int

const (
	stateInit state = iota
	statePass
	statePROGLenLo
	statePROGLenHi
	statePROGBody
	statePROGRun
)

// Sink receives the fully post-processed output stream.
type Sink interface {
	WriteByte(byte) error
}

// Processor drives the PASS/PROG state machine for one block. ph/pm are
// the PCOMP memory sizing exponents carried in the block header; they only
// take effect once a PROG byte stream supplies the program body.
type Processor struct {
	st      state
	ph, pm  byte
	out     Sink
	hash    *digest.Hash
	progLen int
	prog    []byte
	vm      *zpaql.Machine
}

// New returns a processor for a block whose header declared the given
// ph/pm sizing parameters. One Processor is created per block and
// reused for every one of its segments via SetSink. Only the first
// segment's payload carries a PASS/PROG selector byte and, for PROG,
// the program body; later segments resume directly in whichever mode
// the first segment selected.
func New(ph, pm byte, out Sink, hash *digest.Hash) *Processor {
	return &Processor{st: stateInit, ph: ph, pm: pm, out: out, hash: hash}
}

// SetSink redirects output and digest accumulation to a new segment
// without disturbing PASS/PROG mode or any loaded PCOMP program state.
// Call it before decoding each segment after the first.
func (p *Processor) SetSink(out Sink, hash *digest.Hash) {
	p.out = out
	p.hash = hash
}

// Write feeds one decoded byte (or -1 for end of segment) into the
// state machine.
func (p *Processor) Write(c int) error {
	if c < -1 || c > 255 {
		return fmt.Errorf("postproc: byte %d out of range", c)
	}
	switch p.st {
	case stateInit:
		if c < 0 {
			return errors.New("postproc: unexpected end of stream before PASS/PROG byte")
		}
		switch c {
		case 0:
			p.st = statePass
		case 1:
			p.st = statePROGLenLo
		default:
			return fmt.Errorf("postproc: unknown post-processing type %d", c)
		}
		return nil

	case statePass:
		return p.emit(c)

	case statePROGLenLo:
		if c < 0 {
			return errors.New("postproc: unexpected end of stream reading program length")
		}
		p.progLen = c
		p.st = statePROGLenHi
		return nil

	case statePROGLenHi:
		if c < 0 {
			return errors.New("postproc: unexpected end of stream reading program length")
		}
		p.progLen += c*256 + 1
		p.prog = make([]byte, 0, p.progLen)
		p.st = statePROGBody
		return nil

	case statePROGBody:
		if c < 0 {
			return errors.New("postproc: unexpected end of stream reading program body")
		}
		p.prog = append(p.prog, byte(c))
		if len(p.prog) == p.progLen-1 {
			p.prog = append(p.prog, 0) // 0 terminator, matches compiled PCOMP layout
			p.vm = zpaql.New(p.prog, int(p.ph), int(p.pm))
			p.vm.Out = &vmSink{p: p}
			p.st = statePROGRun
		}
		return nil

	case statePROGRun:
		return p.vm.Run(uint32(int32(c)))

	default:
		return fmt.Errorf("postproc: invalid state %d", p.st)
	}
}

func (p *Processor) emit(c int) error {
	if c < 0 {
		return nil
	}
	b := byte(c)
	if p.out != nil {
		if err := p.out.WriteByte(b); err != nil {
			return err
		}
	}
	if p.hash != nil {
		return p.hash.WriteByte(b)
	}
	return nil
}

// vmSink adapts PCOMP's OUT instruction to the processor's output sink
// and running digest, so postprocessed bytes are counted the same way
// PASS-mode bytes are.
type vmSink struct{ p *Processor }

func (s *vmSink) WriteByte(b byte) error {
	return s.p.emit(int(b))
}
