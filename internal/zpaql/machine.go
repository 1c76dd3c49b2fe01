package zpaql

import "fmt"

// Sink receives bytes emitted by the OUT instruction during PCOMP
// execution. HCOMP programs never execute OUT in practice, but nothing
// stops them from doing so, so the machine always honors it when a sink
// is attached.
type Sink interface {
	WriteByte(byte) error
}

// Error reports a VM fault: an out-of-range program counter, the ERROR
// opcode, or an otherwise malformed program. All are fatal to the
// current block.
type Error struct {
	PC  int
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("zpaql: %s (pc=%d)", e.Msg, e.PC)
}

// Machine is one ZPAQL virtual machine instance: a program plus the
// register file, flag, and the M/H arrays it operates on. State persists
// across Run calls; only A and PC are reset at the start of each Run.
type Machine struct {
	Code []byte // HCOMP or PCOMP byte-code, terminated by a 0 byte (opcode 0 is ERROR, not HALT)

	A, B, C, D uint32
	F          bool
	R          [256]uint32
	M          []byte
	H          []uint32
	PC         int

	Out Sink
}

// New builds a machine for the given program with memory array M sized
// 2^mbits bytes and hash array H sized 2^hbits words. mbits/hbits of 0
// still allocate one element, so a block header may legally declare any
// of hh/hm/ph/pm as zero.
func New(code []byte, hbits, mbits int) *Machine {
	return &Machine{
		Code: code,
		M:    make([]byte, 1<<uint(mbits)),
		H:    make([]uint32, 1<<uint(hbits)),
	}
}

// Run executes Code to completion (HALT) with A initialized to input.
// State in M, H, R, B, C, D, F persists from the previous Run.
func (m *Machine) Run(input uint32) error {
	if len(m.Code) == 0 {
		return nil
	}
	m.A = input
	m.PC = 0
	for {
		halted, err := m.step()
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
}

func (m *Machine) fault(msg string) error {
	return &Error{PC: m.PC, Msg: msg}
}

// Indices into M and H are taken modulo the array size. Both arrays are
// always a power of two in length (2^mbits, 2^hbits).
func (m *Machine) mAt(i uint32) *byte {
	return &m.M[int(i)&(len(m.M)-1)]
}

func (m *Machine) hAt(i uint32) *uint32 {
	return &m.H[int(i)&(len(m.H)-1)]
}

// H32 reads H[i mod len(H)]. Exported for the predictor, which reads the
// context hashes an HCOMP program leaves behind in H after each Run.
func (m *Machine) H32(i uint32) uint32 {
	return *m.hAt(i)
}

func (m *Machine) fetch() (byte, error) {
	if m.PC < 0 || m.PC >= len(m.Code) {
		return 0, m.fault("pc out of range")
	}
	b := m.Code[m.PC]
	m.PC++
	return b, nil
}

func swap32(a, x *uint32) {
	*a ^= *x
	*x ^= *a
	*a ^= *x
}

// swapByte swaps A with an 8-bit operand: the high 24 bits of A are
// preserved, the low 8 bits trade places with *x.
func swapByte(a *uint32, x *byte) {
	lowA := byte(*a)
	*x, *a = lowA, (*a&^0xFF)|uint32(*x)
}

func (m *Machine) div(x uint32) {
	if x == 0 {
		m.A = 0
	} else {
		m.A /= x
	}
}

func (m *Machine) mod(x uint32) {
	if x == 0 {
		m.A = 0
	} else {
		m.A %= x
	}
}

func (m *Machine) emit(b byte) error {
	if m.Out != nil {
		if err := m.Out.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// step executes one instruction. It returns halted=true after HALT.
func (m *Machine) step() (halted bool, err error) {
	opByte, err := m.fetch()
	if err != nil {
		return false, err
	}
	op := Opcode(opByte)

	readOperand := func() (byte, error) { return m.fetch() }

	switch op {
	case OpError:
		return false, m.fault("ERROR instruction")
	case OpAInc:
		m.A++
	case OpADec:
		m.A--
	case OpANot:
		m.A = ^m.A
	case OpAZero:
		m.A = 0
	case OpAEqR:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A = m.R[n]

	case OpBSwap:
		swap32(&m.A, &m.B)
	case OpBInc:
		m.B++
	case OpBDec:
		m.B--
	case OpBNot:
		m.B = ^m.B
	case OpBZero:
		m.B = 0
	case OpBEqR:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.B = m.R[n]

	case OpCSwap:
		swap32(&m.A, &m.C)
	case OpCInc:
		m.C++
	case OpCDec:
		m.C--
	case OpCNot:
		m.C = ^m.C
	case OpCZero:
		m.C = 0
	case OpCEqR:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.C = m.R[n]

	case OpDSwap:
		swap32(&m.A, &m.D)
	case OpDInc:
		m.D++
	case OpDDec:
		m.D--
	case OpDNot:
		m.D = ^m.D
	case OpDZero:
		m.D = 0
	case OpDEqR:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.D = m.R[n]

	case OpMBSwap:
		swapByte(&m.A, m.mAt(m.B))
	case OpMBInc:
		*m.mAt(m.B)++
	case OpMBDec:
		*m.mAt(m.B)--
	case OpMBNot:
		p := m.mAt(m.B)
		*p = ^*p
	case OpMBZero:
		*m.mAt(m.B) = 0
	case OpJT:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		if m.F {
			m.PC += int(int8(n))
		}

	case OpMCSwap:
		swapByte(&m.A, m.mAt(m.C))
	case OpMCInc:
		*m.mAt(m.C)++
	case OpMCDec:
		*m.mAt(m.C)--
	case OpMCNot:
		p := m.mAt(m.C)
		*p = ^*p
	case OpMCZero:
		*m.mAt(m.C) = 0
	case OpJF:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		if !m.F {
			m.PC += int(int8(n))
		}

	case OpHDSwap:
		swap32(&m.A, m.hAt(m.D))
	case OpHDInc:
		*m.hAt(m.D)++
	case OpHDDec:
		*m.hAt(m.D)--
	case OpHDNot:
		p := m.hAt(m.D)
		*p = ^*p
	case OpHDZero:
		*m.hAt(m.D) = 0
	case OpREqA:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.R[n] = m.A

	case OpHalt:
		return true, nil
	case OpOut:
		if e := m.emit(byte(m.A)); e != nil {
			return false, e
		}
	case OpHash:
		m.A = (m.A + uint32(*m.mAt(m.B)) + 512) * 773
	case OpHashD:
		p := m.hAt(m.D)
		*p = (*p + m.A + 512) * 773
	case OpJmp:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.PC += int(int8(n))

	case OpAEqA:
		m.A = m.A
	case OpAEqB:
		m.A = m.B
	case OpAEqC:
		m.A = m.C
	case OpAEqD:
		m.A = m.D
	case OpAEqMB:
		m.A = uint32(*m.mAt(m.B))
	case OpAEqMC:
		m.A = uint32(*m.mAt(m.C))
	case OpAEqHD:
		m.A = *m.hAt(m.D)
	case OpAEqN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A = uint32(n)

	case OpBEqA:
		m.B = m.A
	case OpBEqB:
		m.B = m.B
	case OpBEqC:
		m.B = m.C
	case OpBEqD:
		m.B = m.D
	case OpBEqMB:
		m.B = uint32(*m.mAt(m.B))
	case OpBEqMC:
		m.B = uint32(*m.mAt(m.C))
	case OpBEqHD:
		m.B = *m.hAt(m.D)
	case OpBEqN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.B = uint32(n)

	case OpCEqA:
		m.C = m.A
	case OpCEqB:
		m.C = m.B
	case OpCEqC:
		m.C = m.C
	case OpCEqD:
		m.C = m.D
	case OpCEqMB:
		m.C = uint32(*m.mAt(m.B))
	case OpCEqMC:
		m.C = uint32(*m.mAt(m.C))
	case OpCEqHD:
		m.C = *m.hAt(m.D)
	case OpCEqN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.C = uint32(n)

	case OpDEqA:
		m.D = m.A
	case OpDEqB:
		m.D = m.B
	case OpDEqC:
		m.D = m.C
	case OpDEqD:
		m.D = m.D
	case OpDEqMB:
		m.D = uint32(*m.mAt(m.B))
	case OpDEqMC:
		m.D = uint32(*m.mAt(m.C))
	case OpDEqHD:
		m.D = *m.hAt(m.D)
	case OpDEqN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.D = uint32(n)

	case OpMBEqA:
		*m.mAt(m.B) = byte(m.A)
	case OpMBEqB:
		*m.mAt(m.B) = byte(m.B)
	case OpMBEqC:
		*m.mAt(m.B) = byte(m.C)
	case OpMBEqD:
		*m.mAt(m.B) = byte(m.D)
	case OpMBEqMB:
		*m.mAt(m.B) = *m.mAt(m.B)
	case OpMBEqMC:
		*m.mAt(m.B) = *m.mAt(m.C)
	case OpMBEqHD:
		*m.mAt(m.B) = byte(*m.hAt(m.D))
	case OpMBEqN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		*m.mAt(m.B) = n

	case OpMCEqA:
		*m.mAt(m.C) = byte(m.A)
	case OpMCEqB:
		*m.mAt(m.C) = byte(m.B)
	case OpMCEqC:
		*m.mAt(m.C) = byte(m.C)
	case OpMCEqD:
		*m.mAt(m.C) = byte(m.D)
	case OpMCEqMB:
		*m.mAt(m.C) = *m.mAt(m.B)
	case OpMCEqMC:
		*m.mAt(m.C) = *m.mAt(m.C)
	case OpMCEqHD:
		*m.mAt(m.C) = byte(*m.hAt(m.D))
	case OpMCEqN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		*m.mAt(m.C) = n

	case OpHDEqA:
		*m.hAt(m.D) = m.A
	case OpHDEqB:
		*m.hAt(m.D) = m.B
	case OpHDEqC:
		*m.hAt(m.D) = m.C
	case OpHDEqD:
		*m.hAt(m.D) = m.D
	case OpHDEqMB:
		*m.hAt(m.D) = uint32(*m.mAt(m.B))
	case OpHDEqMC:
		*m.hAt(m.D) = uint32(*m.mAt(m.C))
	case OpHDEqHD:
		*m.hAt(m.D) = *m.hAt(m.D)
	case OpHDEqN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		*m.hAt(m.D) = uint32(n)

	case OpAAddA:
		m.A += m.A
	case OpAAddB:
		m.A += m.B
	case OpAAddC:
		m.A += m.C
	case OpAAddD:
		m.A += m.D
	case OpAAddMB:
		m.A += uint32(*m.mAt(m.B))
	case OpAAddMC:
		m.A += uint32(*m.mAt(m.C))
	case OpAAddHD:
		m.A += *m.hAt(m.D)
	case OpAAddN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A += uint32(n)

	case OpASubA:
		m.A -= m.A
	case OpASubB:
		m.A -= m.B
	case OpASubC:
		m.A -= m.C
	case OpASubD:
		m.A -= m.D
	case OpASubMB:
		m.A -= uint32(*m.mAt(m.B))
	case OpASubMC:
		m.A -= uint32(*m.mAt(m.C))
	case OpASubHD:
		m.A -= *m.hAt(m.D)
	case OpASubN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A -= uint32(n)

	case OpAMulA:
		m.A *= m.A
	case OpAMulB:
		m.A *= m.B
	case OpAMulC:
		m.A *= m.C
	case OpAMulD:
		m.A *= m.D
	case OpAMulMB:
		m.A *= uint32(*m.mAt(m.B))
	case OpAMulMC:
		m.A *= uint32(*m.mAt(m.C))
	case OpAMulHD:
		m.A *= *m.hAt(m.D)
	case OpAMulN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A *= uint32(n)

	case OpADivA:
		m.div(m.A)
	case OpADivB:
		m.div(m.B)
	case OpADivC:
		m.div(m.C)
	case OpADivD:
		m.div(m.D)
	case OpADivMB:
		m.div(uint32(*m.mAt(m.B)))
	case OpADivMC:
		m.div(uint32(*m.mAt(m.C)))
	case OpADivHD:
		m.div(*m.hAt(m.D))
	case OpADivN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.div(uint32(n))

	case OpAModA:
		m.mod(m.A)
	case OpAModB:
		m.mod(m.B)
	case OpAModC:
		m.mod(m.C)
	case OpAModD:
		m.mod(m.D)
	case OpAModMB:
		m.mod(uint32(*m.mAt(m.B)))
	case OpAModMC:
		m.mod(uint32(*m.mAt(m.C)))
	case OpAModHD:
		m.mod(*m.hAt(m.D))
	case OpAModN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.mod(uint32(n))

	case OpAAndA:
		m.A &= m.A
	case OpAAndB:
		m.A &= m.B
	case OpAAndC:
		m.A &= m.C
	case OpAAndD:
		m.A &= m.D
	case OpAAndMB:
		m.A &= uint32(*m.mAt(m.B))
	case OpAAndMC:
		m.A &= uint32(*m.mAt(m.C))
	case OpAAndHD:
		m.A &= *m.hAt(m.D)
	case OpAAndN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A &= uint32(n)

	case OpAAndNotA:
		m.A &^= m.A
	case OpAAndNotB:
		m.A &^= m.B
	case OpAAndNotC:
		m.A &^= m.C
	case OpAAndNotD:
		m.A &^= m.D
	case OpAAndNotMB:
		m.A &^= uint32(*m.mAt(m.B))
	case OpAAndNotMC:
		m.A &^= uint32(*m.mAt(m.C))
	case OpAAndNotHD:
		m.A &^= *m.hAt(m.D)
	case OpAAndNotN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A &^= uint32(n)

	case OpAOrA:
		m.A |= m.A
	case OpAOrB:
		m.A |= m.B
	case OpAOrC:
		m.A |= m.C
	case OpAOrD:
		m.A |= m.D
	case OpAOrMB:
		m.A |= uint32(*m.mAt(m.B))
	case OpAOrMC:
		m.A |= uint32(*m.mAt(m.C))
	case OpAOrHD:
		m.A |= *m.hAt(m.D)
	case OpAOrN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A |= uint32(n)

	case OpAXorA:
		m.A ^= m.A
	case OpAXorB:
		m.A ^= m.B
	case OpAXorC:
		m.A ^= m.C
	case OpAXorD:
		m.A ^= m.D
	case OpAXorMB:
		m.A ^= uint32(*m.mAt(m.B))
	case OpAXorMC:
		m.A ^= uint32(*m.mAt(m.C))
	case OpAXorHD:
		m.A ^= *m.hAt(m.D)
	case OpAXorN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A ^= uint32(n)

	case OpAShlA:
		m.A <<= shiftAmount(m.A)
	case OpAShlB:
		m.A <<= shiftAmount(m.B)
	case OpAShlC:
		m.A <<= shiftAmount(m.C)
	case OpAShlD:
		m.A <<= shiftAmount(m.D)
	case OpAShlMB:
		m.A <<= shiftAmount(uint32(*m.mAt(m.B)))
	case OpAShlMC:
		m.A <<= shiftAmount(uint32(*m.mAt(m.C)))
	case OpAShlHD:
		m.A <<= shiftAmount(*m.hAt(m.D))
	case OpAShlN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A <<= shiftAmount(uint32(n))

	case OpAShrA:
		m.A >>= shiftAmount(m.A)
	case OpAShrB:
		m.A >>= shiftAmount(m.B)
	case OpAShrC:
		m.A >>= shiftAmount(m.C)
	case OpAShrD:
		m.A >>= shiftAmount(m.D)
	case OpAShrMB:
		m.A >>= shiftAmount(uint32(*m.mAt(m.B)))
	case OpAShrMC:
		m.A >>= shiftAmount(uint32(*m.mAt(m.C)))
	case OpAShrHD:
		m.A >>= shiftAmount(*m.hAt(m.D))
	case OpAShrN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.A >>= shiftAmount(uint32(n))

	case OpAEqEqA:
		m.F = m.A == m.A
	case OpAEqEqB:
		m.F = m.A == m.B
	case OpAEqEqC:
		m.F = m.A == m.C
	case OpAEqEqD:
		m.F = m.A == m.D
	case OpAEqEqMB:
		m.F = m.A == uint32(*m.mAt(m.B))
	case OpAEqEqMC:
		m.F = m.A == uint32(*m.mAt(m.C))
	case OpAEqEqHD:
		m.F = m.A == *m.hAt(m.D)
	case OpAEqEqN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.F = m.A == uint32(n)

	case OpALtA:
		m.F = m.A < m.A
	case OpALtB:
		m.F = m.A < m.B
	case OpALtC:
		m.F = m.A < m.C
	case OpALtD:
		m.F = m.A < m.D
	case OpALtMB:
		m.F = m.A < uint32(*m.mAt(m.B))
	case OpALtMC:
		m.F = m.A < uint32(*m.mAt(m.C))
	case OpALtHD:
		m.F = m.A < *m.hAt(m.D)
	case OpALtN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.F = m.A < uint32(n)

	case OpAGtA:
		m.F = m.A > m.A
	case OpAGtB:
		m.F = m.A > m.B
	case OpAGtC:
		m.F = m.A > m.C
	case OpAGtD:
		m.F = m.A > m.D
	case OpAGtMB:
		m.F = m.A > uint32(*m.mAt(m.B))
	case OpAGtMC:
		m.F = m.A > uint32(*m.mAt(m.C))
	case OpAGtHD:
		m.F = m.A > *m.hAt(m.D)
	case OpAGtN:
		n, e := readOperand()
		if e != nil {
			return false, e
		}
		m.F = m.A > uint32(n)

	case OpLJ:
		lo, e := readOperand()
		if e != nil {
			return false, e
		}
		hi, e := readOperand()
		if e != nil {
			return false, e
		}
		target := int(lo) + 256*int(hi)
		if target < 0 || target >= len(m.Code) {
			return false, m.fault("LJ target out of range")
		}
		m.PC = target

	default:
		return false, m.fault(fmt.Sprintf("unknown opcode %d", opByte))
	}
	return false, nil
}

// shiftAmount masks a shift count to the low 5 bits so that shifts by
// 32 or more are deterministic and never trap.
func shiftAmount(x uint32) uint32 {
	return x & 31
}
