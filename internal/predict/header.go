package predict

import (
	"fmt"
	"math"
)

// CompType is one of the ten component kinds a COMP list entry can
// declare.
type CompType byte

const (
	None  CompType = 0
	Const CompType = 1
	CM    CompType = 2
	ICM   CompType = 3
	Match CompType = 4
	Avg   CompType = 5
	Mix2  CompType = 6
	Mix   CompType = 7
	ISSE  CompType = 8
	SSE   CompType = 9
)

func (t CompType) String() string {
	switch t {
	case Const:
		return "const"
	case CM:
		return "cm"
	case ICM:
		return "icm"
	case Match:
		return "match"
	case Avg:
		return "avg"
	case Mix2:
		return "mix2"
	case Mix:
		return "mix"
	case ISSE:
		return "isse"
	case SSE:
		return "sse"
	default:
		return "none"
	}
}

// CompSize gives the total descriptor size in bytes (the type byte plus
// its parameters) for each of the ten component kinds, indexed by
// CompType. Index 0 (None) is a sentinel and never appears in a header.
var CompSize = [10]int{0, 2, 3, 2, 3, 4, 6, 6, 3, 5}

// Comp is one parsed COMP list entry. Params holds the type-dependent
// parameter tail, always CompSize[Type]-1 bytes long, in declaration
// order (e.g. for CM: [s, limit]).
type Comp struct {
	Type   CompType
	Params []byte
}

func (c Comp) p(i int) int {
	if i >= len(c.Params) {
		return 0
	}
	return int(c.Params[i])
}

// Header is a fully parsed block header: the hh/hm/ph/pm sizing
// parameters, the component list, and the raw
// HCOMP/PCOMP byte-code. PCOMP is nil when the block uses POST 0 (pass
// through, no post-processing transform).
type Header struct {
	HH, HM, PH, PM byte
	Comps          []Comp
	HCOMP          []byte
	PCOMP          []byte // nil if the block declares POST 0
}

// Validate checks the structural invariants the predictor and compiler
// both rely on: component count bounds and the rule that a component's
// inputs must reference a strictly lower index.
func (h *Header) Validate() error {
	if len(h.Comps) < 1 || len(h.Comps) > 255 {
		return fmt.Errorf("predict: component count %d out of range 1..255", len(h.Comps))
	}
	for i, c := range h.Comps {
		if int(c.Type) >= len(CompSize) || CompSize[c.Type] == 0 {
			return fmt.Errorf("predict: component %d has unknown type %d", i, c.Type)
		}
		if len(c.Params) != CompSize[c.Type]-1 {
			return fmt.Errorf("predict: component %d (%s) has %d params, want %d", i, c.Type, len(c.Params), CompSize[c.Type]-1)
		}
		var refs []int
		switch c.Type {
		case Avg:
			refs = []int{c.p(0), c.p(1)}
		case Mix2:
			refs = []int{c.p(1), c.p(2)}
		case Mix:
			j, m := c.p(1), c.p(2)
			for k := 0; k < m; k++ {
				refs = append(refs, j+k)
			}
		case ISSE:
			refs = []int{c.p(1)}
		case SSE:
			refs = []int{c.p(1)}
		}
		for _, r := range refs {
			if r >= i {
				return fmt.Errorf("predict: component %d (%s) references component %d, which is not strictly lower", i, c.Type, r)
			}
		}
	}
	return nil
}

// Memory estimates the bytes of table space a predictor and its HCOMP/
// PCOMP machines allocate for this header. The sizing parameters are
// exponents, so the estimate is a float64: a pathological header can
// declare far more than a uint64 can count, and callers comparing
// against an allocation ceiling still get a usable answer.
func (h *Header) Memory() float64 {
	mem := math.Pow(2, float64(h.HH)+2) + math.Pow(2, float64(h.HM)) +
		math.Pow(2, float64(h.PH)+2) + math.Pow(2, float64(h.PM))
	for _, c := range h.Comps {
		s := float64(c.p(0))
		switch c.Type {
		case CM:
			mem += 4 * math.Pow(2, s)
		case ICM:
			mem += 64*math.Pow(2, s) + 1024
		case Match:
			mem += 4*math.Pow(2, s) + math.Pow(2, float64(c.p(1)))
		case Mix2:
			mem += 2 * math.Pow(2, s)
		case Mix:
			mem += 4 * math.Pow(2, s) * float64(c.p(2))
		case ISSE:
			mem += 64*math.Pow(2, s) + 2048
		case SSE:
			mem += 128 * math.Pow(2, s)
		}
	}
	return mem
}
