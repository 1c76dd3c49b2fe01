// Package predict implements the context-mixing predictor: a chain of up
// to 255 components, each producing a stretched probability that is
// combined (by AVG/MIX2/MIX) or refined (by ISSE/SSE) into the final bit
// probability the arithmetic coder consumes.
package predict

import (
	"fmt"

	"github.com/lookbusy1344/zpaqgo/internal/bitstate"
	"github.com/lookbusy1344/zpaqgo/internal/trace"
	"github.com/lookbusy1344/zpaqgo/internal/zpaql"
)

// component is the mutable runtime state for one COMP list entry. Which
// fields are meaningful depends on Type; cm/ht/a16 are reused for
// different purposes across component kinds (a MATCH's ht is its rolling
// buffer, an ICM's ht is its bit-history rows).
type component struct {
	limit   int32
	cxt     uint32
	a, b, c int32
	cm      []uint32
	ht      []byte
	a16     []uint16
}

func (cr *component) cmAt(i uint32) uint32        { return cr.cm[i&uint32(len(cr.cm)-1)] }
func (cr *component) setCmAt(i uint32, v uint32)  { cr.cm[i&uint32(len(cr.cm)-1)] = v }
func (cr *component) htAt(i uint32) byte          { return cr.ht[i&uint32(len(cr.ht)-1)] }
func (cr *component) setHtAt(i uint32, v byte)    { cr.ht[i&uint32(len(cr.ht)-1)] = v }
func (cr *component) a16At(i uint32) uint16       { return cr.a16[i&uint32(len(cr.a16)-1)] }
func (cr *component) setA16At(i uint32, v uint16) { cr.a16[i&uint32(len(cr.a16)-1)] = v }

// Predictor holds the compiled component chain and drives prediction and
// training for one coding direction (compression or decompression). Two
// Predictors built from the same header and fed the same bit sequence
// stay bit-for-bit identical, which is what lets the decoder reproduce
// the encoder's probabilities without side information.
type Predictor struct {
	header *Header
	comps  []component
	p      []int32 // per-component stretched prediction, p[n-1] is final
	c8     uint32  // last 0..7 bits plus a leading 1, wraps every byte
	hmap4  uint32  // nibble-granularity context into ICM/ISSE bit-history rows
	st     *bitstate.Table
	tabs   *Tables
	z      *zpaql.Machine // HCOMP machine; components read contexts from z.H32
	dt     [1024]int32    // division table used by CM/SSE training

	// Trace, when non-nil, records the final combined prediction and the
	// observed bit. Per-component predictions are not traced individually
	// to keep the hot loop allocation-free when disabled.
	Trace *trace.Trace
}

// New builds a Predictor for header, driven by an HCOMP machine already
// sized and reset for that header's hh/hm. The caller owns z; Update
// runs it internally once every 8 bits with the completed byte as its
// input, leaving fresh context hashes in H for the next Predict.
func New(header *Header, z *zpaql.Machine) (*Predictor, error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}
	pr := &Predictor{
		header: header,
		comps:  make([]component, len(header.Comps)),
		p:      make([]int32, len(header.Comps)),
		c8:     1,
		hmap4:  1,
		st:     bitstate.Shared(),
		tabs:   SharedTables(),
		z:      z,
	}
	for i := 0; i < 1024; i++ {
		pr.dt[i] = int32((1 << 17) / (i*2 + 3) * 2)
	}
	for i, c := range header.Comps {
		cr := &pr.comps[i]
		switch c.Type {
		case Const:
			pr.p[i] = int32(c.p(0)-128) * 4
		case CM:
			cr.cm = make([]uint32, 1<<uint(c.p(0)))
			cr.limit = int32(c.p(1)) * 4
			for j := range cr.cm {
				cr.cm[j] = 0x80000000
			}
		case ICM:
			cr.limit = 1023
			cr.cm = make([]uint32, 256)
			cr.ht = make([]byte, 64<<uint(c.p(0)))
			for j := range cr.cm {
				cr.cm[j] = uint32(pr.st.CMInit[j])
			}
		case Match:
			cr.cm = make([]uint32, 1<<uint(c.p(0)))
			cr.ht = make([]byte, 1<<uint(c.p(1)))
			cr.ht[0] = 1
		case Avg:
			// no persistent state; p[i] is recomputed every Predict call
		case Mix2:
			if c.p(2) >= i {
				return nil, fmt.Errorf("predict: component %d MIX2 k >= i", i)
			}
			if c.p(1) >= i {
				return nil, fmt.Errorf("predict: component %d MIX2 j >= i", i)
			}
			cr.c = int32(1) << uint(c.p(0))
			cr.a16 = make([]uint16, 1<<uint(c.p(0)))
			for j := range cr.a16 {
				cr.a16[j] = 32768
			}
		case Mix:
			if c.p(1) >= i {
				return nil, fmt.Errorf("predict: component %d MIX j >= i", i)
			}
			m := c.p(2)
			if m < 1 || m > i-c.p(1) {
				return nil, fmt.Errorf("predict: component %d MIX m=%d not in 1..%d", i, m, i-c.p(1))
			}
			cr.c = int32(1) << uint(c.p(0))
			cr.cm = make([]uint32, m<<uint(c.p(0)))
			for j := range cr.cm {
				cr.cm[j] = uint32(65536 / m)
			}
		case ISSE:
			if c.p(1) >= i {
				return nil, fmt.Errorf("predict: component %d ISSE j >= i", i)
			}
			cr.ht = make([]byte, 64<<uint(c.p(0)))
			cr.cm = make([]uint32, 512)
			for j := 0; j < 256; j++ {
				cr.cm[j*2] = 1 << 15
				st := pr.tabs.Stretch0(pr.st.CMInit[j] >> 8)
				cr.cm[j*2+1] = uint32(Clamp512k(st << 10))
			}
		case SSE:
			if c.p(1) >= i {
				return nil, fmt.Errorf("predict: component %d SSE j >= i", i)
			}
			if c.p(2) > c.p(3)*4 {
				return nil, fmt.Errorf("predict: component %d SSE start > limit*4", i)
			}
			cr.cm = make([]uint32, 32<<uint(c.p(0)))
			cr.limit = int32(c.p(3)) * 4
			for j := range cr.cm {
				cr.cm[j] = uint32(pr.tabs.Squash0(int32((j&31)*64-992)))<<17 | uint32(c.p(2))
			}
		default:
			return nil, fmt.Errorf("predict: component %d has unknown type %d", i, c.Type)
		}
	}
	return pr, nil
}

// Predict returns the final 15-bit probability (0..32767) that the next
// bit is 1.
func (pr *Predictor) Predict() int32 {
	for i, c := range pr.header.Comps {
		cr := &pr.comps[i]
		switch c.Type {
		case Const:
			// p[i] fixed at construction

		case CM:
			cr.cxt = pr.z.H32(uint32(i)) ^ pr.hmap4
			pr.p[i] = pr.tabs.Stretch0(int32(cr.cmAt(cr.cxt) >> 17))

		case ICM:
			if pr.c8 == 1 || pr.c8&0xf0 == 16 {
				cr.c = int32(pr.find(cr.ht, c.p(0)+2, pr.z.H32(uint32(i))+16*pr.c8))
			}
			cr.cxt = uint32(cr.htAt(uint32(cr.c) + (pr.hmap4 & 15)))
			pr.p[i] = pr.tabs.Stretch0(int32(cr.cmAt(cr.cxt) >> 8))

		case Match:
			if cr.a == 0 {
				pr.p[i] = 0
			} else {
				idx := int32(cr.limit>>3) - cr.b
				bit := (cr.htAt(uint32(idx)) >> uint(7-(cr.limit&7))) & 1
				cr.c = int32(bit)
				sign := int32(1)
				if cr.c != 0 {
					sign = -1
				}
				raw := uint32(int32(cr.cxt) * sign)
				pr.p[i] = pr.tabs.Stretch0(int32(raw & 32767))
			}

		case Avg:
			wt := c.p(2)
			pr.p[i] = (pr.p[c.p(0)]*int32(wt) + pr.p[c.p(1)]*int32(256-wt)) >> 8

		case Mix2:
			cr.cxt = (pr.z.H32(uint32(i)) + (pr.c8 & uint32(c.p(4)))) & uint32(cr.c-1)
			w := int32(cr.a16At(cr.cxt))
			pr.p[i] = (w*pr.p[c.p(1)] + (65536-w)*pr.p[c.p(2)]) >> 16

		case Mix:
			m := c.p(2)
			cxt := pr.z.H32(uint32(i)) + (pr.c8 & uint32(c.p(4)))
			cxt = (cxt & uint32(cr.c-1)) * uint32(m)
			cr.cxt = cxt
			var sum int32
			for j := 0; j < m; j++ {
				wt := int32(cr.cm[int(cxt)+j])
				sum += (wt >> 8) * pr.p[c.p(1)+j]
			}
			pr.p[i] = Clamp2k(sum >> 8)

		case ISSE:
			if pr.c8 == 1 || pr.c8&0xf0 == 16 {
				cr.c = int32(pr.find(cr.ht, c.p(0)+2, pr.z.H32(uint32(i))+16*pr.c8))
			}
			cr.cxt = uint32(cr.htAt(uint32(cr.c) + (pr.hmap4 & 15)))
			w0 := int32(cr.cm[cr.cxt*2])
			w1 := int32(cr.cm[cr.cxt*2+1])
			pr.p[i] = Clamp2k((w0*pr.p[c.p(1)] + w1*64) >> 16)

		case SSE:
			cxt := (pr.z.H32(uint32(i)) + pr.c8) * 32
			pq := pr.p[c.p(1)] + 992
			if pq < 0 {
				pq = 0
			}
			if pq > 1983 {
				pq = 1983
			}
			wt := pq & 63
			pq >>= 6
			cxt += uint32(pq)
			cr.cxt = cxt
			lo := cr.cmAt(cxt) >> 10
			hi := cr.cmAt(cxt+1) >> 10
			pr.p[i] = pr.tabs.Stretch0(int32((lo*uint32(64-wt) + hi*uint32(wt)) >> 13))
			cr.cxt += uint32(wt) >> 5
		}
	}
	final := pr.tabs.Squash0(Clamp2k(pr.p[len(pr.p)-1]))
	if pr.Trace != nil {
		pr.Trace.RecordPrediction(-1, pr.p[len(pr.p)-1])
	}
	return final
}

// Update trains every component on the decoded/encoded bit y (0 or 1)
// and advances the rolling bit-history context (c8/hmap4), running the
// HCOMP machine once per completed byte with that byte as its input.
func (pr *Predictor) Update(y int32) error {
	if pr.Trace != nil {
		pr.Trace.RecordBit(y)
	}
	for i, c := range pr.header.Comps {
		cr := &pr.comps[i]
		switch c.Type {
		case Const:
		case CM:
			pr.train(cr, y)
		case ICM:
			idx := uint32(cr.c) + (pr.hmap4 & 15)
			cr.setHtAt(idx, pr.st.Next[cr.htAt(idx)][y])
			pn := cr.cmAt(cr.cxt)
			pn += uint32(int32(y*32767-int32(pn>>8)) >> 2)
			cr.setCmAt(cr.cxt, pn)
		case Match:
			if cr.c != y {
				cr.a = 0
			}
			bytePos := uint32(cr.limit >> 3)
			cr.setHtAt(bytePos, cr.htAt(bytePos)*2+byte(y))
			cr.limit++
			if cr.limit == int32(len(cr.ht))*8 {
				cr.limit = 0
			}
			if cr.limit&7 == 0 {
				pos := cr.limit >> 3
				if cr.a == 0 {
					cr.b = pos - int32(cr.cmAt(pr.z.H32(uint32(i))))
					if cr.b&int32(len(cr.ht)-1) != 0 {
						for cr.a < 255 && cr.htAt(uint32(pos-cr.a-1)) == cr.htAt(uint32(pos-cr.a-cr.b-1)) {
							cr.a++
						}
					}
				} else if cr.a < 255 {
					cr.a++
				}
				cr.setCmAt(pr.z.H32(uint32(i)), uint32(pos))
				if cr.a > 0 {
					cr.cxt = uint32(2048 / cr.a)
				}
			}
		case Avg:
		case Mix2:
			err := (y*32767 - pr.tabs.Squash0(pr.p[i])) * int32(c.p(3)) >> 5
			w := int32(cr.a16At(cr.cxt))
			w += (err*(pr.p[c.p(1)]-pr.p[c.p(2)]) + (1 << 12)) >> 13
			if w < 0 {
				w = 0
			}
			if w > 65535 {
				w = 65535
			}
			cr.setA16At(cr.cxt, uint16(w))
		case Mix:
			m := c.p(2)
			err := (y*32767 - pr.tabs.Squash0(pr.p[i])) * int32(c.p(3)) >> 4
			for j := 0; j < m; j++ {
				wt := int32(cr.cm[int(cr.cxt)+j])
				wt = Clamp512k(wt + ((err*pr.p[c.p(1)+j] + (1 << 12)) >> 13))
				cr.cm[int(cr.cxt)+j] = uint32(wt)
			}
		case ISSE:
			err := y*32767 - pr.tabs.Squash0(pr.p[i])
			w0 := Clamp512k(int32(cr.cm[cr.cxt*2]) + ((err*pr.p[c.p(1)] + (1 << 12)) >> 13))
			w1 := Clamp512k(int32(cr.cm[cr.cxt*2+1]) + ((err + 16) >> 5))
			cr.cm[cr.cxt*2] = uint32(w0)
			cr.cm[cr.cxt*2+1] = uint32(w1)
			idx := uint32(cr.c) + (pr.hmap4 & 15)
			cr.setHtAt(idx, pr.st.Next[cr.cxt][y])
		case SSE:
			pr.train(cr, y)
		}
	}

	pr.c8 = pr.c8*2 + uint32(y)
	if pr.c8 >= 256 {
		if err := pr.z.Run(pr.c8 - 256); err != nil {
			return err
		}
		pr.hmap4 = 1
		pr.c8 = 1
	} else if pr.c8 >= 16 && pr.c8 < 32 {
		pr.hmap4 = (pr.hmap4&0xf)<<5 | uint32(y)<<4 | 1
	} else {
		pr.hmap4 = (pr.hmap4 & 0x1f0) | (((pr.hmap4&0xf)*2 + uint32(y)) & 0xf)
	}
	return nil
}

// train adjusts a CM/SSE row's packed (prediction,count) word toward y,
// slowing down as the 10-bit count approaches cr.limit.
func (pr *Predictor) train(cr *component, y int32) {
	pn := cr.cmAt(cr.cxt)
	count := int32(pn & 0x3ff)
	errv := y*32767 - int32(pn>>17)
	pn += uint32(errv*pr.dt[count]) & 0xfffffc00
	if count < cr.limit {
		pn++
	}
	cr.setCmAt(cr.cxt, pn)
}

// find locates cxt's row in a bit-history hash table ht, probing the
// hashed slot and its ±16/±32 neighbors and replacing the
// least-recently-confirmed of the three candidates on a miss. Rows are
// 16 bytes; element 0 holds an 8-bit checksum and element 1 a priority
// used to pick an eviction victim.
func (pr *Predictor) find(ht []byte, sizebits int, cxt uint32) uint32 {
	chk := byte((cxt >> uint(sizebits)) & 255)
	mask := uint32(len(ht) - 1)
	h0 := (cxt * 16) & (mask &^ 15)
	if ht[h0] == chk {
		return h0
	}
	h1 := h0 ^ 16
	if ht[h1] == chk {
		return h1
	}
	h2 := h0 ^ 32
	if ht[h2] == chk {
		return h2
	}
	var victim uint32
	switch {
	case ht[h0+1] <= ht[h1+1] && ht[h0+1] <= ht[h2+1]:
		victim = h0
	case ht[h1+1] < ht[h2+1]:
		victim = h1
	default:
		victim = h2
	}
	for k := uint32(0); k < 16; k++ {
		ht[victim+k] = 0
	}
	ht[victim] = chk
	return victim
}
