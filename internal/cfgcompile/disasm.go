package cfgcompile

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/zpaqgo/internal/zpaql"
)

// Print renders a compiled Config back into the textual configuration
// language. The emitted HCOMP/PCOMP bodies use only primitive opcodes
// (JT/JF/JMP/LJ with numeric offsets) rather than reconstructing any
// IF/DO structure the source may have used; re-parsing this text
// yields byte-identical header bytes.
func Print(cfg *Config) string {
	var b strings.Builder
	h := cfg.Header
	fmt.Fprintf(&b, "comp %d %d %d %d %d\n", h.HH, h.HM, h.PH, h.PM, len(h.Comps))
	for i, c := range h.Comps {
		fmt.Fprintf(&b, "  %d %s", i, c.Type)
		for _, p := range c.Params {
			fmt.Fprintf(&b, " %d", p)
		}
		b.WriteByte('\n')
	}
	b.WriteString("hcomp\n")
	printBlock(&b, h.HCOMP)
	if h.PCOMP == nil {
		b.WriteString("post 0 end\n")
	} else {
		fmt.Fprintf(&b, "pcomp %s\n", cfg.PCOMPCmd)
		printBlock(&b, h.PCOMP)
		b.WriteString("end\n")
	}
	return b.String()
}

// printBlock disassembles one HCOMP/PCOMP byte-code body (without its
// trailing 0 terminator, which Print's own "end"/"post" text supplies
// structurally instead).
func printBlock(b *strings.Builder, code []byte) {
	i := 0
	for i < len(code)-1 { // stop before the trailing 0 terminator
		op := zpaql.Opcode(code[i])
		name, ok := mnemonicOf[op]
		if !ok {
			fmt.Fprintf(b, "  (unknown opcode %d)\n", op)
			i++
			continue
		}
		i++
		switch {
		case op == zpaql.OpLJ:
			n := int(code[i]) + 256*int(code[i+1])
			fmt.Fprintf(b, "  lj %d\n", n)
			i += 2
		case op == zpaql.OpJT || op == zpaql.OpJF || op == zpaql.OpJmp:
			off := int(int8(code[i]))
			fmt.Fprintf(b, "  %s %d\n", name, off)
			i++
		case zpaql.HasByteOperand(op):
			fmt.Fprintf(b, "  %s %d\n", name, code[i])
			i++
		default:
			fmt.Fprintf(b, "  %s\n", name)
		}
	}
}
