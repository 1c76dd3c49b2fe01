package cfgcompile

import (
	"fmt"

	"github.com/lookbusy1344/zpaqgo/internal/predict"
	"github.com/lookbusy1344/zpaqgo/internal/zpaql"
)

// maxNesting bounds the IF/DO backpatch stacks.
const maxNesting = 1000

// maxProgramSize is the byte-code ceiling for a single HCOMP or PCOMP
// program.
const maxProgramSize = 65536

var compTypeNames = map[string]predict.CompType{
	"const": predict.Const,
	"cm":    predict.CM,
	"icm":   predict.ICM,
	"match": predict.Match,
	"avg":   predict.Avg,
	"mix2":  predict.Mix2,
	"mix":   predict.Mix,
	"isse":  predict.ISSE,
	"sse":   predict.SSE,
}

// Config is a fully compiled configuration: the predictor header plus,
// when the config declared PCOMP rather than POST 0, the preprocessor
// command line captured verbatim from the remainder of that line.
type Config struct {
	Header   *predict.Header
	PCOMPCmd string // empty unless the config used PCOMP
}

// Compile parses a textual configuration into a predictor header and,
// for PCOMP configs, the preprocessor command line. Errors name the
// offending token (unknown token, out-of-range immediate, jump distance
// overflow, unbalanced IF/DO, forward component reference).
func Compile(src string) (*Config, error) {
	lx := newLexer(src)

	if err := lx.expectWord("comp"); err != nil {
		return nil, err
	}
	hh, err := lx.expectInt(0, 255)
	if err != nil {
		return nil, err
	}
	hm, err := lx.expectInt(0, 255)
	if err != nil {
		return nil, err
	}
	ph, err := lx.expectInt(0, 255)
	if err != nil {
		return nil, err
	}
	pm, err := lx.expectInt(0, 255)
	if err != nil {
		return nil, err
	}
	n, err := lx.expectInt(0, 255)
	if err != nil {
		return nil, err
	}

	comps := make([]predict.Comp, n)
	for i := 0; i < n; i++ {
		if _, err := lx.expectInt(i, i); err != nil {
			return nil, fmt.Errorf("cfgcompile: component %d: expected its own index: %w", i, err)
		}
		nameTok, ok := lx.next()
		if !ok {
			return nil, fmt.Errorf("cfgcompile: component %d: unexpected end of input", i)
		}
		ct, ok := compTypeNames[nameTok.text]
		if !ok {
			return nil, fmt.Errorf("cfgcompile: component %d: unknown component type %q", i, nameTok.text)
		}
		params := make([]byte, predict.CompSize[ct]-1)
		for j := range params {
			v, err := lx.expectInt(0, 255)
			if err != nil {
				return nil, fmt.Errorf("cfgcompile: component %d (%s) parameter %d: %w", i, ct, j, err)
			}
			params[j] = byte(v)
		}
		comps[i] = predict.Comp{Type: ct, Params: params}
	}

	if err := lx.expectWord("hcomp"); err != nil {
		return nil, err
	}
	hcomp, term, err := compileBlock(lx)
	if err != nil {
		return nil, fmt.Errorf("cfgcompile: hcomp: %w", err)
	}

	header := &predict.Header{
		HH: byte(hh), HM: byte(hm), PH: byte(ph), PM: byte(pm),
		Comps: comps,
		HCOMP: hcomp,
	}

	cfg := &Config{Header: header}

	switch term {
	case "post":
		if _, err := lx.expectInt(0, 0); err != nil {
			return nil, fmt.Errorf("cfgcompile: post: only \"post 0\" is supported: %w", err)
		}
		if err := lx.expectWord("end"); err != nil {
			return nil, err
		}
	case "pcomp":
		cfg.PCOMPCmd = lx.restOfLine(src)
		pcomp, pterm, err := compileBlock(lx)
		if err != nil {
			return nil, fmt.Errorf("cfgcompile: pcomp: %w", err)
		}
		if pterm != "end" {
			return nil, fmt.Errorf("cfgcompile: pcomp: expected end, found %q", pterm)
		}
		header.PCOMP = pcomp
	default:
		return nil, fmt.Errorf("cfgcompile: expected post or pcomp, found %q", term)
	}

	if err := header.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// compileBlock compiles one HCOMP or PCOMP body: a sequence of
// primitive opcodes and IF/IFNOT/ELSE/ENDIF/DO/WHILE/UNTIL/FOREVER
// (plus IFL/IFNOTL/ELSEL long-branch variants), until it hits "post",
// "pcomp", or "end". It returns the compiled byte-code (terminated with
// a trailing 0, the archive's end-of-HCOMP/end-of-PCOMP marker) and the
// terminating keyword. Branch offsets are backpatched through ifStack,
// which records the operand byte of each open forward jump, and
// doStack, which records the start of each open loop.
func compileBlock(lx *lexer) (code []byte, term string, err error) {
	var ifStack, doStack []int

	pushIf := func(pos int) error {
		if len(ifStack) >= maxNesting {
			return fmt.Errorf("IF/DO nesting exceeds %d", maxNesting)
		}
		ifStack = append(ifStack, pos)
		return nil
	}
	popIf := func() (int, error) {
		if len(ifStack) == 0 {
			return 0, fmt.Errorf("ELSE/ENDIF without matching IF")
		}
		v := ifStack[len(ifStack)-1]
		ifStack = ifStack[:len(ifStack)-1]
		return v, nil
	}
	pushDo := func(pos int) error {
		if len(doStack) >= maxNesting {
			return fmt.Errorf("IF/DO nesting exceeds %d", maxNesting)
		}
		doStack = append(doStack, pos)
		return nil
	}
	popDo := func() (int, error) {
		if len(doStack) == 0 {
			return 0, fmt.Errorf("WHILE/UNTIL/FOREVER without matching DO")
		}
		v := doStack[len(doStack)-1]
		doStack = doStack[:len(doStack)-1]
		return v, nil
	}

	for {
		if len(code) > maxProgramSize {
			return nil, "", fmt.Errorf("program too big")
		}
		tok, ok := lx.next()
		if !ok {
			return nil, "", fmt.Errorf("unexpected end of input")
		}
		name := tok.text

		switch name {
		case "post", "pcomp", "end":
			if len(ifStack) != 0 || len(doStack) != 0 {
				return nil, "", fmt.Errorf("unbalanced IF/DO at %q", name)
			}
			code = append(code, 0)
			return code, name, nil

		case "if", "ifnot":
			if err := pushIf(len(code) + 1); err != nil {
				return nil, "", err
			}
			op := zpaql.OpJF
			if name == "ifnot" {
				op = zpaql.OpJT
			}
			code = append(code, byte(op), 0)

		case "ifl", "ifnotl":
			if err := pushIf(len(code) + 3); err != nil {
				return nil, "", err
			}
			if name == "ifl" {
				code = append(code, byte(zpaql.OpJT), 3)
			} else {
				code = append(code, byte(zpaql.OpJF), 3)
			}
			code = append(code, byte(zpaql.OpLJ), 0, 0)

		case "else", "elsel":
			a, err := popIf()
			if err != nil {
				return nil, "", err
			}
			long := a > 0 && code[a-1] == byte(zpaql.OpLJ)
			if name == "else" {
				if !long {
					j := len(code) - a + 1
					if j > 127 {
						return nil, "", fmt.Errorf("IF too big, try IFL, IFNOTL")
					}
					code[a] = byte(j)
				} else {
					j := len(code) + 2
					code[a] = byte(j & 255)
					code[a+1] = byte((j >> 8) & 255)
				}
				if err := pushIf(len(code) + 1); err != nil {
					return nil, "", err
				}
				code = append(code, byte(zpaql.OpJmp), 0)
			} else { // elsel
				if !long {
					j := len(code) - a + 1 + 1
					if j > 127 {
						return nil, "", fmt.Errorf("IF too big, try IFL, IFNOTL, ELSEL")
					}
					code[a] = byte(j)
				} else {
					j := len(code) + 2 + 1
					code[a] = byte(j & 255)
					code[a+1] = byte((j >> 8) & 255)
				}
				if err := pushIf(len(code) + 1); err != nil {
					return nil, "", err
				}
				code = append(code, byte(zpaql.OpLJ), 0, 0)
			}

		case "endif":
			a, err := popIf()
			if err != nil {
				return nil, "", err
			}
			long := a > 0 && code[a-1] == byte(zpaql.OpLJ)
			if !long {
				j := len(code) - a - 1
				if j > 127 {
					return nil, "", fmt.Errorf("IF too big, try IFL, IFNOTL, ELSEL")
				}
				code[a] = byte(j)
			} else {
				j := len(code)
				code[a] = byte(j & 255)
				code[a+1] = byte((j >> 8) & 255)
			}

		case "do":
			if err := pushDo(len(code)); err != nil {
				return nil, "", err
			}

		case "while", "until", "forever":
			a, err := popDo()
			if err != nil {
				return nil, "", err
			}
			j := a - len(code) - 2
			if j >= -127 {
				var op zpaql.Opcode
				switch name {
				case "while":
					op = zpaql.OpJT
				case "until":
					op = zpaql.OpJF
				default:
					op = zpaql.OpJmp
				}
				code = append(code, byte(op), byte(uint8(int8(j))))
			} else {
				switch name {
				case "while":
					code = append(code, byte(zpaql.OpJF), 3)
				case "until":
					code = append(code, byte(zpaql.OpJT), 3)
				}
				j = a
				code = append(code, byte(zpaql.OpLJ), byte(j&255), byte((j>>8)&255))
			}

		default:
			op, ok := primitiveOpcodes[name]
			if !ok {
				return nil, "", fmt.Errorf("unknown token %q", tok.text)
			}
			switch {
			case op == zpaql.OpLJ:
				n, err := lx.expectInt(0, 65535)
				if err != nil {
					return nil, "", fmt.Errorf("lj: %w", err)
				}
				code = append(code, byte(op), byte(n&255), byte((n>>8)&255))
			case op == zpaql.OpJT || op == zpaql.OpJF || op == zpaql.OpJmp:
				n, err := lx.expectInt(-128, 127)
				if err != nil {
					return nil, "", fmt.Errorf("%s: %w", name, err)
				}
				code = append(code, byte(op), byte(uint8(int8(n))))
			case zpaql.HasByteOperand(op):
				n, err := lx.expectInt(0, 255)
				if err != nil {
					return nil, "", fmt.Errorf("%s: %w", name, err)
				}
				code = append(code, byte(op), byte(n))
			default:
				code = append(code, byte(op))
			}
		}
	}
}
