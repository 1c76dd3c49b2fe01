package cfgcompile

import "fmt"

// builtinConfigs holds the canned textual configurations selectable by
// a level number instead of a .cfg file path: 1 is a single order-0
// context model, 2 adds an indirect chain and a match model, 3 a
// deeper ICM/ISSE chain mixed and SSE-refined.
var builtinConfigs = map[int]string{
	1: `comp 0 0 0 0 1
  0 cm 19 20
hcomp
  halt
post 0 end
`,
	2: `comp 3 3 0 0 3
  0 icm 18
  1 isse 19 0
  2 match 20 24
hcomp
  c++ *c=a b=c a=0 (save byte in rotating buffer)
  d= 0 hash *d=a (order 1 for icm)
  b-- d++ hash *d=a (order 2 for isse)
  b-- d++ hash b-- hash *d=a (order 4 for match)
  halt
post 0 end
`,
	3: `comp 3 3 0 0 7
  0 icm 18
  1 isse 19 0
  2 icm 20
  3 isse 19 2
  4 match 22 26
  5 mix2 16 3 4 24 255
  6 sse 16 5 32 255
hcomp
  c++ *c=a b=c a=0 (save byte in rotating buffer)
  d= 0 hash *d=a (order 1 for icm)
  b-- d++ hash *d=a (order 2 for isse)
  b-- d++ hash *d=a (order 3 for icm)
  b-- d++ hash *d=a (order 4 for isse)
  b-- d++ hash b-- hash *d=a (order 6 for match)
  d++ a=0 *d=a (mix2 keys on the partial byte alone)
  d++ a=*c *d=a (order 1 for sse)
  halt
post 0 end
`,
}

// BuiltinConfig returns the textual configuration for level (1..3), the
// lowest-numbered being the fastest/weakest and the highest the
// slowest/strongest.
func BuiltinConfig(level int) (string, error) {
	cfg, ok := builtinConfigs[level]
	if !ok {
		return "", fmt.Errorf("cfgcompile: no builtin configuration for level %d (want 1..3)", level)
	}
	return cfg, nil
}
