package cfgcompile

import "github.com/lookbusy1344/zpaqgo/internal/zpaql"

// primitiveOpcodes maps every ZPAQL assembly mnemonic recognized inside
// an HCOMP or PCOMP body to its opcode byte. "a<>a" has no entry:
// swapping A with itself is invalid at compile time. Mnemonics ending in
// "=" with no right-hand register name (e.g. "a=", "*b=") take a
// trailing immediate operand; "jt"/"jf"/"jmp" take a signed 8-bit
// relative offset; "lj" takes an absolute 16-bit program index;
// everything else with HasByteOperand true takes a plain 0..255
// operand (e.g. "a=r", "r=a").
var primitiveOpcodes = map[string]zpaql.Opcode{
	"error": zpaql.OpError,

	"a++": zpaql.OpAInc, "a--": zpaql.OpADec, "a!": zpaql.OpANot, "a=0": zpaql.OpAZero, "a=r": zpaql.OpAEqR,
	"b<>a": zpaql.OpBSwap, "b++": zpaql.OpBInc, "b--": zpaql.OpBDec, "b!": zpaql.OpBNot, "b=0": zpaql.OpBZero, "b=r": zpaql.OpBEqR,
	"c<>a": zpaql.OpCSwap, "c++": zpaql.OpCInc, "c--": zpaql.OpCDec, "c!": zpaql.OpCNot, "c=0": zpaql.OpCZero, "c=r": zpaql.OpCEqR,
	"d<>a": zpaql.OpDSwap, "d++": zpaql.OpDInc, "d--": zpaql.OpDDec, "d!": zpaql.OpDNot, "d=0": zpaql.OpDZero, "d=r": zpaql.OpDEqR,

	"*b<>a": zpaql.OpMBSwap, "*b++": zpaql.OpMBInc, "*b--": zpaql.OpMBDec, "*b!": zpaql.OpMBNot, "*b=0": zpaql.OpMBZero, "jt": zpaql.OpJT,
	"*c<>a": zpaql.OpMCSwap, "*c++": zpaql.OpMCInc, "*c--": zpaql.OpMCDec, "*c!": zpaql.OpMCNot, "*c=0": zpaql.OpMCZero, "jf": zpaql.OpJF,
	"*d<>a": zpaql.OpHDSwap, "*d++": zpaql.OpHDInc, "*d--": zpaql.OpHDDec, "*d!": zpaql.OpHDNot, "*d=0": zpaql.OpHDZero, "r=a": zpaql.OpREqA,

	"halt": zpaql.OpHalt, "out": zpaql.OpOut, "hash": zpaql.OpHash, "hashd": zpaql.OpHashD, "jmp": zpaql.OpJmp,

	"a=a": zpaql.OpAEqA, "a=b": zpaql.OpAEqB, "a=c": zpaql.OpAEqC, "a=d": zpaql.OpAEqD, "a=*b": zpaql.OpAEqMB, "a=*c": zpaql.OpAEqMC, "a=*d": zpaql.OpAEqHD, "a=": zpaql.OpAEqN,
	"b=a": zpaql.OpBEqA, "b=b": zpaql.OpBEqB, "b=c": zpaql.OpBEqC, "b=d": zpaql.OpBEqD, "b=*b": zpaql.OpBEqMB, "b=*c": zpaql.OpBEqMC, "b=*d": zpaql.OpBEqHD, "b=": zpaql.OpBEqN,
	"c=a": zpaql.OpCEqA, "c=b": zpaql.OpCEqB, "c=c": zpaql.OpCEqC, "c=d": zpaql.OpCEqD, "c=*b": zpaql.OpCEqMB, "c=*c": zpaql.OpCEqMC, "c=*d": zpaql.OpCEqHD, "c=": zpaql.OpCEqN,
	"d=a": zpaql.OpDEqA, "d=b": zpaql.OpDEqB, "d=c": zpaql.OpDEqC, "d=d": zpaql.OpDEqD, "d=*b": zpaql.OpDEqMB, "d=*c": zpaql.OpDEqMC, "d=*d": zpaql.OpDEqHD, "d=": zpaql.OpDEqN,
	"*b=a": zpaql.OpMBEqA, "*b=b": zpaql.OpMBEqB, "*b=c": zpaql.OpMBEqC, "*b=d": zpaql.OpMBEqD, "*b=*b": zpaql.OpMBEqMB, "*b=*c": zpaql.OpMBEqMC, "*b=*d": zpaql.OpMBEqHD, "*b=": zpaql.OpMBEqN,
	"*c=a": zpaql.OpMCEqA, "*c=b": zpaql.OpMCEqB, "*c=c": zpaql.OpMCEqC, "*c=d": zpaql.OpMCEqD, "*c=*b": zpaql.OpMCEqMB, "*c=*c": zpaql.OpMCEqMC, "*c=*d": zpaql.OpMCEqHD, "*c=": zpaql.OpMCEqN,
	"*d=a": zpaql.OpHDEqA, "*d=b": zpaql.OpHDEqB, "*d=c": zpaql.OpHDEqC, "*d=d": zpaql.OpHDEqD, "*d=*b": zpaql.OpHDEqMB, "*d=*c": zpaql.OpHDEqMC, "*d=*d": zpaql.OpHDEqHD, "*d=": zpaql.OpHDEqN,

	"a+=a": zpaql.OpAAddA, "a+=b": zpaql.OpAAddB, "a+=c": zpaql.OpAAddC, "a+=d": zpaql.OpAAddD, "a+=*b": zpaql.OpAAddMB, "a+=*c": zpaql.OpAAddMC, "a+=*d": zpaql.OpAAddHD, "a+=": zpaql.OpAAddN,
	"a-=a": zpaql.OpASubA, "a-=b": zpaql.OpASubB, "a-=c": zpaql.OpASubC, "a-=d": zpaql.OpASubD, "a-=*b": zpaql.OpASubMB, "a-=*c": zpaql.OpASubMC, "a-=*d": zpaql.OpASubHD, "a-=": zpaql.OpASubN,
	"a*=a": zpaql.OpAMulA, "a*=b": zpaql.OpAMulB, "a*=c": zpaql.OpAMulC, "a*=d": zpaql.OpAMulD, "a*=*b": zpaql.OpAMulMB, "a*=*c": zpaql.OpAMulMC, "a*=*d": zpaql.OpAMulHD, "a*=": zpaql.OpAMulN,
	"a/=a": zpaql.OpADivA, "a/=b": zpaql.OpADivB, "a/=c": zpaql.OpADivC, "a/=d": zpaql.OpADivD, "a/=*b": zpaql.OpADivMB, "a/=*c": zpaql.OpADivMC, "a/=*d": zpaql.OpADivHD, "a/=": zpaql.OpADivN,
	"a%=a": zpaql.OpAModA, "a%=b": zpaql.OpAModB, "a%=c": zpaql.OpAModC, "a%=d": zpaql.OpAModD, "a%=*b": zpaql.OpAModMB, "a%=*c": zpaql.OpAModMC, "a%=*d": zpaql.OpAModHD, "a%=": zpaql.OpAModN,
	"a&=a": zpaql.OpAAndA, "a&=b": zpaql.OpAAndB, "a&=c": zpaql.OpAAndC, "a&=d": zpaql.OpAAndD, "a&=*b": zpaql.OpAAndMB, "a&=*c": zpaql.OpAAndMC, "a&=*d": zpaql.OpAAndHD, "a&=": zpaql.OpAAndN,
	"a&~a": zpaql.OpAAndNotA, "a&~b": zpaql.OpAAndNotB, "a&~c": zpaql.OpAAndNotC, "a&~d": zpaql.OpAAndNotD, "a&~*b": zpaql.OpAAndNotMB, "a&~*c": zpaql.OpAAndNotMC, "a&~*d": zpaql.OpAAndNotHD, "a&~": zpaql.OpAAndNotN,
	"a|=a": zpaql.OpAOrA, "a|=b": zpaql.OpAOrB, "a|=c": zpaql.OpAOrC, "a|=d": zpaql.OpAOrD, "a|=*b": zpaql.OpAOrMB, "a|=*c": zpaql.OpAOrMC, "a|=*d": zpaql.OpAOrHD, "a|=": zpaql.OpAOrN,
	"a^=a": zpaql.OpAXorA, "a^=b": zpaql.OpAXorB, "a^=c": zpaql.OpAXorC, "a^=d": zpaql.OpAXorD, "a^=*b": zpaql.OpAXorMB, "a^=*c": zpaql.OpAXorMC, "a^=*d": zpaql.OpAXorHD, "a^=": zpaql.OpAXorN,
	"a<<=a": zpaql.OpAShlA, "a<<=b": zpaql.OpAShlB, "a<<=c": zpaql.OpAShlC, "a<<=d": zpaql.OpAShlD, "a<<=*b": zpaql.OpAShlMB, "a<<=*c": zpaql.OpAShlMC, "a<<=*d": zpaql.OpAShlHD, "a<<=": zpaql.OpAShlN,
	"a>>=a": zpaql.OpAShrA, "a>>=b": zpaql.OpAShrB, "a>>=c": zpaql.OpAShrC, "a>>=d": zpaql.OpAShrD, "a>>=*b": zpaql.OpAShrMB, "a>>=*c": zpaql.OpAShrMC, "a>>=*d": zpaql.OpAShrHD, "a>>=": zpaql.OpAShrN,
	"a==a": zpaql.OpAEqEqA, "a==b": zpaql.OpAEqEqB, "a==c": zpaql.OpAEqEqC, "a==d": zpaql.OpAEqEqD, "a==*b": zpaql.OpAEqEqMB, "a==*c": zpaql.OpAEqEqMC, "a==*d": zpaql.OpAEqEqHD, "a==": zpaql.OpAEqEqN,
	"a<a": zpaql.OpALtA, "a<b": zpaql.OpALtB, "a<c": zpaql.OpALtC, "a<d": zpaql.OpALtD, "a<*b": zpaql.OpALtMB, "a<*c": zpaql.OpALtMC, "a<*d": zpaql.OpALtHD, "a<": zpaql.OpALtN,
	"a>a": zpaql.OpAGtA, "a>b": zpaql.OpAGtB, "a>c": zpaql.OpAGtC, "a>d": zpaql.OpAGtD, "a>*b": zpaql.OpAGtMB, "a>*c": zpaql.OpAGtMC, "a>*d": zpaql.OpAGtHD, "a>": zpaql.OpAGtN,

	"lj": zpaql.OpLJ,
}

// mnemonicOf inverts primitiveOpcodes for disassembly. Built once; the
// map above is exactly one name per opcode byte, so the inversion is
// unambiguous.
var mnemonicOf = func() map[zpaql.Opcode]string {
	m := make(map[zpaql.Opcode]string, len(primitiveOpcodes))
	for name, op := range primitiveOpcodes {
		m[op] = name
	}
	return m
}()
