// Package zpaql implements the ZPAQL byte-code virtual machine: a small,
// sandboxed interpreter used both to compute context hashes for the
// predictor (HCOMP) and to invert an optional preprocessing transform on
// decompression (PCOMP).
package zpaql

// Opcode is a single ZPAQL instruction byte. The numbering matches the
// ZPAQ level 1 specification exactly: opcodes with the low three bits
// equal to 7 take one operand byte, and opcode 255 (LJ) takes a two byte
// little-endian operand. Everything else is a single byte.
type Opcode byte

const (
	OpError Opcode = 0
	OpAInc  Opcode = 1 // A++
	OpADec  Opcode = 2 // A--
	OpANot  Opcode = 3 // A=~A
	OpAZero Opcode = 4 // A=0
	OpAEqR  Opcode = 7 // A=R N

	OpBSwap Opcode = 8  // B<>A
	OpBInc  Opcode = 9  // B++
	OpBDec  Opcode = 10 // B--
	OpBNot  Opcode = 11 // B=~B
	OpBZero Opcode = 12 // B=0
	OpBEqR  Opcode = 15 // B=R N

	OpCSwap Opcode = 16
	OpCInc  Opcode = 17
	OpCDec  Opcode = 18
	OpCNot  Opcode = 19
	OpCZero Opcode = 20
	OpCEqR  Opcode = 23

	OpDSwap Opcode = 24
	OpDInc  Opcode = 25
	OpDDec  Opcode = 26
	OpDNot  Opcode = 27
	OpDZero Opcode = 28
	OpDEqR  Opcode = 31

	OpMBSwap Opcode = 32
	OpMBInc  Opcode = 33
	OpMBDec  Opcode = 34
	OpMBNot  Opcode = 35
	OpMBZero Opcode = 36
	OpJT     Opcode = 39 // JT N (conditional short jump, F true)

	OpMCSwap Opcode = 40
	OpMCInc  Opcode = 41
	OpMCDec  Opcode = 42
	OpMCNot  Opcode = 43
	OpMCZero Opcode = 44
	OpJF     Opcode = 47 // JF N (conditional short jump, F false)

	OpHDSwap Opcode = 48
	OpHDInc  Opcode = 49
	OpHDDec  Opcode = 50
	OpHDNot  Opcode = 51
	OpHDZero Opcode = 52
	OpREqA   Opcode = 55 // R=A N

	OpHalt  Opcode = 56
	OpOut   Opcode = 57
	OpHash  Opcode = 59 // A = (A+*B+512)*773
	OpHashD Opcode = 60 // *D = (*D+A+512)*773
	OpJmp   Opcode = 63 // JMP N

	OpAEqA Opcode = 64
	OpAEqB Opcode = 65
	OpAEqC Opcode = 66
	OpAEqD Opcode = 67
	OpAEqMB Opcode = 68
	OpAEqMC Opcode = 69
	OpAEqHD Opcode = 70
	OpAEqN  Opcode = 71

	OpBEqA  Opcode = 72
	OpBEqB  Opcode = 73
	OpBEqC  Opcode = 74
	OpBEqD  Opcode = 75
	OpBEqMB Opcode = 76
	OpBEqMC Opcode = 77
	OpBEqHD Opcode = 78
	OpBEqN  Opcode = 79

	OpCEqA  Opcode = 80
	OpCEqB  Opcode = 81
	OpCEqC  Opcode = 82
	OpCEqD  Opcode = 83
	OpCEqMB Opcode = 84
	OpCEqMC Opcode = 85
	OpCEqHD Opcode = 86
	OpCEqN  Opcode = 87

	OpDEqA  Opcode = 88
	OpDEqB  Opcode = 89
	OpDEqC  Opcode = 90
	OpDEqD  Opcode = 91
	OpDEqMB Opcode = 92
	OpDEqMC Opcode = 93
	OpDEqHD Opcode = 94
	OpDEqN  Opcode = 95

	OpMBEqA  Opcode = 96
	OpMBEqB  Opcode = 97
	OpMBEqC  Opcode = 98
	OpMBEqD  Opcode = 99
	OpMBEqMB Opcode = 100
	OpMBEqMC Opcode = 101
	OpMBEqHD Opcode = 102
	OpMBEqN  Opcode = 103

	OpMCEqA  Opcode = 104
	OpMCEqB  Opcode = 105
	OpMCEqC  Opcode = 106
	OpMCEqD  Opcode = 107
	OpMCEqMB Opcode = 108
	OpMCEqMC Opcode = 109
	OpMCEqHD Opcode = 110
	OpMCEqN  Opcode = 111

	OpHDEqA  Opcode = 112
	OpHDEqB  Opcode = 113
	OpHDEqC  Opcode = 114
	OpHDEqD  Opcode = 115
	OpHDEqMB Opcode = 116
	OpHDEqMC Opcode = 117
	OpHDEqHD Opcode = 118
	OpHDEqN  Opcode = 119

	OpAAddA  Opcode = 128
	OpAAddB  Opcode = 129
	OpAAddC  Opcode = 130
	OpAAddD  Opcode = 131
	OpAAddMB Opcode = 132
	OpAAddMC Opcode = 133
	OpAAddHD Opcode = 134
	OpAAddN  Opcode = 135

	OpASubA  Opcode = 136
	OpASubB  Opcode = 137
	OpASubC  Opcode = 138
	OpASubD  Opcode = 139
	OpASubMB Opcode = 140
	OpASubMC Opcode = 141
	OpASubHD Opcode = 142
	OpASubN  Opcode = 143

	OpAMulA  Opcode = 144
	OpAMulB  Opcode = 145
	OpAMulC  Opcode = 146
	OpAMulD  Opcode = 147
	OpAMulMB Opcode = 148
	OpAMulMC Opcode = 149
	OpAMulHD Opcode = 150
	OpAMulN  Opcode = 151

	OpADivA  Opcode = 152
	OpADivB  Opcode = 153
	OpADivC  Opcode = 154
	OpADivD  Opcode = 155
	OpADivMB Opcode = 156
	OpADivMC Opcode = 157
	OpADivHD Opcode = 158
	OpADivN  Opcode = 159

	OpAModA  Opcode = 160
	OpAModB  Opcode = 161
	OpAModC  Opcode = 162
	OpAModD  Opcode = 163
	OpAModMB Opcode = 164
	OpAModMC Opcode = 165
	OpAModHD Opcode = 166
	OpAModN  Opcode = 167

	OpAAndA  Opcode = 168
	OpAAndB  Opcode = 169
	OpAAndC  Opcode = 170
	OpAAndD  Opcode = 171
	OpAAndMB Opcode = 172
	OpAAndMC Opcode = 173
	OpAAndHD Opcode = 174
	OpAAndN  Opcode = 175

	OpAAndNotA  Opcode = 176
	OpAAndNotB  Opcode = 177
	OpAAndNotC  Opcode = 178
	OpAAndNotD  Opcode = 179
	OpAAndNotMB Opcode = 180
	OpAAndNotMC Opcode = 181
	OpAAndNotHD Opcode = 182
	OpAAndNotN  Opcode = 183

	OpAOrA  Opcode = 184
	OpAOrB  Opcode = 185
	OpAOrC  Opcode = 186
	OpAOrD  Opcode = 187
	OpAOrMB Opcode = 188
	OpAOrMC Opcode = 189
	OpAOrHD Opcode = 190
	OpAOrN  Opcode = 191

	OpAXorA  Opcode = 192
	OpAXorB  Opcode = 193
	OpAXorC  Opcode = 194
	OpAXorD  Opcode = 195
	OpAXorMB Opcode = 196
	OpAXorMC Opcode = 197
	OpAXorHD Opcode = 198
	OpAXorN  Opcode = 199

	OpAShlA  Opcode = 200
	OpAShlB  Opcode = 201
	OpAShlC  Opcode = 202
	OpAShlD  Opcode = 203
	OpAShlMB Opcode = 204
	OpAShlMC Opcode = 205
	OpAShlHD Opcode = 206
	OpAShlN  Opcode = 207

	OpAShrA  Opcode = 208
	OpAShrB  Opcode = 209
	OpAShrC  Opcode = 210
	OpAShrD  Opcode = 211
	OpAShrMB Opcode = 212
	OpAShrMC Opcode = 213
	OpAShrHD Opcode = 214
	OpAShrN  Opcode = 215

	OpAEqEqA  Opcode = 216
	OpAEqEqB  Opcode = 217
	OpAEqEqC  Opcode = 218
	OpAEqEqD  Opcode = 219
	OpAEqEqMB Opcode = 220
	OpAEqEqMC Opcode = 221
	OpAEqEqHD Opcode = 222
	OpAEqEqN  Opcode = 223

	OpALtA  Opcode = 224
	OpALtB  Opcode = 225
	OpALtC  Opcode = 226
	OpALtD  Opcode = 227
	OpALtMB Opcode = 228
	OpALtMC Opcode = 229
	OpALtHD Opcode = 230
	OpALtN  Opcode = 231

	OpAGtA  Opcode = 232
	OpAGtB  Opcode = 233
	OpAGtC  Opcode = 234
	OpAGtD  Opcode = 235
	OpAGtMB Opcode = 236
	OpAGtMC Opcode = 237
	OpAGtHD Opcode = 238
	OpAGtN  Opcode = 239

	OpLJ Opcode = 255 // LJ N N (3-byte absolute long jump)
)

// HasByteOperand reports whether op's low three bits are 7, meaning it is
// followed by one operand byte (not counting LJ, which has two).
func HasByteOperand(op Opcode) bool {
	return op != OpLJ && op&7 == 7
}
