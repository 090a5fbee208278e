// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package glyph

import (
	"sort"

	"hljack/asmlang"
)

// EmitLoadBlock renders font as the ASM snippet that populates GLYPHS at
// boot. Each glyph's 9-row bitmap is packed into 4 sequential 16-bit
// words (the bottom row is always blank on this font and is dropped),
// written through an auto-incrementing pointer in R7. Glyphs are emitted
// lowest codepoint first for determinism.
func EmitLoadBlock(font Font) []asmlang.Instruction {
	var out []asmlang.Instruction

	out = append(out,
		asmlang.ASymbol("GLYPHS"),
		asmlang.C("D", "A-1", ""),
		asmlang.ASymbol("R7"),
		asmlang.C("M", "D", ""),
	)

	codepoints := make([]rune, 0, len(font))
	for cp := range font {
		codepoints = append(codepoints, cp)
	}
	sort.Slice(codepoints, func(i, j int) bool { return codepoints[i] < codepoints[j] })

	for _, cp := range codepoints {
		bitmap := font[cp]
		for _, word := range packWords(bitmap) {
			out = append(out, emitWord(word)...)
		}
	}
	return out
}

// packWords reassembles a 9-byte bitmap into four big-endian 16-bit
// words, dropping the unused ninth byte.
func packWords(bitmap [9]byte) []int16 {
	words := make([]int16, 4)
	for i := range words {
		words[i] = int16(uint16(bitmap[2*i])<<8 | uint16(bitmap[2*i+1]))
	}
	return words
}

func loadAndIncrementAddress() []asmlang.Instruction {
	return []asmlang.Instruction{
		asmlang.ASymbol("R7"),
		asmlang.C("AM", "M+1", ""),
	}
}

var aluConstants = []int16{-1, 0, 1}

func compLiteral(c int16) string {
	switch c {
	case -1:
		return "-1"
	case 1:
		return "1"
	default:
		return "0"
	}
}

// emitWord writes one 16-bit word to the glyph slot R7 points past,
// favoring the cheapest instruction sequence available: a direct ALU
// constant, a one-step bitwise-NOT or negation of one, or (failing those)
// an explicit numeric load — negative values loaded as their bitwise
// complement and then inverted, since the A-register can't carry a
// negative literal.
func emitWord(word int16) []asmlang.Instruction {
	for _, c := range aluConstants {
		if c == word {
			return append(loadAndIncrementAddress(), asmlang.C("M", compLiteral(c), ""))
		}
	}
	for _, c := range aluConstants {
		if ^c == word {
			return append(loadAndIncrementAddress(),
				asmlang.C("M", compLiteral(c), ""),
				asmlang.C("M", "!M", ""))
		}
	}
	for _, c := range aluConstants {
		if -c == word {
			return append(loadAndIncrementAddress(),
				asmlang.C("M", compLiteral(c), ""),
				asmlang.C("M", "-M", ""))
		}
	}
	if word < 0 {
		out := []asmlang.Instruction{
			asmlang.A(int(^word)),
			asmlang.C("D", "!A", ""),
		}
		out = append(out, loadAndIncrementAddress()...)
		return append(out, asmlang.C("M", "D", ""))
	}
	out := []asmlang.Instruction{
		asmlang.A(int(word)),
		asmlang.C("D", "A", ""),
	}
	out = append(out, loadAndIncrementAddress()...)
	return append(out, asmlang.C("M", "D", ""))
}
