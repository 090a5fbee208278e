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

// Package asmlang implements the symbolic ASM layer (spec.md §3 and §4.4):
// the A/C/label instruction model, the comp/dest/jump encoding tables, and
// a line-oriented text parser sharing the same regex tokenizer the hl
// package uses (spec.md §4.1).
package asmlang

import "hljack/token"

const (
	TkWhitespace token.Kind = iota
	TkLineComment
	TkAt         // @
	TkLParen     // (
	TkRParen     // )
	TkSemicolon  // ;
	TkEquals     // =
	TkPlus       // +
	TkMinus      // -
	TkAmp        // &
	TkPipe       // |
	TkBang       // !
	TkIntLiteral // [0-9]+
	TkIdent      // symbol, label, or comp/dest/jump mnemonic
)

// Rules builds the ordered tokenizer table for ASM source (spec.md §4.1).
// Symbols and mnemonics (AMD, JGT, R3, LOOP, ...) share one identifier
// pattern; the parser tells them apart by position, not by lexical class.
func Rules() []token.Rule {
	return []token.Rule{
		token.MustRule(TkWhitespace, `[ \t\r]+`),
		token.MustRule(TkLineComment, `//[^\n]*`),
		token.MustRule(TkAt, `@`),
		token.MustRule(TkLParen, `\(`),
		token.MustRule(TkRParen, `\)`),
		token.MustRule(TkSemicolon, `;`),
		token.MustRule(TkEquals, `=`),
		token.MustRule(TkPlus, `\+`),
		token.MustRule(TkMinus, `-`),
		token.MustRule(TkAmp, `&`),
		token.MustRule(TkPipe, `\|`),
		token.MustRule(TkBang, `!`),
		token.MustRule(TkIntLiteral, `[0-9]+`),
		token.MustRule(TkIdent, `[A-Za-z_.$:][A-Za-z0-9_.$:]*`),
	}
}

func isTrivia(k token.Kind) bool {
	return k == TkWhitespace || k == TkLineComment
}
