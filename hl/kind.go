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

package hl

import "hljack/token"

// Token kinds for the HL grammar (spec.md §6). Keyword rules are listed
// ahead of the identifier rule in Rules() below so maximal-munch with
// list-order tiebreak prefers a keyword over an identifier on exact match,
// while still preferring the longer identifier when the source extends
// past the keyword (e.g. "return42").
const (
	TkWhitespace token.Kind = iota
	TkLineComment
	TkBlockComment

	TkClass
	TkConstructor
	TkFunction
	TkMethod
	TkField
	TkStatic
	TkVar
	TkInt
	TkChar
	TkBoolean
	TkVoid
	TkTrue
	TkFalse
	TkNull
	TkThis
	TkLet
	TkDo
	TkIf
	TkElse
	TkWhile
	TkReturn

	TkIdent
	TkIntLiteral
	TkStringLiteral

	TkLBrace
	TkRBrace
	TkLParen
	TkRParen
	TkLBracket
	TkRBracket
	TkComma
	TkSemicolon
	TkDot

	TkPlus
	TkMinus
	TkStar
	TkSlash
	TkAmp
	TkPipe
	TkLt
	TkLe
	TkGt
	TkGe
	TkEq
	TkNot // '~', boolean/unary not
)

var kindNames = map[token.Kind]string{
	TkWhitespace:    "whitespace",
	TkLineComment:   "line-comment",
	TkBlockComment:  "block-comment",
	TkClass:         "class",
	TkConstructor:   "constructor",
	TkFunction:      "function",
	TkMethod:        "method",
	TkField:         "field",
	TkStatic:        "static",
	TkVar:           "var",
	TkInt:           "int",
	TkChar:          "char",
	TkBoolean:       "boolean",
	TkVoid:          "void",
	TkTrue:          "true",
	TkFalse:         "false",
	TkNull:          "null",
	TkThis:          "this",
	TkLet:           "let",
	TkDo:            "do",
	TkIf:            "if",
	TkElse:          "else",
	TkWhile:         "while",
	TkReturn:        "return",
	TkIdent:         "identifier",
	TkIntLiteral:    "integer-literal",
	TkStringLiteral: "string-literal",
	TkLBrace:        "{",
	TkRBrace:        "}",
	TkLParen:        "(",
	TkRParen:        ")",
	TkLBracket:      "[",
	TkRBracket:      "]",
	TkComma:         ",",
	TkSemicolon:     ";",
	TkDot:           ".",
	TkPlus:          "+",
	TkMinus:         "-",
	TkStar:          "*",
	TkSlash:         "/",
	TkAmp:           "&",
	TkPipe:          "|",
	TkLt:            "<",
	TkLe:            "<=",
	TkGt:            ">",
	TkGe:            ">=",
	TkEq:            "=",
	TkNot:           "~",
}

func KindName(k token.Kind) string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Rules returns the ordered (regex, kind) table driving the shared
// tokenizer for HL source (spec.md §4.1). Keyword patterns precede the
// general identifier pattern.
func Rules() []token.Rule {
	return []token.Rule{
		token.MustRule(TkWhitespace, `[ \t\r\n]+`),
		token.MustRule(TkLineComment, `//[^\n]*`),
		token.MustRule(TkBlockComment, `/\*[\s\S]*?\*/`),

		token.MustRule(TkClass, `class\b`),
		token.MustRule(TkConstructor, `constructor\b`),
		token.MustRule(TkFunction, `function\b`),
		token.MustRule(TkMethod, `method\b`),
		token.MustRule(TkField, `field\b`),
		token.MustRule(TkStatic, `static\b`),
		token.MustRule(TkVar, `var\b`),
		token.MustRule(TkInt, `int\b`),
		token.MustRule(TkChar, `char\b`),
		token.MustRule(TkBoolean, `boolean\b`),
		token.MustRule(TkVoid, `void\b`),
		token.MustRule(TkTrue, `true\b`),
		token.MustRule(TkFalse, `false\b`),
		token.MustRule(TkNull, `null\b`),
		token.MustRule(TkThis, `this\b`),
		token.MustRule(TkLet, `let\b`),
		token.MustRule(TkDo, `do\b`),
		token.MustRule(TkIf, `if\b`),
		token.MustRule(TkElse, `else\b`),
		token.MustRule(TkWhile, `while\b`),
		token.MustRule(TkReturn, `return\b`),

		token.MustRule(TkIntLiteral, `[0-9]+`),
		token.MustRule(TkStringLiteral, `"[^"\n]*"`),
		token.MustRule(TkIdent, `[A-Za-z_][A-Za-z0-9_]*`),

		token.MustRule(TkLBrace, `\{`),
		token.MustRule(TkRBrace, `\}`),
		token.MustRule(TkLParen, `\(`),
		token.MustRule(TkRParen, `\)`),
		token.MustRule(TkLBracket, `\[`),
		token.MustRule(TkRBracket, `\]`),
		token.MustRule(TkComma, `,`),
		token.MustRule(TkSemicolon, `;`),
		token.MustRule(TkDot, `\.`),

		token.MustRule(TkPlus, `\+`),
		token.MustRule(TkMinus, `-`),
		token.MustRule(TkStar, `\*`),
		token.MustRule(TkSlash, `/`),
		token.MustRule(TkAmp, `&`),
		token.MustRule(TkPipe, `\|`),
		token.MustRule(TkLe, `<=`),
		token.MustRule(TkLt, `<`),
		token.MustRule(TkGe, `>=`),
		token.MustRule(TkGt, `>`),
		token.MustRule(TkEq, `=`),
		token.MustRule(TkNot, `~`),
	}
}

// IsTrivia reports whether kind is whitespace or a comment — tokens the
// parser's filtered view skips but which still occupy a slot in the full
// token stream for index-stability purposes.
func IsTrivia(k token.Kind) bool {
	return k == TkWhitespace || k == TkLineComment || k == TkBlockComment
}
