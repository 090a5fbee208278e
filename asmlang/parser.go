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

package asmlang

import (
	"fmt"
	"strconv"
	"strings"

	"hljack/token"
)

// ParseError reports a malformed ASM line.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("asm parse error at line %d (%q): %s", e.Line, e.Text, e.Msg)
}

var tokenizer = token.New(Rules())

// Parse parses ASM's line-oriented textual grammar (spec.md §4.4) into an
// Instruction slice. One non-blank line produces exactly one Instruction
// (real or label); blank lines and full-line comments produce none.
func Parse(src string) ([]Instruction, error) {
	var out []Instruction
	for lineNo, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		toks, err := tokenizer.Tokenize(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo + 1, Text: raw, Msg: err.Error()}
		}
		filtered := make([]token.Token, 0, len(toks))
		for _, tk := range toks {
			if !isTrivia(tk.Kind) {
				filtered = append(filtered, tk)
			}
		}
		if len(filtered) == 0 {
			continue // a line that was only a comment
		}
		inst, err := parseLine(filtered)
		if err != nil {
			return nil, &ParseError{Line: lineNo + 1, Text: raw, Msg: err.Error()}
		}
		out = append(out, inst)
	}
	return out, nil
}

func parseLine(toks []token.Token) (Instruction, error) {
	switch toks[0].Kind {
	case TkAt:
		return parseA(toks)
	case TkLParen:
		return parseLabel(toks)
	default:
		return parseC(toks)
	}
}

func parseA(toks []token.Token) (Instruction, error) {
	if len(toks) != 2 {
		return Instruction{}, fmt.Errorf("'@' must be followed by exactly one symbol or number")
	}
	switch toks[1].Kind {
	case TkIntLiteral:
		n, err := strconv.Atoi(toks[1].Source)
		if err != nil {
			return Instruction{}, fmt.Errorf("not a number: %q", toks[1].Source)
		}
		return A(n), nil
	case TkIdent:
		return ASymbol(toks[1].Source), nil
	default:
		return Instruction{}, fmt.Errorf("expected a symbol or number after '@', found %q", toks[1].Source)
	}
}

func parseLabel(toks []token.Token) (Instruction, error) {
	if len(toks) != 3 || toks[1].Kind != TkIdent || toks[2].Kind != TkRParen {
		return Instruction{}, fmt.Errorf("malformed label declaration")
	}
	return Label(toks[1].Source), nil
}

// parseC parses a C-instruction `[dest=]comp[;jump]`. dest, when present,
// is always a single identifier token immediately before '='; jump, when
// present, is always a single identifier token immediately after ';'. comp
// is everything else, reassembled by concatenating token source text (the
// source carries no embedded spaces within a comp expression).
func parseC(toks []token.Token) (Instruction, error) {
	dest := ""
	rest := toks
	if len(toks) >= 2 && toks[1].Kind == TkEquals {
		if toks[0].Kind != TkIdent {
			return Instruction{}, fmt.Errorf("expected a destination identifier before '='")
		}
		dest = toks[0].Source
		rest = toks[2:]
	}

	jump := ""
	compToks := rest
	for i, tk := range rest {
		if tk.Kind == TkSemicolon {
			if i != len(rest)-2 || rest[len(rest)-1].Kind != TkIdent {
				return Instruction{}, fmt.Errorf("expected a single jump identifier after ';'")
			}
			jump = rest[len(rest)-1].Source
			compToks = rest[:i]
			break
		}
	}

	if len(compToks) == 0 {
		return Instruction{}, fmt.Errorf("missing comp expression")
	}
	var b strings.Builder
	for _, tk := range compToks {
		b.WriteString(tk.Source)
	}
	comp := b.String()
	if _, ok := CompCode(comp); !ok {
		return Instruction{}, fmt.Errorf("unrecognized comp expression %q", comp)
	}
	if _, ok := DestCode(dest); !ok {
		return Instruction{}, fmt.Errorf("unrecognized dest mnemonic %q", dest)
	}
	if _, ok := JumpCode(jump); !ok {
		return Instruction{}, fmt.Errorf("unrecognized jump mnemonic %q", jump)
	}
	return C(dest, comp, jump), nil
}
