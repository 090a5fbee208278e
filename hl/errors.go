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

import "fmt"

// ParseError is a token mismatch: the parser expected one production and
// found another (spec.md §7).
type ParseError struct {
	Expected   string
	Actual     string
	TokenIndex int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at token %d: expected %s, found %s", e.TokenIndex, e.Expected, e.Actual)
}

// UnexpectedEnd is an end-of-stream reached mid-production (spec.md §7).
type UnexpectedEnd struct {
	Expected string
}

func (e *UnexpectedEnd) Error() string {
	return fmt.Sprintf("unexpected end of input: expected %s", e.Expected)
}

// LoweringError covers the AST->SIR lowering failures of spec.md §7:
// `this` outside method/constructor, method call on a non-object symbol,
// an integer literal that doesn't fit 16 bits, and an undefined variable.
// An out-of-range pointer/temp offset is not reported here; SIR->ASM
// lowering rejects it as a sir.AssemblyError.
type LoweringError struct {
	Reason string
	NodeID int
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("lowering error at node %d: %s", e.NodeID, e.Reason)
}
