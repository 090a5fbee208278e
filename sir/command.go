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

// Package sir implements the stack-based intermediate representation
// (spec.md §3): its command model, a text parser for SIR used as an input
// format, and the lowering of SIR to ASM (spec.md §4.5).
package sir

import "fmt"

// Segment enumerates SIR's memory segments (spec.md §3). Pointer-segments
// (Argument, Local, This, That) are indexed through a base pointer;
// offset-segments (Pointer, Temp) are indexed into a fixed RAM range.
type Segment int

const (
	SegArgument Segment = iota
	SegLocal
	SegThis
	SegThat
	SegPointer
	SegTemp
	SegStatic
	SegConstant
)

func (s Segment) String() string {
	switch s {
	case SegArgument:
		return "argument"
	case SegLocal:
		return "local"
	case SegThis:
		return "this"
	case SegThat:
		return "that"
	case SegPointer:
		return "pointer"
	case SegTemp:
		return "temp"
	case SegStatic:
		return "static"
	case SegConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// IsPointerSegment reports whether s is indexed through a base pointer
// (argument, local, this, that) rather than a fixed RAM offset.
func (s Segment) IsPointerSegment() bool {
	switch s {
	case SegArgument, SegLocal, SegThis, SegThat:
		return true
	}
	return false
}

type BinaryArith int

const (
	ArithAdd BinaryArith = iota
	ArithSub
	ArithEq
	ArithGt
	ArithLt
	ArithAnd
	ArithOr
)

func (a BinaryArith) String() string {
	return [...]string{"add", "sub", "eq", "gt", "lt", "and", "or"}[a]
}

type UnaryArith int

const (
	ArithNeg UnaryArith = iota
	ArithNot
)

func (a UnaryArith) String() string {
	return [...]string{"neg", "not"}[a]
}

type Kind int

const (
	KindBinary Kind = iota
	KindUnary
	KindPush
	KindPop
	KindGoto
	KindIfGoto
	KindLabel
	KindFunctionDefine
	KindCall
	KindReturn
)

// Command is the SIR tagged union of spec.md §3: Arithmetic, Memory, Flow
// and Function commands share one struct with fields used according to
// Kind, matching the teacher's embedded-struct tagged-union convention.
type Command struct {
	Kind Kind

	BinaryOp BinaryArith
	UnaryOp  UnaryArith

	Segment Segment
	Index   int

	Label string

	Name        string
	LocalsCount int
	ArgCount    int
}

func Binary(op BinaryArith) Command { return Command{Kind: KindBinary, BinaryOp: op} }
func Unary(op UnaryArith) Command   { return Command{Kind: KindUnary, UnaryOp: op} }

func Add() Command { return Binary(ArithAdd) }
func Sub() Command { return Binary(ArithSub) }
func Eq() Command  { return Binary(ArithEq) }
func Gt() Command  { return Binary(ArithGt) }
func Lt() Command  { return Binary(ArithLt) }
func And() Command { return Binary(ArithAnd) }
func Or() Command  { return Binary(ArithOr) }
func Neg() Command { return Unary(ArithNeg) }
func Not() Command { return Unary(ArithNot) }

// MaxConstant is the largest literal `push constant k` may carry — the
// target's A-instruction can't hold a value with its high bit set
// (spec.md §3).
const MaxConstant = 32767

func Push(seg Segment, index int) Command {
	return Command{Kind: KindPush, Segment: seg, Index: index}
}

func Pop(seg Segment, index int) Command {
	return Command{Kind: KindPop, Segment: seg, Index: index}
}

func Goto(label string) Command   { return Command{Kind: KindGoto, Label: label} }
func IfGoto(label string) Command { return Command{Kind: KindIfGoto, Label: label} }
func Label(label string) Command  { return Command{Kind: KindLabel, Label: label} }

func FunctionDefine(name string, locals int) Command {
	return Command{Kind: KindFunctionDefine, Name: name, LocalsCount: locals}
}

func Call(name string, args int) Command {
	return Command{Kind: KindCall, Name: name, ArgCount: args}
}

func Return() Command { return Command{Kind: KindReturn} }

// String renders a Command the way it would appear in SIR's textual form
// (spec.md §6), used by debug dumps and round-trip tests.
func (c Command) String() string {
	switch c.Kind {
	case KindBinary:
		return c.BinaryOp.String()
	case KindUnary:
		return c.UnaryOp.String()
	case KindPush:
		return fmt.Sprintf("push %s %d", c.Segment, c.Index)
	case KindPop:
		return fmt.Sprintf("pop %s %d", c.Segment, c.Index)
	case KindGoto:
		return fmt.Sprintf("goto %s", c.Label)
	case KindIfGoto:
		return fmt.Sprintf("if-goto %s", c.Label)
	case KindLabel:
		return fmt.Sprintf("label %s", c.Label)
	case KindFunctionDefine:
		return fmt.Sprintf("function %s %d", c.Name, c.LocalsCount)
	case KindCall:
		return fmt.Sprintf("call %s %d", c.Name, c.ArgCount)
	case KindReturn:
		return "return"
	default:
		return "?"
	}
}
