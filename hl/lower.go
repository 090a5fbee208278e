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

import (
	"fmt"
	"unicode/utf16"

	"hljack/sir"
	"hljack/sourcemap"
)

// ClassResult is the output of lowering one class: its SIR commands and its
// instance_size (field count). No static-variable count is carried: statics
// are per-file, so the assembler allocates them against `<file>.<i>`
// symbols (see spec.md §4.5 Memory/static).
type ClassResult struct {
	Commands     []sir.Command
	InstanceSize int
}

// Lowerer holds per-class state while lowering one HL class's AST into SIR
// (spec.md §4.3).
type Lowerer struct {
	className    string
	fields       map[string]Symbol
	statics      map[string]Symbol
	instanceSize int

	file string
	lm   *sourcemap.LoweringMap
	cmds []sir.Command

	sym      *SymbolTable
	subKind  SubroutineKind
	whileIdx int
	ifIdx    int
}

// LowerClass lowers cls's AST to SIR, appending sourcemap entries to lm
// keyed by file (spec.md §4.3).
func LowerClass(cls *Class, file string, lm *sourcemap.LoweringMap) (*ClassResult, error) {
	l := &Lowerer{className: cls.Name, file: file, lm: lm}
	l.fields, l.statics, l.instanceSize = classAllocator(cls.Vars)

	for _, sub := range cls.Subroutines {
		if err := l.lowerSubroutine(sub); err != nil {
			return nil, err
		}
	}
	return &ClassResult{Commands: l.cmds, InstanceSize: l.instanceSize}, nil
}

func (l *Lowerer) emit(nodeID int, cmd sir.Command) {
	l.lm.Record(l.file, nodeID)
	l.cmds = append(l.cmds, cmd)
}

func (l *Lowerer) qname(name string) string {
	return l.className + "." + name
}

func (l *Lowerer) lowerSubroutine(sub *Subroutine) error {
	l.whileIdx = 0
	l.ifIdx = 0
	l.subKind = sub.Kind
	isMethodOrCtor := sub.Kind == SubMethod || sub.Kind == SubConstructor
	l.sym = newSymbolTable(l.fields, l.statics, isMethodOrCtor)

	// Only methods receive an implicit receiver argument (pushed by the
	// caller ahead of the declared arguments); constructors allocate their
	// own object and take just their declared parameters starting at 0.
	paramBase := 0
	if sub.Kind == SubMethod {
		paramBase = 1
	}
	for i, p := range sub.Params {
		l.sym.addParameter(p.Name, Symbol{Offset: paramBase + i, Type: p.Type, Kind: VarParameter})
	}
	for i, loc := range sub.Locals {
		l.sym.addLocal(loc.Name, Symbol{Offset: i, Type: loc.Type, Kind: VarLocal})
	}

	l.emit(sub.NodeID(), sir.FunctionDefine(l.qname(sub.Name), len(sub.Locals)))

	switch sub.Kind {
	case SubMethod:
		l.emit(sub.NodeID(), sir.Push(sir.SegArgument, 0))
		l.emit(sub.NodeID(), sir.Pop(sir.SegPointer, 0))
	case SubConstructor:
		l.emit(sub.NodeID(), sir.Push(sir.SegConstant, l.instanceSize))
		l.emit(sub.NodeID(), sir.Call("Memory.alloc", 1))
		l.emit(sub.NodeID(), sir.Pop(sir.SegPointer, 0))
	}

	for _, stmt := range sub.Body {
		if err := l.lowerStmt(stmt); err != nil {
			return err
		}
	}

	if !endsInReturn(sub.Body) {
		if sub.ReturnType == nil {
			l.emit(sub.NodeID(), sir.Push(sir.SegConstant, 0))
		}
		l.emit(sub.NodeID(), sir.Return())
	}
	return nil
}

func endsInReturn(body []Stmt) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*ReturnStmt)
	return ok
}

// ---------------------------------------------------------------------------
// Statements

func (l *Lowerer) lowerStmt(s Stmt) error {
	switch v := s.(type) {
	case *LetStmt:
		return l.lowerLet(v)
	case *IfStmt:
		return l.lowerIf(v)
	case *WhileStmt:
		return l.lowerWhile(v)
	case *DoStmt:
		return l.lowerDo(v)
	case *ReturnStmt:
		return l.lowerReturn(v)
	default:
		return &LoweringError{Reason: "unknown statement kind", NodeID: s.NodeID()}
	}
}

func (l *Lowerer) lowerLet(s *LetStmt) error {
	if s.Index == nil {
		if err := l.lowerExpr(s.Value); err != nil {
			return err
		}
		return l.popIntoVariable(s.NodeID(), s.VarName)
	}

	// Array write: evaluate RHS before binding `that`, so
	// `let a[i] = a[j] + 1` reads the old a[j] before a[i]'s address is
	// bound into pointer 1 (spec.md §4.3).
	if err := l.lowerExpr(s.Value); err != nil {
		return err
	}
	if err := l.pushVariable(s.NodeID(), s.VarName); err != nil {
		return err
	}
	if lit, ok := s.Index.(*PrimitiveExpr); ok && lit.Variant == PrimInt {
		l.emit(s.NodeID(), sir.Pop(sir.SegPointer, 1))
		l.emit(s.NodeID(), sir.Pop(sir.SegThat, lit.IntValue))
		return nil
	}
	if err := l.lowerExpr(s.Index); err != nil {
		return err
	}
	l.emit(s.NodeID(), sir.Add())
	l.emit(s.NodeID(), sir.Pop(sir.SegPointer, 1))
	l.emit(s.NodeID(), sir.Pop(sir.SegThat, 0))
	return nil
}

func (l *Lowerer) lowerIf(s *IfStmt) error {
	n := l.ifIdx
	l.ifIdx++
	thenLabel := fmt.Sprintf("if_statements_%d", n)
	endLabel := fmt.Sprintf("end_if_%d", n)

	if err := l.lowerExpr(s.Cond); err != nil {
		return err
	}
	l.emit(s.NodeID(), sir.IfGoto(thenLabel))
	for _, st := range s.Else {
		if err := l.lowerStmt(st); err != nil {
			return err
		}
	}
	l.emit(s.NodeID(), sir.Goto(endLabel))
	l.emit(s.NodeID(), sir.Label(thenLabel))
	for _, st := range s.Then {
		if err := l.lowerStmt(st); err != nil {
			return err
		}
	}
	l.emit(s.NodeID(), sir.Label(endLabel))
	return nil
}

func (l *Lowerer) lowerWhile(s *WhileStmt) error {
	n := l.whileIdx
	l.whileIdx++
	startLabel := fmt.Sprintf("while_start_%d", n)
	endLabel := fmt.Sprintf("while_end_%d", n)

	l.emit(s.NodeID(), sir.Label(startLabel))
	if err := l.lowerExpr(s.Cond); err != nil {
		return err
	}
	l.emit(s.NodeID(), sir.Not())
	l.emit(s.NodeID(), sir.IfGoto(endLabel))
	for _, st := range s.Body {
		if err := l.lowerStmt(st); err != nil {
			return err
		}
	}
	l.emit(s.NodeID(), sir.Goto(startLabel))
	l.emit(s.NodeID(), sir.Label(endLabel))
	return nil
}

func (l *Lowerer) lowerDo(s *DoStmt) error {
	if err := l.lowerCall(s.Call); err != nil {
		return err
	}
	l.emit(s.NodeID(), sir.Pop(sir.SegConstant, 0))
	return nil
}

func (l *Lowerer) lowerReturn(s *ReturnStmt) error {
	if s.Value != nil {
		if err := l.lowerExpr(s.Value); err != nil {
			return err
		}
	} else {
		l.emit(s.NodeID(), sir.Push(sir.SegConstant, 0))
	}
	l.emit(s.NodeID(), sir.Return())
	return nil
}

// ---------------------------------------------------------------------------
// Expressions

func (l *Lowerer) lowerExpr(e Expr) error {
	switch v := e.(type) {
	case *ParenExpr:
		return l.lowerExpr(v.Inner)
	case *PrimitiveExpr:
		return l.lowerPrimitive(v)
	case *BinaryExpr:
		return l.lowerBinary(v)
	case *UnaryExpr:
		return l.lowerUnary(v)
	case *VariableExpr:
		return l.pushVariable(v.NodeID(), v.Name)
	case *ArrayAccessExpr:
		return l.lowerArrayAccess(v)
	case *CallExpr:
		return l.lowerCall(v.Call)
	default:
		return &LoweringError{Reason: "unknown expression kind", NodeID: e.NodeID()}
	}
}

func (l *Lowerer) lowerPrimitive(v *PrimitiveExpr) error {
	switch v.Variant {
	case PrimInt:
		if v.IntValue < 0 || v.IntValue > sir.MaxConstant {
			return &LoweringError{Reason: fmt.Sprintf("integer literal %d does not fit in 16 bits", v.IntValue), NodeID: v.NodeID()}
		}
		l.emit(v.NodeID(), sir.Push(sir.SegConstant, v.IntValue))
		return nil
	case PrimString:
		return l.lowerString(v)
	case PrimTrue:
		l.emit(v.NodeID(), sir.Push(sir.SegConstant, 0))
		l.emit(v.NodeID(), sir.Not())
		return nil
	case PrimFalse, PrimNull:
		l.emit(v.NodeID(), sir.Push(sir.SegConstant, 0))
		return nil
	case PrimThis:
		if l.subKind == SubFunction {
			return &LoweringError{Reason: "'this' used outside method or constructor", NodeID: v.NodeID()}
		}
		l.emit(v.NodeID(), sir.Push(sir.SegPointer, 0))
		return nil
	default:
		return &LoweringError{Reason: "unknown primitive variant", NodeID: v.NodeID()}
	}
}

// lowerString encodes a string literal's UTF-16 code units one at a time.
// A code unit whose high bit is set can't be pushed directly (push
// constant is capped at 32767), so it's synthesised as the bitwise
// complement of a representable value and then un-complemented by `not` at
// runtime (spec.md §4.3).
func (l *Lowerer) lowerString(v *PrimitiveExpr) error {
	units := utf16.Encode([]rune(v.StrValue))
	l.emit(v.NodeID(), sir.Push(sir.SegConstant, len(units)))
	l.emit(v.NodeID(), sir.Call("String.new", 1))
	l.emit(v.NodeID(), sir.Pop(sir.SegTemp, 0))

	for _, c := range units {
		l.emit(v.NodeID(), sir.Push(sir.SegTemp, 0))
		if c&0x8000 != 0 {
			complement := 0xFFFF - int(c)
			l.emit(v.NodeID(), sir.Push(sir.SegConstant, complement))
			l.emit(v.NodeID(), sir.Not())
		} else {
			l.emit(v.NodeID(), sir.Push(sir.SegConstant, int(c)))
		}
		l.emit(v.NodeID(), sir.Call("String.appendChar", 2))
		l.emit(v.NodeID(), sir.Pop(sir.SegConstant, 0))
	}

	l.emit(v.NodeID(), sir.Push(sir.SegTemp, 0))
	return nil
}

func (l *Lowerer) lowerBinary(v *BinaryExpr) error {
	switch v.Op {
	case OpMul:
		if err := l.lowerExpr(v.Lhs); err != nil {
			return err
		}
		if err := l.lowerExpr(v.Rhs); err != nil {
			return err
		}
		l.emit(v.NodeID(), sir.Call("Math.multiply", 2))
		return nil
	case OpDiv:
		if err := l.lowerExpr(v.Lhs); err != nil {
			return err
		}
		if err := l.lowerExpr(v.Rhs); err != nil {
			return err
		}
		l.emit(v.NodeID(), sir.Call("Math.divide", 2))
		return nil
	case OpGe:
		if err := l.lowerExpr(v.Lhs); err != nil {
			return err
		}
		if err := l.lowerExpr(v.Rhs); err != nil {
			return err
		}
		l.emit(v.NodeID(), sir.Lt())
		l.emit(v.NodeID(), sir.Not())
		return nil
	case OpLe:
		if err := l.lowerExpr(v.Lhs); err != nil {
			return err
		}
		if err := l.lowerExpr(v.Rhs); err != nil {
			return err
		}
		l.emit(v.NodeID(), sir.Gt())
		l.emit(v.NodeID(), sir.Not())
		return nil
	}

	if err := l.lowerExpr(v.Lhs); err != nil {
		return err
	}
	if err := l.lowerExpr(v.Rhs); err != nil {
		return err
	}
	switch v.Op {
	case OpAdd:
		l.emit(v.NodeID(), sir.Add())
	case OpSub:
		l.emit(v.NodeID(), sir.Sub())
	case OpAnd:
		l.emit(v.NodeID(), sir.And())
	case OpOr:
		l.emit(v.NodeID(), sir.Or())
	case OpLt:
		l.emit(v.NodeID(), sir.Lt())
	case OpGt:
		l.emit(v.NodeID(), sir.Gt())
	case OpEq:
		l.emit(v.NodeID(), sir.Eq())
	default:
		return &LoweringError{Reason: "unknown binary operator", NodeID: v.NodeID()}
	}
	return nil
}

func (l *Lowerer) lowerUnary(v *UnaryExpr) error {
	if err := l.lowerExpr(v.Operand); err != nil {
		return err
	}
	switch v.Op {
	case OpNeg:
		l.emit(v.NodeID(), sir.Neg())
	case OpNot:
		l.emit(v.NodeID(), sir.Not())
	}
	return nil
}

func (l *Lowerer) lowerArrayAccess(v *ArrayAccessExpr) error {
	if err := l.pushVariable(v.NodeID(), v.VarName); err != nil {
		return err
	}
	if err := l.lowerExpr(v.Index); err != nil {
		return err
	}
	l.emit(v.NodeID(), sir.Add())
	l.emit(v.NodeID(), sir.Pop(sir.SegPointer, 1))
	l.emit(v.NodeID(), sir.Push(sir.SegThat, 0))
	return nil
}

func (l *Lowerer) lowerCall(call *SubroutineCall) error {
	switch call.Kind {
	case CallDirect:
		for _, a := range call.Args {
			if err := l.lowerExpr(a); err != nil {
				return err
			}
		}
		l.emit(call.NodeID(), sir.Call(l.qname(call.Name), len(call.Args)))
		return nil

	case CallMethod:
		if sym, ok := l.sym.Resolve(call.ReceiverName); ok && sym.Type.Kind != TypeClass {
			return &LoweringError{Reason: fmt.Sprintf("method call on non-object %q of type %s", call.ReceiverName, sym.Type), NodeID: call.NodeID()}
		}
		if sym, ok := l.sym.Resolve(call.ReceiverName); ok && sym.Type.Kind == TypeClass {
			if err := l.pushSymbol(call.NodeID(), sym); err != nil {
				return err
			}
			for _, a := range call.Args {
				if err := l.lowerExpr(a); err != nil {
					return err
				}
			}
			l.emit(call.NodeID(), sir.Call(sym.Type.ClassName+"."+call.Name, 1+len(call.Args)))
			return nil
		}
		// No symbol named call.ReceiverName: it names a class (static
		// function or constructor call), not an object reference.
		for _, a := range call.Args {
			if err := l.lowerExpr(a); err != nil {
				return err
			}
		}
		l.emit(call.NodeID(), sir.Call(call.ReceiverName+"."+call.Name, len(call.Args)))
		return nil

	default:
		return &LoweringError{Reason: "unknown call kind", NodeID: call.NodeID()}
	}
}

// ---------------------------------------------------------------------------
// Variable access

func segmentForKind(kind VarKind) sir.Segment {
	switch kind {
	case VarStatic:
		return sir.SegStatic
	case VarField:
		return sir.SegThis
	case VarLocal:
		return sir.SegLocal
	case VarParameter:
		return sir.SegArgument
	default:
		return sir.SegConstant
	}
}

func (l *Lowerer) pushSymbol(nodeID int, sym Symbol) error {
	l.emit(nodeID, sir.Push(segmentForKind(sym.Kind), sym.Offset))
	return nil
}

func (l *Lowerer) pushVariable(nodeID int, name string) error {
	sym, ok := l.sym.Resolve(name)
	if !ok {
		return &LoweringError{Reason: fmt.Sprintf("undefined variable %q", name), NodeID: nodeID}
	}
	return l.pushSymbol(nodeID, sym)
}

func (l *Lowerer) popIntoVariable(nodeID int, name string) error {
	sym, ok := l.sym.Resolve(name)
	if !ok {
		return &LoweringError{Reason: fmt.Sprintf("undefined variable %q", name), NodeID: nodeID}
	}
	l.emit(nodeID, sir.Pop(segmentForKind(sym.Kind), sym.Offset))
	return nil
}
