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

package sir

import (
	"fmt"

	"hljack/asmlang"
	"hljack/callgraph"
	"hljack/sourcemap"
	"hljack/utils"
)

// AssemblyError covers the lowering failures SIR->ASM can raise on its own
// account (spec.md §7): an offset-segment index out of the {0,1} range
// this target supports.
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string { return "sir->asm lowering error: " + e.Reason }

// FileCommands is one compilation unit's lowered SIR body, in source
// order, as input to whole-program SIR->ASM lowering.
type FileCommands struct {
	File     string
	Commands []Command
}

// ProgramOptions parameterizes whole-program lowering (spec.md §4.5, §4.8).
type ProgramOptions struct {
	Entry      string // normally "Sys.init"
	Analysis   *callgraph.Result
	GlyphBlock []asmlang.Instruction // inserted after the holding pattern when non-nil
}

const (
	symSP   = "SP"
	symLCL  = "LCL"
	symARG  = "ARG"
	symTHIS = "THIS"
	symTHAT = "THAT"
	symR7   = "R7"
	symR8   = "R8"
)

func baseSymbolFor(seg Segment) string {
	switch seg {
	case SegArgument:
		return symARG
	case SegLocal:
		return symLCL
	case SegThis:
		return symTHIS
	case SegThat:
		return symTHAT
	default:
		utils.ShouldNotReachHere()
		return ""
	}
}

type programLowerer struct {
	analysis *callgraph.Result
	am       *sourcemap.AsmMap
	out      []asmlang.Instruction

	curFile      string
	curSirIdx    int
	curFunc      string
	argCounts    map[string]int
	cmpCounter   map[string]int
	callCounter  int
}

// LowerProgram lowers every live subroutine's SIR body into one combined
// ASM instruction stream (spec.md §4.5), recording each emitted
// instruction's originating SIR command index into am.
func LowerProgram(files []FileCommands, opts ProgramOptions, am *sourcemap.AsmMap) ([]asmlang.Instruction, error) {
	utils.Assert(opts.Entry != "", "program options must name an entry point")
	pl := &programLowerer{
		analysis:   opts.Analysis,
		am:         am,
		argCounts:  collectArgCounts(files, opts.Entry),
		cmpCounter: map[string]int{"JEQ": 0, "JGT": 0, "JLT": 0},
	}

	pl.emitBoot(opts)

	for _, fc := range files {
		if err := pl.lowerFile(fc); err != nil {
			return nil, err
		}
	}

	return pl.out, nil
}

// collectArgCounts scans every `call` command across the whole program to
// recover each defined subroutine's argument count — SIR's Define command
// doesn't carry it (spec.md §3), so Return's frame teardown (which needs
// it) learns it from the call sites instead. The entry point is never
// called by this program's own SIR, so it's pinned to 0 args.
func collectArgCounts(files []FileCommands, entry string) map[string]int {
	counts := map[string]int{entry: 0}
	for _, fc := range files {
		for _, cmd := range fc.Commands {
			if cmd.Kind == KindCall {
				counts[cmd.Name] = cmd.ArgCount
			}
		}
	}
	return counts
}

func (pl *programLowerer) emit(inst asmlang.Instruction) {
	pl.out = append(pl.out, inst)
	if pl.am != nil && pl.curFile != "" {
		pl.am.Record(pl.curFile, pl.curSirIdx)
	}
}

// emitBoot lays down the holding pattern, the optional glyph block, and
// the synthetic call frame that hands control to Sys.init (spec.md §4.5).
func (pl *programLowerer) emitBoot(opts ProgramOptions) {
	pl.curFile = "" // boot code isn't attributed to any SIR command

	pl.emit(asmlang.ASymbol("$boot_real_start"))
	pl.emit(asmlang.C("", "0", "JMP"))
	pl.emit(asmlang.Label("$boot_hold"))
	pl.emit(asmlang.ASymbol("$boot_hold"))
	pl.emit(asmlang.C("", "0", "JMP"))
	pl.emit(asmlang.Label("$boot_real_start"))

	if opts.GlyphBlock != nil {
		for _, inst := range opts.GlyphBlock {
			pl.out = append(pl.out, inst)
		}
	}

	pl.emitSetConst(256, symARG)
	pl.emitSetConst(261, symSP)
	pl.emitSetConst(261, symLCL)

	pl.emit(asmlang.ASymbol("$boot_hold"))
	pl.emit(asmlang.C("D", "A", ""))
	pl.emit(asmlang.A(256))
	pl.emit(asmlang.C("M", "D", ""))

	entry := opts.Entry
	if entry == "" {
		entry = "Sys.init"
	}
	pl.emit(asmlang.ASymbol(entryLabel(entry)))
	pl.emit(asmlang.C("", "0", "JMP"))
}

func (pl *programLowerer) emitSetConst(value int, destSymbol string) {
	pl.emit(asmlang.A(value))
	pl.emit(asmlang.C("D", "A", ""))
	pl.emit(asmlang.ASymbol(destSymbol))
	pl.emit(asmlang.C("M", "D", ""))
}

func entryLabel(qname string) string { return qname + "$entry" }
func qualifyLabel(qname, label string) string { return qname + "$" + label }

func (pl *programLowerer) lowerFile(fc FileCommands) error {
	pl.curFile = fc.File
	i := 0
	for i < len(fc.Commands) {
		cmd := fc.Commands[i]
		if cmd.Kind != KindFunctionDefine {
			// Commands before the first Define (shouldn't happen for a
			// well-formed file) are simply skipped; there's no live
			// function context to attribute them to.
			i++
			continue
		}
		// Collect this function's whole command run, [i, j).
		j := i + 1
		for j < len(fc.Commands) && fc.Commands[j].Kind != KindFunctionDefine {
			j++
		}
		if pl.analysis.Live[cmd.Name] {
			if err := pl.lowerFunction(cmd.Name, cmd.LocalsCount, fc.Commands[i:j], i); err != nil {
				return err
			}
		}
		i = j
	}
	return nil
}

func (pl *programLowerer) lowerFunction(name string, locals int, body []Command, baseIdx int) error {
	pl.curFunc = name

	pl.curSirIdx = baseIdx
	pl.emit(asmlang.Label(entryLabel(name)))
	pl.emitLocalsPrologue(locals)

	for offset, cmd := range body[1:] { // body[0] is the Define itself
		pl.curSirIdx = baseIdx + 1 + offset
		if err := pl.lowerCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (pl *programLowerer) emitLocalsPrologue(locals int) {
	if locals == 0 {
		return
	}
	if locals <= 2 {
		for k := 0; k < locals; k++ {
			pl.pushD0()
		}
		return
	}
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("A", "M", ""))
	for k := 0; k < locals; k++ {
		pl.emit(asmlang.C("M", "0", ""))
		if k != locals-1 {
			pl.emit(asmlang.C("A", "A+1", ""))
		}
	}
	pl.emit(asmlang.A(locals))
	pl.emit(asmlang.C("D", "A", ""))
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("M", "D+M", ""))
}

// pushD0 is the inline `push constant 0` sequence, used for the small-L
// locals prologue (spec.md §4.5).
func (pl *programLowerer) pushD0() {
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("M", "M+1", ""))
	pl.emit(asmlang.C("A", "M-1", ""))
	pl.emit(asmlang.C("M", "0", ""))
}

// pushD pushes the current value of D.
func (pl *programLowerer) pushD() {
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("M", "M+1", ""))
	pl.emit(asmlang.C("A", "M-1", ""))
	pl.emit(asmlang.C("M", "D", ""))
}

func (pl *programLowerer) lowerCommand(cmd Command) error {
	switch cmd.Kind {
	case KindBinary:
		return pl.lowerBinaryArith(cmd.BinaryOp)
	case KindUnary:
		pl.lowerUnaryArith(cmd.UnaryOp)
		return nil
	case KindPush:
		return pl.lowerPush(cmd.Segment, cmd.Index)
	case KindPop:
		return pl.lowerPop(cmd.Segment, cmd.Index)
	case KindLabel:
		pl.emit(asmlang.Label(qualifyLabel(pl.curFunc, cmd.Label)))
		return nil
	case KindGoto:
		pl.emit(asmlang.ASymbol(qualifyLabel(pl.curFunc, cmd.Label)))
		pl.emit(asmlang.C("", "0", "JMP"))
		return nil
	case KindIfGoto:
		pl.emit(asmlang.ASymbol(symSP))
		pl.emit(asmlang.C("AM", "M-1", ""))
		pl.emit(asmlang.C("D", "M", ""))
		pl.emit(asmlang.ASymbol(qualifyLabel(pl.curFunc, cmd.Label)))
		pl.emit(asmlang.C("", "D", "JNE"))
		return nil
	case KindCall:
		return pl.lowerCall(cmd.Name, cmd.ArgCount)
	case KindReturn:
		pl.lowerReturn()
		return nil
	default:
		utils.ShouldNotReachHere()
		return nil
	}
}

// ---------------------------------------------------------------------------
// Arithmetic (spec.md §4.5 "Arithmetic")

func (pl *programLowerer) lowerBinaryArith(op BinaryArith) error {
	switch op {
	case ArithAdd, ArithSub, ArithAnd, ArithOr:
		comp := map[BinaryArith]string{ArithAdd: "M+D", ArithSub: "M-D", ArithAnd: "M&D", ArithOr: "M|D"}[op]
		pl.emit(asmlang.ASymbol(symSP))
		pl.emit(asmlang.C("AM", "M-1", ""))
		pl.emit(asmlang.C("D", "M", ""))
		pl.emit(asmlang.C("A", "A-1", ""))
		pl.emit(asmlang.C("M", comp, ""))
		return nil
	case ArithEq, ArithGt, ArithLt:
		jump := map[BinaryArith]string{ArithEq: "JEQ", ArithGt: "JGT", ArithLt: "JLT"}[op]
		pl.lowerComparative(jump)
		return nil
	default:
		utils.ShouldNotReachHere()
		return nil
	}
}

func (pl *programLowerer) lowerUnaryArith(op UnaryArith) {
	comp := "-M"
	if op == ArithNot {
		comp = "!M"
	}
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("A", "M-1", ""))
	pl.emit(asmlang.C("M", comp, ""))
}

// lowerComparative stashes x's address in R7 (spec.md §9: "the x-slot is
// overwritten in-place", and the address must survive the jump to the
// reset label, which clobbers A), computes x-y into D, presets the slot to
// true (-1), then conditionally resets it to false (0) by re-deriving the
// address through R7.
func (pl *programLowerer) lowerComparative(jump string) {
	n := pl.cmpCounter[jump]
	pl.cmpCounter[jump] = n + 1
	label := fmt.Sprintf("$cmp_%s_%d", jump, n)

	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("AM", "M-1", ""))
	pl.emit(asmlang.C("D", "A-1", "")) // D = addr(x)
	pl.emit(asmlang.ASymbol(symR7))
	pl.emit(asmlang.C("M", "D", "")) // R7 = addr(x)
	pl.emit(asmlang.C("A", "D", "")) // A = addr(x)
	pl.emit(asmlang.C("D", "M", "")) // D = x
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("A", "M", "")) // A = addr(y) (SP already decremented once, points at y)
	pl.emit(asmlang.C("D", "M-D", "")) // D = y - x ... fix sign below
	pl.emit(asmlang.C("D", "-D", ""))  // D = x - y
	pl.emit(asmlang.ASymbol(symR7))
	pl.emit(asmlang.C("A", "M", "")) // A = addr(x)
	pl.emit(asmlang.C("M", "-1", "")) // preset true
	pl.emit(asmlang.ASymbol(label))
	pl.emit(asmlang.C("", "D", jump))
	pl.emit(asmlang.ASymbol(symR7))
	pl.emit(asmlang.C("A", "M", "")) // re-derive addr(x), A was clobbered by the label load
	pl.emit(asmlang.C("M", "0", ""))
	pl.emit(asmlang.Label(label))
}

// ---------------------------------------------------------------------------
// Memory (spec.md §4.5 "Memory")

func (pl *programLowerer) lowerPush(seg Segment, index int) error {
	switch seg {
	case SegArgument, SegLocal, SegThis, SegThat:
		base := baseSymbolFor(seg)
		switch index {
		case 0:
			pl.emit(asmlang.ASymbol(base))
			pl.emit(asmlang.C("A", "M", ""))
		case 1:
			pl.emit(asmlang.ASymbol(base))
			pl.emit(asmlang.C("A", "M+1", ""))
		default:
			pl.emit(asmlang.A(index))
			pl.emit(asmlang.C("D", "A", ""))
			pl.emit(asmlang.ASymbol(base))
			pl.emit(asmlang.C("A", "D+M", ""))
		}
		pl.emit(asmlang.C("D", "M", ""))
		pl.pushD()
		return nil

	case SegPointer, SegTemp:
		addr, err := offsetSegmentAddress(seg, index)
		if err != nil {
			return err
		}
		pl.emit(asmlang.A(addr))
		pl.emit(asmlang.C("D", "M", ""))
		pl.pushD()
		return nil

	case SegStatic:
		pl.emit(asmlang.ASymbol(fmt.Sprintf("%s.%d", pl.curFile, index)))
		pl.emit(asmlang.C("D", "M", ""))
		pl.pushD()
		return nil

	case SegConstant:
		switch index {
		case 0:
			pl.emit(asmlang.ASymbol(symSP))
			pl.emit(asmlang.C("M", "M+1", ""))
			pl.emit(asmlang.C("A", "M-1", ""))
			pl.emit(asmlang.C("M", "0", ""))
		case 1:
			pl.emit(asmlang.ASymbol(symSP))
			pl.emit(asmlang.C("M", "M+1", ""))
			pl.emit(asmlang.C("A", "M-1", ""))
			pl.emit(asmlang.C("M", "1", ""))
		default:
			pl.emit(asmlang.A(index))
			pl.emit(asmlang.C("D", "A", ""))
			pl.pushD()
		}
		return nil

	default:
		utils.ShouldNotReachHere()
		return nil
	}
}

func (pl *programLowerer) lowerPop(seg Segment, index int) error {
	switch seg {
	case SegArgument, SegLocal, SegThis, SegThat:
		base := baseSymbolFor(seg)
		if index == 0 {
			pl.emit(asmlang.ASymbol(symSP))
			pl.emit(asmlang.C("AM", "M-1", ""))
			pl.emit(asmlang.C("D", "M", ""))
			pl.emit(asmlang.ASymbol(base))
			pl.emit(asmlang.C("A", "M", ""))
			pl.emit(asmlang.C("M", "D", ""))
			return nil
		}
		pl.emit(asmlang.A(index))
		pl.emit(asmlang.C("D", "A", ""))
		pl.emit(asmlang.ASymbol(base))
		pl.emit(asmlang.C("D", "D+M", ""))
		pl.emit(asmlang.ASymbol(symR7))
		pl.emit(asmlang.C("M", "D", ""))
		pl.emit(asmlang.ASymbol(symSP))
		pl.emit(asmlang.C("AM", "M-1", ""))
		pl.emit(asmlang.C("D", "M", ""))
		pl.emit(asmlang.ASymbol(symR7))
		pl.emit(asmlang.C("A", "M", ""))
		pl.emit(asmlang.C("M", "D", ""))
		return nil

	case SegPointer, SegTemp:
		addr, err := offsetSegmentAddress(seg, index)
		if err != nil {
			return err
		}
		pl.emit(asmlang.ASymbol(symSP))
		pl.emit(asmlang.C("AM", "M-1", ""))
		pl.emit(asmlang.C("D", "M", ""))
		pl.emit(asmlang.A(addr))
		pl.emit(asmlang.C("M", "D", ""))
		return nil

	case SegStatic:
		pl.emit(asmlang.ASymbol(symSP))
		pl.emit(asmlang.C("AM", "M-1", ""))
		pl.emit(asmlang.C("D", "M", ""))
		pl.emit(asmlang.ASymbol(fmt.Sprintf("%s.%d", pl.curFile, index)))
		pl.emit(asmlang.C("M", "D", ""))
		return nil

	case SegConstant:
		pl.emit(asmlang.ASymbol(symSP))
		pl.emit(asmlang.C("M", "M-1", ""))
		return nil

	default:
		utils.ShouldNotReachHere()
		return nil
	}
}

// offsetSegmentAddress maps {pointer,temp}[i] to a fixed RAM address.
// Pointer overlays THIS/THAT (3,4) directly; temp occupies 5,6. Only i in
// {0,1} is representable (spec.md §7).
func offsetSegmentAddress(seg Segment, index int) (int, error) {
	if index != 0 && index != 1 {
		return 0, &AssemblyError{Reason: fmt.Sprintf("offset-segment index %d out of range (0 or 1 only)", index)}
	}
	base := 3
	if seg == SegTemp {
		base = 5
	}
	return base + index, nil
}

// ---------------------------------------------------------------------------
// Calls (spec.md §4.5 "Calling convention" / "Return")

func (pl *programLowerer) lowerCall(name string, argCount int) error {
	saves := pl.analysis.PointersToSave[name]
	overhead := len(saves) + 1 + argCount

	pl.callCounter++
	retLabel := fmt.Sprintf("%s$ret_%d", pl.curFunc, pl.callCounter)

	pl.emit(asmlang.ASymbol(retLabel))
	pl.emit(asmlang.C("D", "A", ""))
	pl.emit(asmlang.ASymbol(symR8))
	pl.emit(asmlang.C("M", "D", ""))
	pl.emit(asmlang.ASymbol(symR8))
	pl.emit(asmlang.C("D", "M", ""))
	pl.pushD()

	for _, seg := range saves {
		pl.emit(asmlang.ASymbol(baseSymbolFor(seg)))
		pl.emit(asmlang.C("D", "M", ""))
		pl.pushD()
	}

	pl.emit(asmlang.A(overhead))
	pl.emit(asmlang.C("D", "A", ""))
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("D", "M-D", ""))
	pl.emit(asmlang.ASymbol(symARG))
	pl.emit(asmlang.C("M", "D", ""))

	for _, seg := range saves {
		if seg == SegLocal {
			pl.emit(asmlang.ASymbol(symSP))
			pl.emit(asmlang.C("D", "M", ""))
			pl.emit(asmlang.ASymbol(symLCL))
			pl.emit(asmlang.C("M", "D", ""))
		}
	}

	pl.emit(asmlang.ASymbol(entryLabel(name)))
	pl.emit(asmlang.C("", "0", "JMP"))
	pl.emit(asmlang.Label(retLabel))
	return nil
}

func (pl *programLowerer) lowerReturn() {
	// Stash the return value in R7; it's the last thing restored before
	// the jump back, so it survives every frame-teardown step below.
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("AM", "M-1", ""))
	pl.emit(asmlang.C("D", "M", ""))
	pl.emit(asmlang.ASymbol(symR7))
	pl.emit(asmlang.C("M", "D", ""))

	// SP = LCL, discarding this frame's local variables. LCL was set to
	// the post-call SP before the locals prologue pushed curLocals words,
	// so LCL already sits right below them — no further subtraction.
	pl.emit(asmlang.ASymbol(symLCL))
	pl.emit(asmlang.C("D", "M", ""))
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("M", "D", ""))

	saves := pl.analysis.PointersToSave[pl.curFunc]
	for i := len(saves) - 1; i >= 0; i-- {
		pl.emit(asmlang.ASymbol(symSP))
		pl.emit(asmlang.C("AM", "M-1", ""))
		pl.emit(asmlang.C("D", "M", ""))
		pl.emit(asmlang.ASymbol(baseSymbolFor(saves[i])))
		pl.emit(asmlang.C("M", "D", ""))
	}

	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("AM", "M-1", ""))
	pl.emit(asmlang.C("D", "M", ""))
	pl.emit(asmlang.ASymbol(symR8))
	pl.emit(asmlang.C("M", "D", ""))

	n := pl.argCounts[pl.curFunc]
	if n != 0 {
		pl.emit(asmlang.A(n))
		pl.emit(asmlang.C("D", "A", ""))
		pl.emit(asmlang.ASymbol(symSP))
		pl.emit(asmlang.C("M", "M-D", ""))
	}
	pl.emit(asmlang.ASymbol(symSP))
	pl.emit(asmlang.C("M", "M+1", ""))

	pl.emit(asmlang.ASymbol(symR7))
	pl.emit(asmlang.C("D", "M", ""))
	pl.pushD()

	pl.emit(asmlang.ASymbol(symR8))
	pl.emit(asmlang.C("", "0", "JMP"))
}
