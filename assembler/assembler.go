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

// Package assembler is the two-pass assembler turning a combined ASM
// instruction stream into 16-bit machine words (spec.md §4.6).
package assembler

import (
	"encoding/binary"
	"fmt"

	"hljack/asmlang"
	"hljack/sourcemap"
	"hljack/utils"
)

// AssemblyError covers the three ways pass 2 can fail (spec.md §7): an
// unresolved symbol that overruns the static-variable budget, a negative
// or overflowing numeric A-value, or an unrecognized comp/dest/jump
// mnemonic (the last shouldn't happen for ASM built by this module's own
// SIR lowerer, but can for hand-written or malformed ASM text input).
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string { return "assembly error: " + e.Reason }

// staticBase is the first RAM address handed to a static variable;
// staticMax is the last one this target can afford (spec.md §4.6).
const (
	staticBase = 16
	staticMax  = 255
)

func predefinedSymbols() map[string]int {
	sym := map[string]int{
		"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
		"SCREEN": 18432, "KBD": 26624, "GLYPHS": 26625,
	}
	for i := 0; i <= 15; i++ {
		sym[fmt.Sprintf("R%d", i)] = i
	}
	return sym
}

// Assemble runs the two-pass algorithm over insts — the combined
// whole-program ASM stream SIR lowering produced — returning one encoded
// word per real (non-label) instruction. wm, when non-nil, records each
// word's originating index into insts (the sourcemap's word table); pass
// it nil to assemble hand-written ASM with no sourcemap to extend.
func Assemble(insts []asmlang.Instruction, wm *sourcemap.WordMap) ([]uint16, error) {
	labels, err := resolveLabels(insts)
	if err != nil {
		return nil, err
	}

	predefined := predefinedSymbols()
	statics := map[string]int{}
	nextStatic := staticBase

	words := make([]uint16, 0, len(insts))
	for idx, inst := range insts {
		if inst.Kind == asmlang.KindLabel {
			continue
		}

		word, err := encodeInstruction(inst, predefined, labels, statics, &nextStatic)
		if err != nil {
			return nil, err
		}
		if wm != nil {
			wm.Record(idx)
		}
		words = append(words, word)
	}
	return words, nil
}

// resolveLabels is pass 1: walk the stream counting only real
// instructions, binding each label declaration to the position of the
// next one.
func resolveLabels(insts []asmlang.Instruction) (map[string]int, error) {
	labels := map[string]int{}
	counter := 0
	for _, inst := range insts {
		if inst.Kind == asmlang.KindLabel {
			if _, dup := labels[inst.Label]; dup {
				return nil, &AssemblyError{Reason: fmt.Sprintf("label %q declared more than once", inst.Label)}
			}
			labels[inst.Label] = counter
			continue
		}
		counter++
	}
	return labels, nil
}

func encodeInstruction(inst asmlang.Instruction, predefined, labels, statics map[string]int, nextStatic *int) (uint16, error) {
	switch inst.Kind {
	case asmlang.KindA:
		return encodeA(inst, predefined, labels, statics, nextStatic)
	case asmlang.KindC:
		return encodeC(inst)
	default:
		// The caller already filters out KindLabel; KindA/KindC are the
		// only other Kind values asmlang's parser or constructors produce.
		utils.ShouldNotReachHere()
		return 0, nil
	}
}

func encodeA(inst asmlang.Instruction, predefined, labels, statics map[string]int, nextStatic *int) (uint16, error) {
	value := inst.Value
	if inst.HasSymbol {
		switch {
		case contains(predefined, inst.Symbol):
			value = predefined[inst.Symbol]
		case contains(labels, inst.Symbol):
			value = labels[inst.Symbol]
		case contains(statics, inst.Symbol):
			value = statics[inst.Symbol]
		default:
			if *nextStatic > staticMax {
				return 0, &AssemblyError{Reason: fmt.Sprintf("static-variable budget exhausted allocating %q", inst.Symbol)}
			}
			statics[inst.Symbol] = *nextStatic
			value = *nextStatic
			*nextStatic++
		}
	}
	if value < 0 || value > 0x7FFF {
		return 0, &AssemblyError{Reason: fmt.Sprintf("A-instruction value %d doesn't fit in 15 bits", value)}
	}
	return uint16(value), nil
}

func encodeC(inst asmlang.Instruction) (uint16, error) {
	comp, ok := asmlang.CompCode(inst.Comp)
	if !ok {
		return 0, &AssemblyError{Reason: fmt.Sprintf("unrecognized comp expression %q", inst.Comp)}
	}
	dest, ok := asmlang.DestCode(inst.Dest)
	if !ok {
		return 0, &AssemblyError{Reason: fmt.Sprintf("unrecognized dest mnemonic %q", inst.Dest)}
	}
	jump, ok := asmlang.JumpCode(inst.Jump)
	if !ok {
		return 0, &AssemblyError{Reason: fmt.Sprintf("unrecognized jump mnemonic %q", inst.Jump)}
	}
	return uint16(0b111<<13 | comp<<6 | dest<<3 | jump), nil
}

func contains(m map[string]int, k string) bool { _, ok := m[k]; return ok }

// Encode serializes words as a sequence of 16-bit little-endian machine
// words (spec.md §6), the core's one binary output format.
func Encode(words []uint16) []byte {
	buf := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(buf[2*i:], w)
	}
	return buf
}
