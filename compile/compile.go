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

// Package compile is the top-level driver (spec.md §4.8): it orchestrates
// every stage — HL parsing, SIR lowering, call-graph analysis, ASM
// lowering, assembly — over a whole program and returns the finished
// machine code plus its sourcemaps. The driver is the only layer that
// knows about multiple files; every stage below it operates on one file,
// or on the whole program's already-combined SIR.
package compile

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"hljack/asmlang"
	"hljack/assembler"
	"hljack/callgraph"
	"hljack/glyph"
	"hljack/hl"
	"hljack/sir"
	"hljack/sourcemap"
)

// entryPoint is the subroutine the assembled program's boot sequence
// jumps to once the runtime is initialized (spec.md §4.5).
const entryPoint = "Sys.init"

// glyphLoaderRoutine is the one subroutine whose liveness decides whether
// the glyph-loading ASM block is worth the ROM it costs.
const glyphLoaderRoutine = "Output.getGlyph"

// Options parameterizes a compile (spec.md §4.8's "external collaborator"
// inputs beyond the module sources themselves).
type Options struct {
	// Font, when non-nil, is emitted as a GLYPHS-loading ASM block ahead
	// of Sys.init — but only if the program actually calls
	// Output.getGlyph; a program with no on-screen text pays nothing for
	// a font it never draws.
	Font glyph.Font
}

// Result is what a successful compile hands back (spec.md §4.8): the
// finished machine code and every sourcemap table needed to debug it.
type Result struct {
	MachineCode []byte

	// ParserMaps is keyed per file, since HL node ids are only unique
	// within the parse that produced them (spec.md §5) — unlike the
	// lowering and ASM tables, which are already file-keyed by
	// construction (the word table covers the single combined
	// instruction stream). The shared Sourcemap type doesn't key this one by
	// file, so the driver carries the per-file maps here instead of
	// cramming them into a single Sourcemap.Parser that would silently
	// collide node ids across files.
	ParserMaps map[string]*sourcemap.ParserMap
	Lowering   *sourcemap.LoweringMap
	Asm        *sourcemap.AsmMap
	Word       *sourcemap.WordMap

	Live map[string]bool
}

// Compile runs every stage over stdlib and user, in that order (spec.md
// §4.8: stdlib compiles first so user-module static addresses don't shift
// under unrelated stdlib edits), and returns the combined result.
func Compile(stdlib, user map[string]string, opts Options) (*Result, error) {
	sm := sourcemap.New()
	parserMaps := map[string]*sourcemap.ParserMap{}

	var fileCommands []sir.FileCommands
	funcs := map[string][]sir.Command{}

	for _, group := range []struct {
		label   string
		sources map[string]string
	}{
		{"stdlib", stdlib},
		{"user", user},
	} {
		for _, file := range sortedKeys(group.sources) {
			logrus.Debugf("compile: parsing %s module %s", group.label, file)
			src := group.sources[file]

			cls, pm, err := hl.Parse(src)
			if err != nil {
				return nil, fmt.Errorf("%s: parse: %w", file, err)
			}
			parserMaps[file] = pm

			logrus.Debugf("compile: lowering %s to SIR", file)
			classResult, err := hl.LowerClass(cls, file, sm.Lowering)
			if err != nil {
				return nil, fmt.Errorf("%s: lower: %w", file, err)
			}

			fileCommands = append(fileCommands, sir.FileCommands{File: file, Commands: classResult.Commands})
			for name, body := range sir.GroupByFunction(classResult.Commands) {
				funcs[name] = body
			}
		}
	}

	logrus.Debug("compile: running call-graph analysis")
	analysis := callgraph.Analyze(funcs, entryPoint)

	var glyphBlock []asmlang.Instruction
	if opts.Font != nil && analysis.Live[glyphLoaderRoutine] {
		logrus.Debugf("compile: %s is live, emitting glyph load block", glyphLoaderRoutine)
		glyphBlock = glyph.EmitLoadBlock(opts.Font)
	}

	logrus.Debug("compile: lowering SIR to ASM")
	insts, err := sir.LowerProgram(fileCommands, sir.ProgramOptions{
		Entry:      entryPoint,
		Analysis:   analysis,
		GlyphBlock: glyphBlock,
	}, sm.Asm)
	if err != nil {
		return nil, fmt.Errorf("asm lowering: %w", err)
	}

	// A size-reducing pass over insts (peephole-merging redundant A-loads,
	// the way some Hack toolchains do) would slot in here, between ASM
	// lowering and assembly. No such pass exists yet.

	logrus.Debugf("compile: assembling %d instructions", len(insts))
	words, err := assembler.Assemble(insts, sm.Word)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	return &Result{
		MachineCode: assembler.Encode(words),
		ParserMaps:  parserMaps,
		Lowering:    sm.Lowering,
		Asm:         sm.Asm,
		Word:        sm.Word,
		Live:        analysis.Live,
	}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
