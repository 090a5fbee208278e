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

// Package callgraph computes the two whole-program analyses ASM lowering
// needs before it can emit a single instruction (spec.md §4.4): which
// subroutines are reachable from Sys.init (subroutines outside that set
// are never emitted), and, per reachable subroutine, which of the four
// frame pointers {LCL, ARG, THIS, THAT} a call to it may clobber — the set
// its caller must save before the call and restore after.
package callgraph

import (
	"sort"

	"hljack/sir"
	"hljack/utils"
)

// SaveOrder is the canonical push order a call site saves pointers in
// (spec.md §4.5 step 3); restoring on return walks it in reverse.
var SaveOrder = []sir.Segment{sir.SegLocal, sir.SegArgument, sir.SegThis, sir.SegThat}

func segmentBit(seg sir.Segment) int {
	switch seg {
	case sir.SegLocal:
		return 0
	case sir.SegArgument:
		return 1
	case sir.SegThis:
		return 2
	case sir.SegThat:
		return 3
	default:
		utils.ShouldNotReachHere()
		return -1
	}
}

// Result is the call-graph analyzer's output (spec.md §4.4).
type Result struct {
	Live           map[string]bool
	PointersToSave map[string][]sir.Segment
}

type graph struct {
	names   []string
	index   map[string]int
	callees [][]string
	direct  []*utils.BitMap // 4 bits: LCL, ARG, THIS, THAT
}

func build(funcs map[string][]sir.Command) *graph {
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	g := &graph{
		names:   names,
		index:   make(map[string]int, len(names)),
		callees: make([][]string, len(names)),
		direct:  make([]*utils.BitMap, len(names)),
	}
	for i, name := range names {
		g.index[name] = i
	}
	for i, name := range names {
		bm := utils.NewBitMap(4)
		// Every call sets up a fresh ARG and (when asked to) LCL for the
		// callee's frame, so invoking any subroutine always clobbers both
		// (spec.md §4.4: "writes ARG and LCL on entry").
		bm.Set(segmentBit(sir.SegLocal))
		bm.Set(segmentBit(sir.SegArgument))
		for _, cmd := range funcs[name] {
			switch cmd.Kind {
			case sir.KindCall:
				g.callees[i] = append(g.callees[i], cmd.Name)
			case sir.KindPop:
				switch cmd.Segment {
				case sir.SegPointer:
					// pop pointer 0 binds THIS (method/constructor
					// prologue); pop pointer 1 binds THAT (array writes).
					if cmd.Index == 0 {
						bm.Set(segmentBit(sir.SegThis))
					} else if cmd.Index == 1 {
						bm.Set(segmentBit(sir.SegThat))
					}
				}
			}
		}
		g.direct[i] = bm
	}
	return g
}

// Analyze runs liveness from entry (normally "Sys.init") and computes the
// transitive pointer-write set of every live subroutine (spec.md §4.4).
func Analyze(funcs map[string][]sir.Command, entry string) *Result {
	g := build(funcs)

	live := utils.NewSet[string]()
	worklist := []string{entry}
	live.Add(entry)
	for len(worklist) > 0 {
		name := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		idx, ok := g.index[name]
		if !ok {
			continue // externally defined routine: live, nothing to recurse into
		}
		for _, callee := range g.callees[idx] {
			if live.Add(callee) {
				worklist = append(worklist, callee)
			}
		}
	}

	transitive := make([]*utils.BitMap, len(g.names))
	for i, bm := range g.direct {
		transitive[i] = bm.Copy()
	}
	changed := true
	for changed {
		changed = false
		for i := range g.names {
			for _, callee := range g.callees[i] {
				ci, ok := g.index[callee]
				if !ok {
					continue
				}
				if transitive[i].Unite(transitive[ci]) {
					changed = true
				}
			}
		}
	}

	liveMap := make(map[string]bool, live.Length())
	live.ForEach(func(name string) { liveMap[name] = true })

	toSave := make(map[string][]sir.Segment, len(g.names))
	for i, name := range g.names {
		if !liveMap[name] {
			continue
		}
		var segs []sir.Segment
		for _, seg := range SaveOrder {
			if transitive[i].IsSet(segmentBit(seg)) {
				segs = append(segs, seg)
			}
		}
		toSave[name] = segs
	}

	return &Result{Live: liveMap, PointersToSave: toSave}
}
