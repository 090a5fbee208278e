package callgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hljack/sir"
)

func TestLiveFollowsCallsTransitively(t *testing.T) {
	funcs := map[string][]sir.Command{
		"Sys.init": {
			sir.Call("Main.main", 0),
			sir.Return(),
		},
		"Main.main": {
			sir.Call("Main.helper", 0),
			sir.Pop(sir.SegConstant, 0),
			sir.Push(sir.SegConstant, 0),
			sir.Return(),
		},
		"Main.helper": {
			sir.Push(sir.SegConstant, 1),
			sir.Return(),
		},
		"Main.dead": {
			sir.Push(sir.SegConstant, 2),
			sir.Return(),
		},
	}
	res := Analyze(funcs, "Sys.init")
	require.True(t, res.Live["Sys.init"])
	require.True(t, res.Live["Main.main"])
	require.True(t, res.Live["Main.helper"])
	require.False(t, res.Live["Main.dead"])
}

func TestLiveIncludesExternalRoutinesAsLeaves(t *testing.T) {
	funcs := map[string][]sir.Command{
		"Sys.init": {
			sir.Call("Math.multiply", 2),
			sir.Return(),
		},
	}
	res := Analyze(funcs, "Sys.init")
	require.True(t, res.Live["Math.multiply"])
	require.Nil(t, res.PointersToSave["Math.multiply"]) // not a defined subroutine in this program
}

func TestEveryLiveSubroutineSavesArgAndLcl(t *testing.T) {
	funcs := map[string][]sir.Command{
		"Sys.init": {
			sir.Call("Main.noop", 0),
			sir.Return(),
		},
		"Main.noop": {
			sir.Push(sir.SegConstant, 0),
			sir.Return(),
		},
	}
	res := Analyze(funcs, "Sys.init")
	require.ElementsMatch(t, []sir.Segment{sir.SegLocal, sir.SegArgument}, res.PointersToSave["Main.noop"])
}

func TestConstructorPrologueAddsThisToPointerSaveSet(t *testing.T) {
	funcs := map[string][]sir.Command{
		"Sys.init": {
			sir.Call("Point.new", 2),
			sir.Return(),
		},
		"Point.new": {
			sir.Push(sir.SegConstant, 2),
			sir.Call("Memory.alloc", 1),
			sir.Pop(sir.SegPointer, 0),
			sir.Return(),
		},
	}
	res := Analyze(funcs, "Sys.init")
	require.ElementsMatch(t,
		[]sir.Segment{sir.SegLocal, sir.SegArgument, sir.SegThis},
		res.PointersToSave["Point.new"])
}

func TestThatWritePropagatesTransitivelyThroughCalls(t *testing.T) {
	funcs := map[string][]sir.Command{
		"Sys.init": {
			sir.Call("Main.make", 0),
			sir.Return(),
		},
		"Main.make": {
			sir.Call("Array.writeFirst", 1),
			sir.Return(),
		},
		"Array.writeFirst": {
			sir.Push(sir.SegArgument, 0),
			sir.Push(sir.SegConstant, 0),
			sir.Add(),
			sir.Pop(sir.SegPointer, 1),
			sir.Push(sir.SegConstant, 0),
			sir.Pop(sir.SegThat, 0),
			sir.Return(),
		},
	}
	res := Analyze(funcs, "Sys.init")
	require.Contains(t, res.PointersToSave["Array.writeFirst"], sir.SegThat)
	require.Contains(t, res.PointersToSave["Main.make"], sir.SegThat)
}
