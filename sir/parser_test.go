package sir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoundTripsBasicProgram(t *testing.T) {
	src := `
// a comment
function Main.main 1
push constant 7
pop local 0
push local 0
push constant 3
add
if-goto skip
goto end
label skip
push constant 1
neg
label end
return
`
	cmds, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, cmds, 13)
	require.Equal(t, FunctionDefine("Main.main", 1), cmds[0])
	require.Equal(t, Push(SegConstant, 7), cmds[1])
	require.Equal(t, Pop(SegLocal, 0), cmds[2])
	require.Equal(t, Add(), cmds[5])
	require.Equal(t, IfGoto("skip"), cmds[6])
	require.Equal(t, Goto("end"), cmds[7])
	require.Equal(t, Label("skip"), cmds[8])
	require.Equal(t, Neg(), cmds[10])
	require.Equal(t, Return(), cmds[12])
}

func TestParseRejectsUnknownSegment(t *testing.T) {
	_, err := Parse("push frobnicate 0")
	require.Error(t, err)
}

func TestParseRejectsUnknownCommand(t *testing.T) {
	_, err := Parse("frobnicate")
	require.Error(t, err)
}

func TestParseSkipsBlankAndCommentLines(t *testing.T) {
	cmds, err := Parse("\n// just a comment\n\nreturn\n")
	require.NoError(t, err)
	require.Equal(t, []Command{Return()}, cmds)
}
