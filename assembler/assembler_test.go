package assembler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"hljack/asmlang"
	"hljack/sourcemap"
)

func TestAssembleProducesOneWordPerRealInstruction(t *testing.T) {
	insts := []asmlang.Instruction{
		asmlang.A(16),
		asmlang.Label("LOOP"),
		asmlang.C("D", "M", ""),
		asmlang.ASymbol("LOOP"),
		asmlang.C("", "0", "JMP"),
	}
	words, err := Assemble(insts, nil)
	require.NoError(t, err)
	require.Len(t, words, 4)
}

func TestAssembleScreenSymbolResolvesToFixedAddress(t *testing.T) {
	words, err := Assemble([]asmlang.Instruction{asmlang.ASymbol("SCREEN")}, nil)
	require.NoError(t, err)
	require.Equal(t, []uint16{18432}, words)
}

func TestAssemblePredefinedRegisterSymbols(t *testing.T) {
	words, err := Assemble([]asmlang.Instruction{
		asmlang.ASymbol("SP"), asmlang.ASymbol("LCL"), asmlang.ASymbol("ARG"),
		asmlang.ASymbol("THIS"), asmlang.ASymbol("THAT"), asmlang.ASymbol("R7"),
		asmlang.ASymbol("KBD"), asmlang.ASymbol("GLYPHS"),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []uint16{0, 1, 2, 3, 4, 7, 26624, 26625}, words)
}

func TestAssembleLabelResolvesToInstructionCounterNotLineNumber(t *testing.T) {
	insts := []asmlang.Instruction{
		asmlang.C("D", "M", ""),
		asmlang.Label("HERE"),
		asmlang.C("", "0", "JMP"),
		asmlang.ASymbol("HERE"),
	}
	words, err := Assemble(insts, nil)
	require.NoError(t, err)
	require.Equal(t, uint16(1), words[2]) // HERE binds to the instruction after it, index 1
}

func TestAssembleStaticVariablesAreContiguousFromSixteen(t *testing.T) {
	insts := []asmlang.Instruction{
		asmlang.ASymbol("foo"),
		asmlang.ASymbol("bar"),
		asmlang.ASymbol("foo"), // repeated reference reuses the same slot
	}
	words, err := Assemble(insts, nil)
	require.NoError(t, err)
	require.Equal(t, []uint16{16, 17, 16}, words)
}

func TestAssembleRejectsNegativeAValue(t *testing.T) {
	_, err := Assemble([]asmlang.Instruction{asmlang.A(-1)}, nil)
	require.Error(t, err)
}

func TestAssembleAcceptsMaxConstantRejectsOverflow(t *testing.T) {
	_, err := Assemble([]asmlang.Instruction{asmlang.A(32767)}, nil)
	require.NoError(t, err)

	_, err = Assemble([]asmlang.Instruction{asmlang.A(32768)}, nil)
	require.Error(t, err)
}

func TestAssembleRejectsStaticOverflowPastBudget(t *testing.T) {
	insts := make([]asmlang.Instruction, 0, 241)
	for i := 0; i < 241; i++ { // 255 - 16 + 1 + 1 overflow = 241 distinct statics
		insts = append(insts, asmlang.ASymbol(fmt.Sprintf("v%d", i)))
	}
	_, err := Assemble(insts, nil)
	require.Error(t, err)
}

func TestAssembleEncodesFixedCBitPatterns(t *testing.T) {
	words, err := Assemble([]asmlang.Instruction{
		asmlang.C("", "M+1", "JGT"),
		asmlang.C("D", "M", ""),
		asmlang.C("", "0", "JMP"),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, uint16(0b1111110111000001), words[0])
	require.Equal(t, uint16(0b1111110000010000), words[1])
	require.Equal(t, uint16(0b1110101010000111), words[2])
}

func TestAssembleRecordsWordMap(t *testing.T) {
	wm := sourcemap.NewWordMap()
	insts := []asmlang.Instruction{
		asmlang.A(1),
		asmlang.Label("L"),
		asmlang.C("D", "A", ""),
	}
	_, err := Assemble(insts, wm)
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, wm.InstructionByWord)
}

func TestEncodeProducesLittleEndianBytes(t *testing.T) {
	buf := Encode([]uint16{0x1234, 0x0001})
	require.Equal(t, []byte{0x34, 0x12, 0x01, 0x00}, buf)
}
