package glyph

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"hljack/asmlang"
)

// buildPSF assembles a minimal, well-formed PSF1 blob with glyphCount
// glyphs of glyphHeight rows, where codepointOf[i] (if present) is the
// sole individual codepoint mapped to glyph i.
func buildPSF(t *testing.T, glyphHeight int, glyphCount int, bitmaps map[int][9]byte, codepointOf map[int]uint16) []byte {
	t.Helper()
	buf := []byte{magic0, magic1, hasUnicodeTableMask, byte(glyphHeight)}
	for i := 0; i < glyphCount; i++ {
		bmp := bitmaps[i]
		buf = append(buf, bmp[:glyphHeight]...)
	}
	for i := 0; i < glyphCount; i++ {
		if cp, ok := codepointOf[i]; ok {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], cp)
			buf = append(buf, b[:]...)
		}
		buf = append(buf, 0xFF, 0xFF) // terminator (0xFFFF, little-endian)
	}
	return buf
}

func TestParsePSFExtractsMappedGlyph(t *testing.T) {
	bitmaps := map[int][9]byte{
		65: {0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x00},
	}
	codepoints := map[int]uint16{65: 'A'}
	data := buildPSF(t, 9, 256, bitmaps, codepoints)

	font, err := ParsePSF(data)
	require.NoError(t, err)
	require.Equal(t, bitmaps[65], font['A'])
	require.Len(t, font, 1)
}

func TestParsePSFRejectsBadMagic(t *testing.T) {
	data := buildPSF(t, 9, 256, nil, nil)
	data[0] = 0x00
	_, err := ParsePSF(data)
	require.Error(t, err)
}

func TestParsePSFRejectsMissingUnicodeTable(t *testing.T) {
	data := buildPSF(t, 9, 256, nil, nil)
	data[2] = 0x00 // clear hasUnicodeTableMask
	_, err := ParsePSF(data)
	require.Error(t, err)
}

func TestParsePSFDropsCodepointsAboveASCII(t *testing.T) {
	bitmaps := map[int][9]byte{10: {1, 2, 3, 4, 5, 6, 7, 8, 9}}
	codepoints := map[int]uint16{10: 0x00A9} // copyright sign, outside [0,128)
	data := buildPSF(t, 9, 256, bitmaps, codepoints)

	font, err := ParsePSF(data)
	require.NoError(t, err)
	require.Empty(t, font)
}

func TestEmitLoadBlockStartsWithGlyphsPointerPrelude(t *testing.T) {
	font := Font{'A': [9]byte{0, 0, 0, 0, 0, 0, 0, 0, 0}}
	insts := EmitLoadBlock(font)
	require.Equal(t, []asmlang.Instruction{
		asmlang.ASymbol("GLYPHS"),
		asmlang.C("D", "A-1", ""),
		asmlang.ASymbol("R7"),
		asmlang.C("M", "D", ""),
	}, insts[:4])
}

func TestEmitLoadBlockUsesFastPathForAluConstantWords(t *testing.T) {
	// An all-zero bitmap packs to four words: 0, 0, 0, 0.
	insts := EmitLoadBlock(Font{'A': [9]byte{}})
	require.Equal(t, []asmlang.Instruction{
		asmlang.ASymbol("R7"), asmlang.C("AM", "M+1", ""), asmlang.C("M", "0", ""),
	}, insts[4:7])
}

func TestEmitLoadBlockEmitsFourWordsPerGlyphAtMinimum(t *testing.T) {
	insts := EmitLoadBlock(Font{'A': [9]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0}})
	// Four prelude instructions, then at least 3 instructions per word
	// (load-and-increment + a write), times four words.
	require.GreaterOrEqual(t, len(insts), 4+4*3)
}

func TestEmitLoadBlockOrdersGlyphsByCodepoint(t *testing.T) {
	font := Font{
		'B': {1, 0, 0, 0, 0, 0, 0, 0, 0},
		'A': {2, 0, 0, 0, 0, 0, 0, 0, 0},
	}
	insts := EmitLoadBlock(font)
	// 'A' (0x41) sorts before 'B' (0x42): its word-packing (0x0200 = 512)
	// appears before 'B's (0x0100 = 256) in the emitted stream.
	foundA, foundB := -1, -1
	for i, inst := range insts {
		if inst.Kind == asmlang.KindA && !inst.HasSymbol {
			if inst.Value == 512 && foundA == -1 {
				foundA = i
			}
			if inst.Value == 256 && foundB == -1 {
				foundB = i
			}
		}
	}
	require.NotEqual(t, -1, foundA)
	require.NotEqual(t, -1, foundB)
	require.Less(t, foundA, foundB)
}
