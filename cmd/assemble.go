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

package cmd

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hljack/asmlang"
	"hljack/assembler"
	"hljack/sourcemap"
)

var dumpAsm bool

var assembleCmd = &cobra.Command{
	Use:   "assemble <src> <dest>",
	Short: "assemble an ASM source file into machine code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dest := args[0], args[1]

		text, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}

		insts, err := asmlang.Parse(string(text))
		if err != nil {
			return fmt.Errorf("parse %s: %w", src, err)
		}
		if dumpAsm {
			spew.Dump(insts)
		}

		wm := sourcemap.NewWordMap()
		words, err := assembler.Assemble(insts, wm)
		if err != nil {
			return fmt.Errorf("assemble %s: %w", src, err)
		}

		logrus.WithField("stage", "assembler").Debugf("%s: %d instructions -> %d words", src, len(insts), len(words))

		if err := os.WriteFile(dest, assembler.Encode(words), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		return nil
	},
}

func init() {
	assembleCmd.Flags().BoolVar(&dumpAsm, "dump-asm", false, "dump the parsed ASM instruction stream")
}
