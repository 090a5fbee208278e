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
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hljack/compile"
	"hljack/glyph"
)

var (
	dumpAST  bool
	dumpSIR  bool
	fontPath string
)

var compileCmd = &cobra.Command{
	Use:   "compile <src-dir> <dest>",
	Short: "compile a directory of HL source modules into machine code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		srcDir, dest := args[0], args[1]

		stdlib, user, err := loadModules(srcDir)
		if err != nil {
			return err
		}
		logrus.WithField("stage", "driver").Debugf("%d stdlib modules, %d user modules", len(stdlib), len(user))

		opts := compile.Options{}
		if fontPath != "" {
			data, err := os.ReadFile(fontPath)
			if err != nil {
				return fmt.Errorf("read font %s: %w", fontPath, err)
			}
			font, err := glyph.ParsePSF(data)
			if err != nil {
				return fmt.Errorf("parse font %s: %w", fontPath, err)
			}
			opts.Font = font
		}

		result, err := compile.Compile(stdlib, user, opts)
		if err != nil {
			return fmt.Errorf("compile: %w", err)
		}

		if dumpAST {
			spew.Dump(result.ParserMaps)
		}
		if dumpSIR {
			spew.Dump(result.Lowering)
		}

		if err := os.WriteFile(dest, result.MachineCode, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		return nil
	},
}

// loadModules reads every ".hl" file under root: files under a top-level
// "stdlib" subdirectory compile first (spec.md §4.8's ordering rule), every
// other ".hl" file is a user module.
func loadModules(root string) (stdlib, user map[string]string, err error) {
	stdlib = map[string]string{}
	user = map[string]string{}

	stdlibDir := filepath.Join(root, "stdlib")
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || filepath.Ext(path) != ".hl" {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		if strings.HasPrefix(path, stdlibDir+string(filepath.Separator)) {
			stdlib[rel] = string(data)
		} else {
			user[rel] = string(data)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", root, walkErr)
	}
	return stdlib, user, nil
}

func init() {
	compileCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "dump each module's parsed AST sourcemap")
	compileCmd.Flags().BoolVar(&dumpSIR, "dump-sir", false, "dump the combined lowering sourcemap")
	compileCmd.Flags().StringVar(&fontPath, "font", "", "PSF1 bitmap font to embed as a GLYPHS-loading block")
}
