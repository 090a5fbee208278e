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
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hljack/compile"
)

var debugSrcDir string

// debugDump is the JSON shape handed to the (out-of-core) debugging UI:
// every sourcemap table the driver produced, keyed the way compile.Result
// keeps them.
type debugDump struct {
	ParserMaps map[string]interface{} `json:"parserMaps"`
	Lowering   interface{}            `json:"lowering"`
	Asm        interface{}            `json:"asm"`
	Word       interface{}            `json:"word"`
	Live       map[string]bool        `json:"live"`
}

var debugCompileCmd = &cobra.Command{
	Use:   "debug-compile <dest> <debug-json>",
	Short: "compile the module in --src and also emit its sourcemaps as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, debugJSON := args[0], args[1]
		if debugSrcDir == "" {
			return fmt.Errorf("debug-compile requires --src")
		}

		stdlib, user, err := loadModules(debugSrcDir)
		if err != nil {
			return err
		}

		result, err := compile.Compile(stdlib, user, compile.Options{})
		if err != nil {
			return fmt.Errorf("compile: %w", err)
		}
		logrus.WithField("stage", "driver").Debugf("compiled %d bytes of machine code", len(result.MachineCode))

		if err := os.WriteFile(dest, result.MachineCode, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}

		parserMaps := make(map[string]interface{}, len(result.ParserMaps))
		for file, pm := range result.ParserMaps {
			parserMaps[file] = pm
		}
		dump := debugDump{
			ParserMaps: parserMaps,
			Lowering:   result.Lowering,
			Asm:        result.Asm,
			Word:       result.Word,
			Live:       result.Live,
		}

		blob, err := json.MarshalIndent(dump, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal debug info: %w", err)
		}
		if err := os.WriteFile(debugJSON, blob, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", debugJSON, err)
		}
		return nil
	},
}

func init() {
	debugCompileCmd.Flags().StringVar(&debugSrcDir, "src", "", "source module directory to compile (required)")
}
