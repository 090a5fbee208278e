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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadModulesSplitsStdlibSubdirectoryFromUserModules(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "stdlib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stdlib", "Memory.hl"), []byte("class Memory {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Main.hl"), []byte("class Main {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("ignored"), 0o644))

	stdlib, user, err := loadModules(root)
	require.NoError(t, err)
	require.Contains(t, stdlib, filepath.Join("stdlib", "Memory.hl"))
	require.Contains(t, user, "Main.hl")
	require.NotContains(t, user, "README.md")
	require.Len(t, stdlib, 1)
	require.Len(t, user, 1)
}
