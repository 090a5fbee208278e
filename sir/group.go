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

package sir

// GroupByFunction splits one file's flat command stream into one slice
// per subroutine, keyed by qualified name and including the Define
// command itself — the shape both the call-graph analyser and ASM
// lowering need to walk a subroutine's body in isolation.
func GroupByFunction(commands []Command) map[string][]Command {
	out := map[string][]Command{}
	i := 0
	for i < len(commands) {
		if commands[i].Kind != KindFunctionDefine {
			i++
			continue
		}
		name := commands[i].Name
		j := i + 1
		for j < len(commands) && commands[j].Kind != KindFunctionDefine {
			j++
		}
		out[name] = commands[i:j]
		i = j
	}
	return out
}
