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

package hl

import "hljack/sourcemap"

// builder allocates monotonically increasing node ids and records each
// node's sourcemap entry as it is constructed. Callers always build
// children before calling node() for the parent, so ids come out in
// post-order (spec.md §3 invariant).
type builder struct {
	nextID int
	pm     *sourcemap.ParserMap
}

func newBuilder() *builder {
	return &builder{pm: sourcemap.NewParserMap()}
}

func (b *builder) node(rng sourcemap.Range, children ...AstNode) Node {
	id := b.nextID
	b.nextID++
	childIDs := make([]int, len(children))
	for i, c := range children {
		childIDs[i] = c.NodeID()
	}
	b.pm.Record(id, rng, childIDs)
	return Node{id: id, rng: rng}
}
