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

// Symbol is one entry of a subroutine's symbol table: offset, type and
// kind (spec.md §3).
type Symbol struct {
	Offset int
	Type   Type
	Kind   VarKind
}

// SymbolTable resolves identifiers local → parameter → (if
// method/constructor) field → static, the single shared lookup chain
// spec.md §9 calls for (symbol-table lookup with subtype-sensitive
// fallback) rather than one replicated per call site.
type SymbolTable struct {
	locals     map[string]Symbol
	parameters map[string]Symbol
	fields     map[string]Symbol
	statics    map[string]Symbol
	isMethodOrCtor bool
}

func newSymbolTable(fields, statics map[string]Symbol, isMethodOrCtor bool) *SymbolTable {
	return &SymbolTable{
		locals:         map[string]Symbol{},
		parameters:     map[string]Symbol{},
		fields:         fields,
		statics:        statics,
		isMethodOrCtor: isMethodOrCtor,
	}
}

func (st *SymbolTable) addLocal(name string, sym Symbol) {
	st.locals[name] = sym
}

func (st *SymbolTable) addParameter(name string, sym Symbol) {
	st.parameters[name] = sym
}

// Resolve walks local -> parameter -> field -> static, returning the first
// hit. Fields are only visible where `this` is bound, so field lookups
// are only attempted when isMethodOrCtor is true (spec.md §3). Methods
// take the receiver as parameter 0; constructors allocate their own
// object and number their declared parameters from 0.
func (st *SymbolTable) Resolve(name string) (Symbol, bool) {
	if sym, ok := st.locals[name]; ok {
		return sym, true
	}
	if sym, ok := st.parameters[name]; ok {
		return sym, true
	}
	if st.isMethodOrCtor {
		if sym, ok := st.fields[name]; ok {
			return sym, true
		}
	}
	if sym, ok := st.statics[name]; ok {
		return sym, true
	}
	return Symbol{}, false
}

// classAllocator walks class var declarations in source order, assigning
// fields offsets 0..F-1 and statics offsets 0..S-1 (spec.md §4.3). The
// field count F becomes the class's instance_size.
func classAllocator(vars []*VarDecl) (fields, statics map[string]Symbol, instanceSize int) {
	fields = map[string]Symbol{}
	statics = map[string]Symbol{}
	fieldIdx, staticIdx := 0, 0
	for _, v := range vars {
		switch v.Kind {
		case VarField:
			fields[v.Name] = Symbol{Offset: fieldIdx, Type: v.Type, Kind: VarField}
			fieldIdx++
		case VarStatic:
			statics[v.Name] = Symbol{Offset: staticIdx, Type: v.Type, Kind: VarStatic}
			staticIdx++
		}
	}
	return fields, statics, fieldIdx
}
