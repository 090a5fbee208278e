package hl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collectNodeIDs(t *testing.T, cls *Class) []int {
	t.Helper()
	var ids []int
	var walk func(n AstNode, children []AstNode)
	walk = func(n AstNode, children []AstNode) {
		ids = append(ids, n.NodeID())
	}
	_ = walk
	for _, v := range cls.Vars {
		ids = append(ids, v.NodeID())
	}
	for _, s := range cls.Subroutines {
		ids = append(ids, collectSubroutineIDs(s)...)
	}
	ids = append(ids, cls.NodeID())
	return ids
}

func collectSubroutineIDs(s *Subroutine) []int {
	var ids []int
	for _, p := range s.Params {
		ids = append(ids, p.NodeID())
	}
	for _, l := range s.Locals {
		ids = append(ids, l.NodeID())
	}
	for _, st := range s.Body {
		ids = append(ids, collectStmtIDs(st)...)
	}
	ids = append(ids, s.NodeID())
	return ids
}

func collectStmtIDs(s Stmt) []int {
	var ids []int
	switch v := s.(type) {
	case *LetStmt:
		if v.Index != nil {
			ids = append(ids, collectExprIDs(v.Index)...)
		}
		ids = append(ids, collectExprIDs(v.Value)...)
	case *IfStmt:
		ids = append(ids, collectExprIDs(v.Cond)...)
		for _, st := range v.Then {
			ids = append(ids, collectStmtIDs(st)...)
		}
		for _, st := range v.Else {
			ids = append(ids, collectStmtIDs(st)...)
		}
	case *WhileStmt:
		ids = append(ids, collectExprIDs(v.Cond)...)
		for _, st := range v.Body {
			ids = append(ids, collectStmtIDs(st)...)
		}
	case *DoStmt:
		for _, a := range v.Call.Args {
			ids = append(ids, collectExprIDs(a)...)
		}
		ids = append(ids, v.Call.NodeID())
	case *ReturnStmt:
		if v.Value != nil {
			ids = append(ids, collectExprIDs(v.Value)...)
		}
	}
	ids = append(ids, s.NodeID())
	return ids
}

func collectExprIDs(e Expr) []int {
	var ids []int
	switch v := e.(type) {
	case *ParenExpr:
		ids = append(ids, collectExprIDs(v.Inner)...)
	case *BinaryExpr:
		ids = append(ids, collectExprIDs(v.Lhs)...)
		ids = append(ids, collectExprIDs(v.Rhs)...)
	case *UnaryExpr:
		ids = append(ids, collectExprIDs(v.Operand)...)
	case *ArrayAccessExpr:
		ids = append(ids, collectExprIDs(v.Index)...)
	case *CallExpr:
		for _, a := range v.Call.Args {
			ids = append(ids, collectExprIDs(a)...)
		}
		ids = append(ids, v.Call.NodeID())
	}
	ids = append(ids, e.NodeID())
	return ids
}

func TestNodeIDsDenseAndPostOrder(t *testing.T) {
	src := `class Main {
		field int x;
		function void run() {
			var int a;
			let a = 1 + 2 * 3;
			if (a > 0) { let a = a - 1; } else { let a = 0; }
			while (a < 10) { let a = a + 1; }
			do Output.printInt(a);
			return;
		}
	}`
	cls, _, err := Parse(src)
	require.NoError(t, err)

	ids := collectNodeIDs(t, cls)
	maxID := 0
	for _, id := range ids {
		if id > maxID {
			maxID = id
		}
	}
	seen := make(map[int]bool)
	for _, id := range ids {
		seen[id] = true
	}
	for i := 0; i <= maxID; i++ {
		require.True(t, seen[i], "node id %d missing from dense range", i)
	}
	require.Equal(t, maxID, cls.NodeID(), "class should be the last-allocated (outermost) node")
}

func TestTokenRangeCoversChildren(t *testing.T) {
	src := `class Main {
		function void run() {
			let a = (1 + 2) + 3;
			return;
		}
	}`
	cls, pm, err := Parse(src)
	require.NoError(t, err)
	require.NotNil(t, cls)

	for id, children := range pm.Children {
		parentRange := pm.Ranges[id]
		for _, childID := range children {
			childRange := pm.Ranges[childID]
			require.LessOrEqual(t, parentRange.Start, childRange.Start)
			require.GreaterOrEqual(t, parentRange.End, childRange.End)
		}
	}
}

func TestPrecedenceMulTighterThanAdd(t *testing.T) {
	src := `class Main {
		function void run() {
			let a = 1 + 2 * 3;
			return;
		}
	}`
	cls, _, err := Parse(src)
	require.NoError(t, err)
	letStmt := cls.Subroutines[0].Body[0].(*LetStmt)
	bin := letStmt.Value.(*BinaryExpr)
	require.Equal(t, OpAdd, bin.Op)
	_, isInt := bin.Lhs.(*PrimitiveExpr)
	require.True(t, isInt)
	rhsMul, ok := bin.Rhs.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, OpMul, rhsMul.Op)
}

func TestPrecedenceEqBindsLoosest(t *testing.T) {
	src := `class Main {
		function void run() {
			let a = 1 + 2 = 3 & 4;
			return;
		}
	}`
	cls, _, err := Parse(src)
	require.NoError(t, err)
	letStmt := cls.Subroutines[0].Body[0].(*LetStmt)
	top := letStmt.Value.(*BinaryExpr)
	require.Equal(t, OpEq, top.Op)
	_, lhsIsAdd := top.Lhs.(*BinaryExpr)
	require.True(t, lhsIsAdd)
	_, rhsIsAnd := top.Rhs.(*BinaryExpr)
	require.True(t, rhsIsAnd)
}

func TestAddIsLeftAssociative(t *testing.T) {
	src := `class Main {
		function void run() {
			let a = 1 + 2 + 3;
			return;
		}
	}`
	cls, _, err := Parse(src)
	require.NoError(t, err)
	letStmt := cls.Subroutines[0].Body[0].(*LetStmt)
	top := letStmt.Value.(*BinaryExpr)
	require.Equal(t, OpAdd, top.Op)
	lhs, ok := top.Lhs.(*BinaryExpr)
	require.True(t, ok, "left-associative: (1+2)+3, lhs should itself be the 1+2 addition")
	require.Equal(t, OpAdd, lhs.Op)
	_, rhsIsPrimitive := top.Rhs.(*PrimitiveExpr)
	require.True(t, rhsIsPrimitive)
}

func TestIdentLedArrayCallVariable(t *testing.T) {
	src := `class Main {
		function void run() {
			let a = b[1];
			let a = f(1);
			let a = x.m(1);
			let a = y;
			return;
		}
	}`
	cls, _, err := Parse(src)
	require.NoError(t, err)
	body := cls.Subroutines[0].Body

	_, isArr := body[0].(*LetStmt).Value.(*ArrayAccessExpr)
	require.True(t, isArr)

	call1 := body[1].(*LetStmt).Value.(*CallExpr)
	require.Equal(t, CallDirect, call1.Call.Kind)
	require.Equal(t, "f", call1.Call.Name)

	call2 := body[2].(*LetStmt).Value.(*CallExpr)
	require.Equal(t, CallMethod, call2.Call.Kind)
	require.Equal(t, "x", call2.Call.ReceiverName)
	require.Equal(t, "m", call2.Call.Name)

	_, isVar := body[3].(*LetStmt).Value.(*VariableExpr)
	require.True(t, isVar)
}

func TestEmptyClassProducesNoSubroutines(t *testing.T) {
	cls, _, err := Parse(`class Empty { field int a; field int b; }`)
	require.NoError(t, err)
	require.Empty(t, cls.Subroutines)
	require.Len(t, cls.Vars, 2)
}

func TestParseErrorOnBadToken(t *testing.T) {
	_, _, err := Parse(`class Main { function void run() { let a = ; } }`)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}
