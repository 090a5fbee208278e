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

import (
	"hljack/sourcemap"
	"hljack/token"
	"strconv"
)

// Tokenize runs the shared regex tokenizer over HL source text.
func Tokenize(src string) ([]token.Token, error) {
	return token.New(Rules()).Tokenize(src)
}

func filterTrivia(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if !IsTrivia(t.Kind) {
			out = append(out, t)
		}
	}
	return out
}

// Parser runs over a filtered view of the token stream (whitespace and
// comments skipped) while retaining each token's original stream index
// for sourcemap ranges (spec.md §4.2).
type Parser struct {
	tokens []token.Token
	pos    int
	b      *builder
}

// opPower describes an operator's Pratt binding powers (spec.md §4.2).
type opPower struct {
	hasPrefix bool
	prefixBP  int
	hasInfix  bool
	lbp, rbp  int
}

var opTable = map[token.Kind]opPower{
	TkNot:   {hasPrefix: true, prefixBP: 20},
	TkMinus: {hasPrefix: true, prefixBP: 19, hasInfix: true, lbp: 15, rbp: 16},
	TkStar:  {hasInfix: true, lbp: 21, rbp: 22},
	TkSlash: {hasInfix: true, lbp: 19, rbp: 20},
	TkPlus:  {hasInfix: true, lbp: 17, rbp: 18},
	TkLt:    {hasInfix: true, lbp: 13, rbp: 14},
	TkLe:    {hasInfix: true, lbp: 11, rbp: 12},
	TkGt:    {hasInfix: true, lbp: 9, rbp: 10},
	TkGe:    {hasInfix: true, lbp: 7, rbp: 8},
	TkAmp:   {hasInfix: true, lbp: 5, rbp: 6},
	TkPipe:  {hasInfix: true, lbp: 3, rbp: 4},
	TkEq:    {hasInfix: true, lbp: 1, rbp: 2},
}

func binaryOpFor(k token.Kind) BinaryOp {
	switch k {
	case TkPlus:
		return OpAdd
	case TkMinus:
		return OpSub
	case TkStar:
		return OpMul
	case TkSlash:
		return OpDiv
	case TkAmp:
		return OpAnd
	case TkPipe:
		return OpOr
	case TkLt:
		return OpLt
	case TkLe:
		return OpLe
	case TkGt:
		return OpGt
	case TkGe:
		return OpGe
	case TkEq:
		return OpEq
	}
	return OpAdd
}

// Parse parses HL source into a Class AST and the sourcemap relating each
// AST node id back to its token span (spec.md §4.2's two public
// operations, `parse(tokens) -> {Class, ParserSourcemap}`).
func Parse(src string) (*Class, *sourcemap.ParserMap, error) {
	all, err := Tokenize(src)
	if err != nil {
		return nil, nil, err
	}
	p := &Parser{tokens: filterTrivia(all), b: newBuilder()}
	cls, err := p.parseClass()
	if err != nil {
		return nil, nil, err
	}
	return cls, p.b.pm, nil
}

func (p *Parser) peek() (token.Token, bool) {
	if p.pos >= len(p.tokens) {
		return token.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) peekKind() (token.Kind, bool) {
	tok, ok := p.peek()
	if !ok {
		return 0, false
	}
	return tok.Kind, true
}

func (p *Parser) advance() token.Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	tok, ok := p.peek()
	if !ok {
		return token.Token{}, &UnexpectedEnd{Expected: KindName(kind)}
	}
	if tok.Kind != kind {
		return token.Token{}, &ParseError{Expected: KindName(kind), Actual: KindName(tok.Kind), TokenIndex: tok.Index}
	}
	return p.advance(), nil
}

func (p *Parser) at(kind token.Kind) bool {
	tok, ok := p.peek()
	return ok && tok.Kind == kind
}

// ---------------------------------------------------------------------------
// Expressions (Pratt)

func (p *Parser) parseExpr(minBP int) (Expr, error) {
	lhs, err := p.parseNud()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok {
			break
		}
		pw, isOp := opTable[tok.Kind]
		if !isOp || !pw.hasInfix || pw.lbp < minBP {
			break
		}
		p.advance()
		rhs, err := p.parseExpr(pw.rbp)
		if err != nil {
			return nil, err
		}
		rng := sourcemap.Range{Start: lhs.TokenRange().Start, End: rhs.TokenRange().End}
		node := p.b.node(rng, lhs, rhs)
		lhs = &BinaryExpr{Node: node, Op: binaryOpFor(tok.Kind), Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseNud() (Expr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, &UnexpectedEnd{Expected: "expression"}
	}

	switch tok.Kind {
	case TkNot, TkMinus:
		pw := opTable[tok.Kind]
		start := p.advance()
		operand, err := p.parseExpr(pw.prefixBP)
		if err != nil {
			return nil, err
		}
		rng := sourcemap.Range{Start: start.Index, End: operand.TokenRange().End}
		node := p.b.node(rng, operand)
		op := OpNeg
		if tok.Kind == TkNot {
			op = OpNot
		}
		return &UnaryExpr{Node: node, Op: op, Operand: operand}, nil

	case TkLParen:
		start := p.advance()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		closeTok, err := p.expect(TkRParen)
		if err != nil {
			return nil, err
		}
		rng := sourcemap.Range{Start: start.Index, End: closeTok.Index + 1}
		node := p.b.node(rng, inner)
		return &ParenExpr{Node: node, Inner: inner}, nil

	case TkIntLiteral:
		p.advance()
		value, convErr := strconv.Atoi(tok.Source)
		if convErr != nil {
			return nil, &ParseError{Expected: "integer literal", Actual: tok.Source, TokenIndex: tok.Index}
		}
		rng := sourcemap.Range{Start: tok.Index, End: tok.Index + 1}
		node := p.b.node(rng)
		return &PrimitiveExpr{Node: node, Variant: PrimInt, IntValue: value}, nil

	case TkStringLiteral:
		p.advance()
		unquoted := tok.Source[1 : len(tok.Source)-1]
		rng := sourcemap.Range{Start: tok.Index, End: tok.Index + 1}
		node := p.b.node(rng)
		return &PrimitiveExpr{Node: node, Variant: PrimString, StrValue: unquoted}, nil

	case TkTrue, TkFalse, TkNull, TkThis:
		p.advance()
		variant := map[token.Kind]PrimitiveVariant{
			TkTrue: PrimTrue, TkFalse: PrimFalse, TkNull: PrimNull, TkThis: PrimThis,
		}[tok.Kind]
		rng := sourcemap.Range{Start: tok.Index, End: tok.Index + 1}
		node := p.b.node(rng)
		return &PrimitiveExpr{Node: node, Variant: variant}, nil

	case TkIdent:
		return p.parseIdentLed()

	default:
		return nil, &ParseError{Expected: "expression", Actual: KindName(tok.Kind), TokenIndex: tok.Index}
	}
}

// parseIdentLed implements spec.md §4.2's identifier-led term rule:
// ArrayAccess if followed by '[', Call if followed by '(' or '.',
// otherwise Variable.
func (p *Parser) parseIdentLed() (Expr, error) {
	nameTok := p.advance()

	if p.at(TkLBracket) {
		p.advance()
		idx, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		closeTok, err := p.expect(TkRBracket)
		if err != nil {
			return nil, err
		}
		rng := sourcemap.Range{Start: nameTok.Index, End: closeTok.Index + 1}
		node := p.b.node(rng, idx)
		return &ArrayAccessExpr{Node: node, VarName: nameTok.Source, Index: idx}, nil
	}

	if p.at(TkLParen) {
		call, err := p.parseDirectCall(nameTok)
		if err != nil {
			return nil, err
		}
		node := p.b.node(call.TokenRange(), call)
		return &CallExpr{Node: node, Call: call}, nil
	}

	if p.at(TkDot) {
		call, err := p.parseMethodCall(nameTok)
		if err != nil {
			return nil, err
		}
		node := p.b.node(call.TokenRange(), call)
		return &CallExpr{Node: node, Call: call}, nil
	}

	rng := sourcemap.Range{Start: nameTok.Index, End: nameTok.Index + 1}
	node := p.b.node(rng)
	return &VariableExpr{Node: node, Name: nameTok.Source}, nil
}

func (p *Parser) parseArgs() ([]Expr, error) {
	if _, err := p.expect(TkLParen); err != nil {
		return nil, err
	}
	var args []Expr
	if !p.at(TkRParen) {
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.at(TkComma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(TkRParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseDirectCall(nameTok token.Token) (*SubroutineCall, error) {
	closeIdx, args, err := p.parseArgsWithRange()
	if err != nil {
		return nil, err
	}
	rng := sourcemap.Range{Start: nameTok.Index, End: closeIdx + 1}
	node := p.b.node(rng, exprsToNodes(args)...)
	return &SubroutineCall{Node: node, Kind: CallDirect, Name: nameTok.Source, Args: args}, nil
}

func (p *Parser) parseMethodCall(receiverTok token.Token) (*SubroutineCall, error) {
	if _, err := p.expect(TkDot); err != nil {
		return nil, err
	}
	methodTok, err := p.expect(TkIdent)
	if err != nil {
		return nil, err
	}
	closeIdx, args, err := p.parseArgsWithRange()
	if err != nil {
		return nil, err
	}
	rng := sourcemap.Range{Start: receiverTok.Index, End: closeIdx + 1}
	node := p.b.node(rng, exprsToNodes(args)...)
	return &SubroutineCall{Node: node, Kind: CallMethod, ReceiverName: receiverTok.Source, Name: methodTok.Source, Args: args}, nil
}

// parseArgsWithRange parses a parenthesized argument list and also returns
// the index of the closing paren so callers can compute their own range.
func (p *Parser) parseArgsWithRange() (closeIdx int, args []Expr, err error) {
	if _, err = p.expect(TkLParen); err != nil {
		return 0, nil, err
	}
	if !p.at(TkRParen) {
		for {
			arg, aerr := p.parseExpr(0)
			if aerr != nil {
				return 0, nil, aerr
			}
			args = append(args, arg)
			if p.at(TkComma) {
				p.advance()
				continue
			}
			break
		}
	}
	closeTok, cerr := p.expect(TkRParen)
	if cerr != nil {
		return 0, nil, cerr
	}
	return closeTok.Index, args, nil
}

func exprsToNodes(exprs []Expr) []AstNode {
	nodes := make([]AstNode, len(exprs))
	for i, e := range exprs {
		nodes[i] = e
	}
	return nodes
}

// ---------------------------------------------------------------------------
// Statements

func (p *Parser) parseStatementList() ([]Stmt, error) {
	var stmts []Stmt
	for {
		kind, ok := p.peekKind()
		if !ok || kind == TkRBrace {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	kind, ok := p.peekKind()
	if !ok {
		return nil, &UnexpectedEnd{Expected: "statement"}
	}
	switch kind {
	case TkLet:
		return p.parseLet()
	case TkIf:
		return p.parseIf()
	case TkWhile:
		return p.parseWhile()
	case TkDo:
		return p.parseDo()
	case TkReturn:
		return p.parseReturn()
	default:
		return nil, &ParseError{Expected: "statement", Actual: KindName(kind), TokenIndex: p.tokens[p.pos].Index}
	}
}

func (p *Parser) parseLet() (Stmt, error) {
	start := p.advance() // 'let'
	nameTok, err := p.expect(TkIdent)
	if err != nil {
		return nil, err
	}
	var index Expr
	if p.at(TkLBracket) {
		p.advance()
		index, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TkRBracket); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TkEq); err != nil {
		return nil, err
	}
	value, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	semi, err := p.expect(TkSemicolon)
	if err != nil {
		return nil, err
	}
	children := []AstNode{value}
	if index != nil {
		children = append(children, index)
	}
	rng := sourcemap.Range{Start: start.Index, End: semi.Index + 1}
	node := p.b.node(rng, children...)
	return &LetStmt{Node: node, VarName: nameTok.Source, Index: index, Value: value}, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	start := p.advance() // 'if'
	if _, err := p.expect(TkLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(TkLBrace); err != nil {
		return nil, err
	}
	thenStmts, err := p.parseStatementList()
	if err != nil {
		return nil, err
	}
	endTok, err := p.expect(TkRBrace)
	if err != nil {
		return nil, err
	}

	hasElse := false
	var elseStmts []Stmt
	if p.at(TkElse) {
		hasElse = true
		p.advance()
		if _, err := p.expect(TkLBrace); err != nil {
			return nil, err
		}
		elseStmts, err = p.parseStatementList()
		if err != nil {
			return nil, err
		}
		endTok, err = p.expect(TkRBrace)
		if err != nil {
			return nil, err
		}
	}

	children := []AstNode{cond}
	children = append(children, stmtsToNodes(thenStmts)...)
	children = append(children, stmtsToNodes(elseStmts)...)
	rng := sourcemap.Range{Start: start.Index, End: endTok.Index + 1}
	node := p.b.node(rng, children...)
	return &IfStmt{Node: node, Cond: cond, Then: thenStmts, HasElse: hasElse, Else: elseStmts}, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	start := p.advance() // 'while'
	if _, err := p.expect(TkLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(TkLBrace); err != nil {
		return nil, err
	}
	body, err := p.parseStatementList()
	if err != nil {
		return nil, err
	}
	endTok, err := p.expect(TkRBrace)
	if err != nil {
		return nil, err
	}
	children := []AstNode{cond}
	children = append(children, stmtsToNodes(body)...)
	rng := sourcemap.Range{Start: start.Index, End: endTok.Index + 1}
	node := p.b.node(rng, children...)
	return &WhileStmt{Node: node, Cond: cond, Body: body}, nil
}

func (p *Parser) parseDo() (Stmt, error) {
	start := p.advance() // 'do'
	nameTok, err := p.expect(TkIdent)
	if err != nil {
		return nil, err
	}
	var call *SubroutineCall
	if p.at(TkDot) {
		call, err = p.parseMethodCall(nameTok)
	} else {
		call, err = p.parseDirectCall(nameTok)
	}
	if err != nil {
		return nil, err
	}
	semi, err := p.expect(TkSemicolon)
	if err != nil {
		return nil, err
	}
	rng := sourcemap.Range{Start: start.Index, End: semi.Index + 1}
	node := p.b.node(rng, call)
	return &DoStmt{Node: node, Call: call}, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	start := p.advance() // 'return'
	var value Expr
	if !p.at(TkSemicolon) {
		var err error
		value, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	semi, err := p.expect(TkSemicolon)
	if err != nil {
		return nil, err
	}
	var children []AstNode
	if value != nil {
		children = append(children, value)
	}
	rng := sourcemap.Range{Start: start.Index, End: semi.Index + 1}
	node := p.b.node(rng, children...)
	return &ReturnStmt{Node: node, Value: value}, nil
}

func stmtsToNodes(stmts []Stmt) []AstNode {
	nodes := make([]AstNode, len(stmts))
	for i, s := range stmts {
		nodes[i] = s
	}
	return nodes
}

// ---------------------------------------------------------------------------
// Class / subroutine / var declarations

func (p *Parser) parseType() (Type, error) {
	tok, ok := p.peek()
	if !ok {
		return Type{}, &UnexpectedEnd{Expected: "type"}
	}
	switch tok.Kind {
	case TkInt:
		p.advance()
		return Type{Kind: TypeInt}, nil
	case TkChar:
		p.advance()
		return Type{Kind: TypeChar}, nil
	case TkBoolean:
		p.advance()
		return Type{Kind: TypeBoolean}, nil
	case TkIdent:
		p.advance()
		return Type{Kind: TypeClass, ClassName: tok.Source}, nil
	default:
		return Type{}, &ParseError{Expected: "type", Actual: KindName(tok.Kind), TokenIndex: tok.Index}
	}
}

// parseClassVarDecl parses one `static|field type name (, name)*;` line,
// returning one VarDecl per declared name (offsets are assigned later by
// the lowerer, in source order).
func (p *Parser) parseClassVarDecl() ([]*VarDecl, error) {
	start := p.advance() // 'static' or 'field'
	kind := VarStatic
	if start.Kind == TkField {
		kind = VarField
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	var decls []*VarDecl
	for {
		nameTok, err := p.expect(TkIdent)
		if err != nil {
			return nil, err
		}
		rng := sourcemap.Range{Start: nameTok.Index, End: nameTok.Index + 1}
		node := p.b.node(rng)
		decls = append(decls, &VarDecl{Node: node, Name: nameTok.Source, Type: typ, Kind: kind})
		if p.at(TkComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TkSemicolon); err != nil {
		return nil, err
	}
	return decls, nil
}

func (p *Parser) parseParams() ([]*VarDecl, error) {
	if _, err := p.expect(TkLParen); err != nil {
		return nil, err
	}
	var params []*VarDecl
	if !p.at(TkRParen) {
		for {
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			nameTok, err := p.expect(TkIdent)
			if err != nil {
				return nil, err
			}
			rng := sourcemap.Range{Start: nameTok.Index, End: nameTok.Index + 1}
			node := p.b.node(rng)
			params = append(params, &VarDecl{Node: node, Name: nameTok.Source, Type: typ, Kind: VarParameter})
			if p.at(TkComma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(TkRParen); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseLocalsDecl() ([]*VarDecl, error) {
	start := p.advance() // 'var'
	_ = start
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	var decls []*VarDecl
	for {
		nameTok, err := p.expect(TkIdent)
		if err != nil {
			return nil, err
		}
		rng := sourcemap.Range{Start: nameTok.Index, End: nameTok.Index + 1}
		node := p.b.node(rng)
		decls = append(decls, &VarDecl{Node: node, Name: nameTok.Source, Type: typ, Kind: VarLocal})
		if p.at(TkComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TkSemicolon); err != nil {
		return nil, err
	}
	return decls, nil
}

func (p *Parser) parseSubroutine() (*Subroutine, error) {
	kindTok := p.advance() // constructor|function|method
	var kind SubroutineKind
	switch kindTok.Kind {
	case TkConstructor:
		kind = SubConstructor
	case TkFunction:
		kind = SubFunction
	case TkMethod:
		kind = SubMethod
	}

	var retType *Type
	if p.at(TkVoid) {
		p.advance()
	} else {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		retType = &t
	}

	nameTok, err := p.expect(TkIdent)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkLBrace); err != nil {
		return nil, err
	}

	var locals []*VarDecl
	for p.at(TkVar) {
		decls, err := p.parseLocalsDecl()
		if err != nil {
			return nil, err
		}
		locals = append(locals, decls...)
	}

	stmts, err := p.parseStatementList()
	if err != nil {
		return nil, err
	}
	endTok, err := p.expect(TkRBrace)
	if err != nil {
		return nil, err
	}

	children := make([]AstNode, 0, len(params)+len(locals)+len(stmts))
	for _, pr := range params {
		children = append(children, pr)
	}
	for _, l := range locals {
		children = append(children, l)
	}
	children = append(children, stmtsToNodes(stmts)...)
	rng := sourcemap.Range{Start: kindTok.Index, End: endTok.Index + 1}
	node := p.b.node(rng, children...)

	return &Subroutine{
		Node: node, Kind: kind, Name: nameTok.Source, ReturnType: retType,
		Params: params, Locals: locals, Body: stmts,
	}, nil
}

func (p *Parser) parseClass() (*Class, error) {
	start, err := p.expect(TkClass)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TkIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TkLBrace); err != nil {
		return nil, err
	}

	var vars []*VarDecl
	for p.at(TkStatic) || p.at(TkField) {
		decls, err := p.parseClassVarDecl()
		if err != nil {
			return nil, err
		}
		vars = append(vars, decls...)
	}

	var subs []*Subroutine
	for p.at(TkConstructor) || p.at(TkFunction) || p.at(TkMethod) {
		sub, err := p.parseSubroutine()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	endTok, err := p.expect(TkRBrace)
	if err != nil {
		return nil, err
	}

	children := make([]AstNode, 0, len(vars)+len(subs))
	for _, v := range vars {
		children = append(children, v)
	}
	for _, s := range subs {
		children = append(children, s)
	}
	rng := sourcemap.Range{Start: start.Index, End: endTok.Index + 1}
	node := p.b.node(rng, children...)

	return &Class{Node: node, Name: nameTok.Source, Vars: vars, Subroutines: subs}, nil
}
