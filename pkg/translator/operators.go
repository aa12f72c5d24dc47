package translator

import (
	"fmt"
	"strings"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/cte"
	"github.com/fhir4ds/fhirsql/pkg/token"
)

func (tr *translation) literal(n *core.Literal) (*value, error) {
	switch n.Kind {
	case core.LiteralNumber:
		typ := core.TypeInteger
		if strings.Contains(n.Value, ".") {
			typ = core.TypeDecimal
		}
		return &value{sql: n.Value, scalar: true, typ: typ}, nil
	case core.LiteralString:
		return &value{sql: quoteString(n.Value), scalar: true, typ: core.TypeString}, nil
	case core.LiteralBool:
		return &value{sql: strings.ToUpper(n.Value), scalar: true, typ: core.TypeBoolean}, nil
	case core.LiteralDate:
		return &value{sql: tr.d().CastTo(quoteString(n.Value), core.TypeDate), scalar: true, typ: core.TypeDate}, nil
	case core.LiteralDateTime:
		return &value{sql: tr.d().CastTo(quoteString(n.Value), core.TypeDateTime), scalar: true, typ: core.TypeDateTime}, nil
	case core.LiteralTime:
		return &value{sql: tr.d().CastTo(quoteString(n.Value), core.TypeTime), scalar: true, typ: core.TypeTime}, nil
	case core.LiteralEmpty:
		return &value{sql: "NULL", scalar: true, typ: core.TypeAny}, nil
	case core.LiteralQuantity:
		return nil, tr.errf(n, "quantity literals are not supported")
	default:
		return nil, tr.errf(n, "unsupported literal kind %d", n.Kind)
	}
}

func (tr *translation) unary(n *core.UnaryExpr, focus *value) (*value, error) {
	v, err := tr.expr(n.Expr, focus)
	if err != nil {
		return nil, err
	}
	typ := v.typ
	if !typ.IsNumeric() {
		typ = core.TypeDecimal
	}
	s := tr.scalarAs(v, typ)
	if n.Op == token.MINUS {
		s = fmt.Sprintf("-(%s)", s)
	}
	return &value{sql: s, scalar: true, typ: typ, src: v.src, deps: v.deps}, nil
}

func (tr *translation) binary(n *core.BinaryExpr, focus *value) (*value, error) {
	switch n.Op {
	case token.PIPE:
		return tr.union(n, focus)
	case token.IN:
		return tr.membership(n, focus, false)
	case token.CONTAINS:
		return tr.membership(n, focus, true)
	}

	l, err := tr.expr(n.Left, focus)
	if err != nil {
		return nil, err
	}
	r, err := tr.expr(n.Right, focus)
	if err != nil {
		return nil, err
	}
	src, err := tr.combine(n, l, r)
	if err != nil {
		return nil, err
	}
	deps := mergeDeps(l.deps, r.deps)

	bool3 := func(sql string) (*value, error) {
		return &value{sql: sql, scalar: true, typ: core.TypeBoolean, src: src, deps: deps}, nil
	}

	switch n.Op {
	// Boolean logic. SQL's own three-valued AND/OR matches FHIRPath's
	// empty-propagation tables exactly; xor and implies need CASE.
	case token.AND:
		return bool3(fmt.Sprintf("(%s AND %s)", tr.boolOf(l), tr.boolOf(r)))
	case token.OR:
		return bool3(fmt.Sprintf("(%s OR %s)", tr.boolOf(l), tr.boolOf(r)))
	case token.XOR:
		a, b := tr.boolOf(l), tr.boolOf(r)
		return bool3(fmt.Sprintf("CASE WHEN %s IS NULL OR %s IS NULL THEN NULL ELSE %s <> %s END", a, b, a, b))
	case token.IMPLIES:
		a, b := tr.boolOf(l), tr.boolOf(r)
		return bool3(fmt.Sprintf(
			"CASE WHEN %s = FALSE THEN TRUE WHEN %s = TRUE THEN TRUE WHEN %s IS NULL OR %s IS NULL THEN NULL ELSE %s END",
			a, b, a, b, b))

	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		ls, rs, _ := tr.coercePair(l, r)
		return bool3(fmt.Sprintf("(%s %s %s)", ls, sqlComparison(n.Op), rs))

	case token.EQUIV, token.NEQUIV:
		ls, rs, ct := tr.coercePair(l, r)
		if ct == core.TypeString {
			// Equivalence on strings ignores case.
			ls, rs = fmt.Sprintf("LOWER(%s)", ls), fmt.Sprintf("LOWER(%s)", rs)
		}
		op := "IS NOT DISTINCT FROM"
		if n.Op == token.NEQUIV {
			op = "IS DISTINCT FROM"
		}
		return bool3(fmt.Sprintf("(%s %s %s)", ls, op, rs))

	case token.PLUS:
		if l.typ == core.TypeString && r.typ == core.TypeString {
			return &value{
				sql:    fmt.Sprintf("(%s || %s)", tr.scalarOf(l), tr.scalarOf(r)),
				scalar: true, typ: core.TypeString, src: src, deps: deps,
			}, nil
		}
		ls, rs, nt := tr.coerceNumeric(l, r)
		return &value{sql: fmt.Sprintf("(%s + %s)", ls, rs), scalar: true, typ: nt, src: src, deps: deps}, nil
	case token.MINUS:
		ls, rs, nt := tr.coerceNumeric(l, r)
		return &value{sql: fmt.Sprintf("(%s - %s)", ls, rs), scalar: true, typ: nt, src: src, deps: deps}, nil
	case token.STAR:
		ls, rs, nt := tr.coerceNumeric(l, r)
		return &value{sql: fmt.Sprintf("(%s * %s)", ls, rs), scalar: true, typ: nt, src: src, deps: deps}, nil
	case token.SLASH:
		// Division always yields decimal; division by zero yields empty.
		ls := tr.scalarAs(l, core.TypeDecimal)
		rs := tr.scalarAs(r, core.TypeDecimal)
		return &value{
			sql:    fmt.Sprintf("(%s / NULLIF(%s, 0))", ls, rs),
			scalar: true, typ: core.TypeDecimal, src: src, deps: deps,
		}, nil
	case token.DIV:
		ls := tr.scalarAs(l, core.TypeDecimal)
		rs := tr.scalarAs(r, core.TypeDecimal)
		return &value{
			sql:    tr.d().CastTo(fmt.Sprintf("TRUNC(%s / NULLIF(%s, 0))", ls, rs), core.TypeInteger),
			scalar: true, typ: core.TypeInteger, src: src, deps: deps,
		}, nil
	case token.MOD:
		ls, rs, nt := tr.coerceNumeric(l, r)
		return &value{
			sql:    fmt.Sprintf("MOD(%s, NULLIF(%s, 0))", ls, rs),
			scalar: true, typ: nt, src: src, deps: deps,
		}, nil

	case token.AMP:
		// String concatenation treating empty as ''.
		ls := tr.scalarAs(l, core.TypeString)
		rs := tr.scalarAs(r, core.TypeString)
		return &value{
			sql:    fmt.Sprintf("(COALESCE(%s, '') || COALESCE(%s, ''))", ls, rs),
			scalar: true, typ: core.TypeString, src: src, deps: deps,
		}, nil
	}

	return nil, tr.errf(n, "unsupported operator %s", n.Op)
}

func sqlComparison(op token.TokenType) string {
	switch op {
	case token.EQ:
		return "="
	case token.NE:
		return "<>"
	case token.LT:
		return "<"
	case token.GT:
		return ">"
	case token.LE:
		return "<="
	default:
		return ">="
	}
}

// coercePair renders both operands as scalars of a common comparison type.
func (tr *translation) coercePair(l, r *value) (string, string, core.Type) {
	t := commonType(l.typ, r.typ)
	return tr.scalarAs(l, t), tr.scalarAs(r, t), t
}

// coerceNumeric renders both operands as numbers: integer when both sides
// are integers, decimal otherwise.
func (tr *translation) coerceNumeric(l, r *value) (string, string, core.Type) {
	t := core.TypeDecimal
	if l.typ == core.TypeInteger && r.typ == core.TypeInteger {
		t = core.TypeInteger
	}
	return tr.scalarAs(l, t), tr.scalarAs(r, t), t
}

func commonType(a, b core.Type) core.Type {
	switch {
	case a == b:
		return a
	case a.IsNumeric() && b.IsNumeric():
		return core.TypeDecimal
	case a == core.TypeAny:
		return b
	case b == core.TypeAny:
		return a
	case a.IsTemporal() && b.IsTemporal():
		return core.TypeDateTime
	default:
		return core.TypeString
	}
}

// union translates l | r: both operands become (id, value) row sets and are
// combined with UNION, which also deduplicates per FHIRPath union semantics.
func (tr *translation) union(n *core.BinaryExpr, focus *value) (*value, error) {
	l, err := tr.expr(n.Left, focus)
	if err != nil {
		return nil, err
	}
	r, err := tr.expr(n.Right, focus)
	if err != nil {
		return nil, err
	}
	lc, err := tr.asRowSet(n, l)
	if err != nil {
		return nil, err
	}
	rc, err := tr.asRowSet(n, r)
	if err != nil {
		return nil, err
	}

	// UNION deduplicates and discards the operand positions; element order
	// of a union is unspecified, so the merged rows are renumbered by value
	// to keep position functions downstream deterministic.
	sub := fmt.Sprintf("(SELECT id, value FROM %s UNION SELECT id, value FROM %s)", lc.src.table, rc.src.table)
	c := tr.builder.Add("union", &cte.CTE{
		BaseTable:    sub,
		BaseAlias:    "f",
		SelectClause: "f.id AS id, f.value AS value, row_number() OVER (PARTITION BY f.id ORDER BY f.value) AS ord",
		Deps:         mergeDeps(lc.deps, rc.deps),
	})

	typ := core.TypeAny
	fhirType := ""
	if lc.typ == rc.typ {
		typ = lc.typ
	}
	if lc.fhirType == rc.fhirType {
		fhirType = lc.fhirType
	}
	return &value{
		root:       "f.value",
		typ:        typ,
		fhirType:   fhirType,
		collection: true,
		flattened:  true,
		src:        &source{table: c.Name, alias: "f", id: "f.id"},
		deps:       []string{c.Name},
	}, nil
}

// membership translates `x in coll` (and `coll contains x` with the
// operands swapped) as a correlated EXISTS over the collection's row set.
func (tr *translation) membership(n *core.BinaryExpr, focus *value, reversed bool) (*value, error) {
	itemExpr, collExpr := n.Left, n.Right
	if reversed {
		itemExpr, collExpr = n.Right, n.Left
	}

	item, err := tr.expr(itemExpr, focus)
	if err != nil {
		return nil, err
	}
	if item.collection {
		return nil, tr.errf(n, "membership requires a singleton operand")
	}
	coll, err := tr.expr(collExpr, focus)
	if err != nil {
		return nil, err
	}
	rows, err := tr.asRowSet(n, coll)
	if err != nil {
		return nil, err
	}

	src := item.src
	if src == nil {
		src = tr.baseSource()
	}
	itemSQL := tr.scalarOf(item)
	elem := tr.d().JSONExtractString("c.value")
	if item.typ != core.TypeString && item.typ != core.TypeAny && item.typ != core.TypeComplex {
		elem = tr.d().CastTo(elem, item.typ)
	}

	sql := fmt.Sprintf(
		"CASE WHEN %s IS NULL THEN NULL ELSE EXISTS (SELECT 1 FROM %s c WHERE c.id = %s AND %s = %s) END",
		itemSQL, rows.src.table, src.id, elem, itemSQL)
	return &value{
		sql: sql, scalar: true, typ: core.TypeBoolean,
		src:  src,
		deps: mergeDeps(item.deps, rows.deps),
	}, nil
}

// typeOp translates `expr is Type` and `expr as Type`. Choice elements
// narrow to their concrete variant key; other values resolve statically.
func (tr *translation) typeOp(n *core.TypeExpr, focus *value) (*value, error) {
	v, err := tr.expr(n.Expr, focus)
	if err != nil {
		return nil, err
	}
	return tr.typeOpOn(n, v, n.Op, n.Type)
}

// typeOpOn applies is/as to an already-translated value. Shared by the
// operator forms and ofType().
func (tr *translation) typeOpOn(n core.Node, v *value, op token.TokenType, typeName string) (*value, error) {
	name := strings.TrimPrefix(typeName, "System.")

	if v.choice != nil {
		variant, err := tr.t.registry.ChoiceVariantFor(v.choice.parent, v.choice.element, name)
		if err != nil {
			// No such variant: statically false / empty.
			if op == token.IS {
				return &value{sql: "FALSE", scalar: true, typ: core.TypeBoolean, src: v.src, deps: v.deps}, nil
			}
			return &value{sql: "NULL", scalar: true, typ: core.TypeAny, src: v.src, deps: v.deps}, nil
		}
		extract := tr.d().JSONExtract(v.choice.base, variant.Key)
		if op == token.IS {
			return &value{
				sql:    fmt.Sprintf("CASE WHEN %s IS NULL THEN NULL ELSE %s IS NOT NULL END", tr.json(v), extract),
				scalar: true, typ: core.TypeBoolean, src: v.src, deps: v.deps,
			}, nil
		}
		return &value{
			sql:        extract,
			typ:        variant.Info.Type,
			fhirType:   variant.Info.Complex,
			collection: v.collection,
			flattened:  v.flattened,
			src:        v.src,
			deps:       v.deps,
		}, nil
	}

	match, err := tr.staticTypeMatch(n, v, name)
	if err != nil {
		return nil, err
	}
	if op == token.IS {
		lit := "FALSE"
		if match {
			lit = "TRUE"
		}
		return &value{
			sql:    fmt.Sprintf("CASE WHEN %s IS NULL THEN NULL ELSE %s END", tr.json(v), lit),
			scalar: true, typ: core.TypeBoolean, src: v.src, deps: v.deps,
		}, nil
	}
	if match {
		return v, nil
	}
	return &value{sql: "NULL", scalar: true, typ: core.TypeAny, src: v.src, deps: v.deps}, nil
}

// staticTypeMatch decides `is` against the statically known type.
func (tr *translation) staticTypeMatch(n core.Node, v *value, name string) (bool, error) {
	if v.fhirType != "" {
		return v.fhirType == name, nil
	}
	if v.typ == core.TypeAny {
		return false, tr.errf(n, "cannot test the type of an untyped expression")
	}
	return core.TypeFromName(name) == v.typ, nil
}
