package translator

import (
	"fmt"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/cte"
	"github.com/fhir4ds/fhirsql/pkg/token"
)

func (tr *translation) function(n *core.FunctionCall, focus *value) (*value, error) {
	target := focus
	if n.Target != nil {
		var err error
		target, err = tr.expr(n.Target, focus)
		if err != nil {
			return nil, err
		}
	}

	switch n.Name {
	case "where":
		if err := tr.wantArgs(n, 1, 1); err != nil {
			return nil, err
		}
		return tr.filter(n, target, n.Args[0], false)
	case "select":
		if err := tr.wantArgs(n, 1, 1); err != nil {
			return nil, err
		}
		return tr.project(n, target, n.Args[0])
	case "exists":
		if err := tr.wantArgs(n, 0, 1); err != nil {
			return nil, err
		}
		if len(n.Args) == 1 {
			filtered, err := tr.filter(n, target, n.Args[0], false)
			if err != nil {
				return nil, err
			}
			return tr.existsOf(n, filtered)
		}
		return tr.existsOf(n, target)
	case "empty":
		if err := tr.wantArgs(n, 0, 0); err != nil {
			return nil, err
		}
		return tr.emptyOf(n, target)
	case "count":
		if err := tr.wantArgs(n, 0, 0); err != nil {
			return nil, err
		}
		return tr.countOf(n, target)
	case "all":
		if err := tr.wantArgs(n, 1, 1); err != nil {
			return nil, err
		}
		// all(c) holds when no element violates c; empty input holds.
		violations, err := tr.filter(n, target, n.Args[0], true)
		if err != nil {
			return nil, err
		}
		ex, err := tr.existsOf(n, violations)
		if err != nil {
			return nil, err
		}
		return &value{
			sql: fmt.Sprintf("NOT %s", ex.sql), scalar: true, typ: core.TypeBoolean,
			src: ex.src, deps: ex.deps,
		}, nil
	case "distinct":
		if err := tr.wantArgs(n, 0, 0); err != nil {
			return nil, err
		}
		return tr.distinct(n, target)
	case "first":
		if err := tr.wantArgs(n, 0, 0); err != nil {
			return nil, err
		}
		return tr.element(n, target, "0")
	case "last":
		if err := tr.wantArgs(n, 0, 0); err != nil {
			return nil, err
		}
		return tr.last(n, target)
	case "tail":
		if err := tr.wantArgs(n, 0, 0); err != nil {
			return nil, err
		}
		return tr.slice(n, target, "f.rn > 1", "tail")
	case "skip":
		if err := tr.wantArgs(n, 1, 1); err != nil {
			return nil, err
		}
		num, err := tr.intArg(n.Args[0], focus)
		if err != nil {
			return nil, err
		}
		return tr.slice(n, target, fmt.Sprintf("f.rn > (%s)", num), "skip")
	case "take":
		if err := tr.wantArgs(n, 1, 1); err != nil {
			return nil, err
		}
		num, err := tr.intArg(n.Args[0], focus)
		if err != nil {
			return nil, err
		}
		return tr.slice(n, target, fmt.Sprintf("f.rn <= (%s)", num), "take")
	case "ofType":
		if err := tr.wantArgs(n, 1, 1); err != nil {
			return nil, err
		}
		name, err := tr.typeArg(n.Args[0])
		if err != nil {
			return nil, err
		}
		return tr.typeOpOn(n, target, token.AS, name)
	case "not":
		if err := tr.wantArgs(n, 0, 0); err != nil {
			return nil, err
		}
		if target.collection {
			return nil, tr.errf(n, "not() requires a singleton")
		}
		return &value{
			sql: fmt.Sprintf("NOT (%s)", tr.boolOf(target)), scalar: true, typ: core.TypeBoolean,
			src: target.src, deps: target.deps,
		}, nil
	case "iif":
		return tr.iif(n, focus)

	case "length":
		return tr.stringFn(n, target, func(s string) string { return fmt.Sprintf("LENGTH(%s)", s) }, core.TypeInteger)
	case "upper":
		return tr.stringFn(n, target, func(s string) string { return fmt.Sprintf("UPPER(%s)", s) }, core.TypeString)
	case "lower":
		return tr.stringFn(n, target, func(s string) string { return fmt.Sprintf("LOWER(%s)", s) }, core.TypeString)
	case "substring":
		return tr.substring(n, target, focus)
	case "startsWith", "endsWith", "contains", "replace", "indexOf":
		return tr.stringArgFn(n, target, focus)
	case "toString":
		return tr.convert(n, target, core.TypeString)
	case "toInteger":
		return tr.convert(n, target, core.TypeInteger)
	case "toDecimal":
		return tr.convert(n, target, core.TypeDecimal)
	case "abs":
		return tr.mathFn(n, target, "ABS")
	case "ceiling":
		return tr.mathFn(n, target, "CEIL")
	case "floor":
		return tr.mathFn(n, target, "FLOOR")
	case "truncate":
		return tr.mathFn(n, target, "TRUNC")
	case "round":
		return tr.round(n, target, focus)
	case "today":
		if err := tr.wantArgs(n, 0, 0); err != nil {
			return nil, err
		}
		return &value{sql: "CURRENT_DATE", scalar: true, typ: core.TypeDate}, nil
	case "now":
		if err := tr.wantArgs(n, 0, 0); err != nil {
			return nil, err
		}
		return &value{sql: "CURRENT_TIMESTAMP", scalar: true, typ: core.TypeDateTime}, nil
	default:
		return nil, tr.errf(n, "unknown function %s()", n.Name)
	}
}

func (tr *translation) wantArgs(n *core.FunctionCall, min, max int) error {
	if len(n.Args) < min || len(n.Args) > max {
		if min == max {
			return tr.errf(n, "%s() expects %d argument(s), got %d", n.Name, min, len(n.Args))
		}
		return tr.errf(n, "%s() expects %d to %d arguments, got %d", n.Name, min, max, len(n.Args))
	}
	return nil
}

// filter builds a filter CTE keeping elements whose criteria is true, or,
// with negate set, elements whose criteria is not true (the all() violation
// set, where an empty criteria also counts as a violation).
func (tr *translation) filter(n *core.FunctionCall, target *value, criteria core.Expr, negate bool) (*value, error) {
	v, err := tr.ensureFlattened(n, target, n.Name)
	if err != nil {
		return nil, err
	}
	cv, err := tr.expr(criteria, elementFocus(v))
	if err != nil {
		return nil, err
	}
	if cv.src != nil && !cv.src.base && cv.src.table != v.src.table {
		return nil, tr.errf(n, "%s() criteria cannot navigate into a nested collection", n.Name)
	}

	cond := tr.boolOf(cv)
	if negate {
		cond = fmt.Sprintf("NOT (%s IS TRUE)", cond)
	}
	c := tr.builder.Add("filter", &cte.CTE{
		BaseTable:    v.src.table,
		BaseAlias:    "f",
		SelectClause: "f.id AS id, f.value AS value, f.ord AS ord",
		Where:        cond,
		Deps:         mergeDeps(v.deps, cv.deps),
	})
	return &value{
		root:       "f.value",
		typ:        v.typ,
		fhirType:   v.fhirType,
		collection: true,
		flattened:  true,
		src:        &source{table: c.Name, alias: "f", id: "f.id"},
		deps:       []string{c.Name},
	}, nil
}

// project builds a select() CTE mapping each element through the projection.
func (tr *translation) project(n *core.FunctionCall, target *value, projection core.Expr) (*value, error) {
	v, err := tr.ensureFlattened(n, target, n.Name)
	if err != nil {
		return nil, err
	}
	pv, err := tr.expr(projection, elementFocus(v))
	if err != nil {
		return nil, err
	}
	if pv.collection {
		return nil, tr.errf(n, "select() projection must be a singleton per element")
	}
	if pv.src != nil && !pv.src.base && pv.src.table != v.src.table {
		return nil, tr.errf(n, "select() projection cannot navigate into a nested collection")
	}

	col := tr.json(pv)
	if pv.scalar {
		col = pv.sql
	}
	c := tr.builder.Add("proj", &cte.CTE{
		BaseTable:    v.src.table,
		BaseAlias:    "f",
		SelectClause: fmt.Sprintf("f.id AS id, %s AS value, f.ord AS ord", col),
		Deps:         mergeDeps(v.deps, pv.deps),
	})
	out := &value{
		typ:        pv.typ,
		fhirType:   pv.fhirType,
		collection: true,
		flattened:  true,
		src:        &source{table: c.Name, alias: "f", id: "f.id"},
		deps:       []string{c.Name},
	}
	if pv.scalar {
		out.sql = "f.value"
		out.scalar = true
	} else {
		out.root = "f.value"
	}
	return out, nil
}

// normalize flattens a collection whose source is already a row set (a
// nested collection like name.given), so per-resource aggregation and
// position functions see one row per element rather than one JSON array per
// parent element.
func (tr *translation) normalize(n core.Node, v *value) (*value, error) {
	if v.collection && !v.flattened && v.src != nil && !v.src.base {
		return tr.flatten(n, v)
	}
	return v, nil
}

// existsOf translates exists(): per-resource aggregation for flattened
// collections, null checks otherwise.
func (tr *translation) existsOf(n core.Node, v *value) (*value, error) {
	v, err := tr.normalize(n, v)
	if err != nil {
		return nil, err
	}
	switch {
	case v.collection && v.flattened:
		return tr.aggregate(v, "COUNT(*) > 0", "FALSE", core.TypeBoolean), nil
	case v.collection:
		return &value{
			sql:    fmt.Sprintf("(COALESCE(%s, 0) > 0)", tr.d().JSONArrayLength(tr.json(v))),
			scalar: true, typ: core.TypeBoolean, src: v.src, deps: v.deps,
		}, nil
	default:
		return &value{
			sql:    fmt.Sprintf("(%s IS NOT NULL)", tr.json(v)),
			scalar: true, typ: core.TypeBoolean, src: v.src, deps: v.deps,
		}, nil
	}
}

func (tr *translation) emptyOf(n core.Node, v *value) (*value, error) {
	v, err := tr.normalize(n, v)
	if err != nil {
		return nil, err
	}
	switch {
	case v.collection && v.flattened:
		return tr.aggregate(v, "COUNT(*) = 0", "TRUE", core.TypeBoolean), nil
	case v.collection:
		return &value{
			sql:    fmt.Sprintf("(COALESCE(%s, 0) = 0)", tr.d().JSONArrayLength(tr.json(v))),
			scalar: true, typ: core.TypeBoolean, src: v.src, deps: v.deps,
		}, nil
	default:
		return &value{
			sql:    fmt.Sprintf("(%s IS NULL)", tr.json(v)),
			scalar: true, typ: core.TypeBoolean, src: v.src, deps: v.deps,
		}, nil
	}
}

func (tr *translation) countOf(n core.Node, v *value) (*value, error) {
	v, err := tr.normalize(n, v)
	if err != nil {
		return nil, err
	}
	switch {
	case v.collection && v.flattened:
		return tr.aggregate(v, "COUNT(*)", "0", core.TypeInteger), nil
	case v.collection:
		return &value{
			sql:    fmt.Sprintf("COALESCE(%s, 0)", tr.d().JSONArrayLength(tr.json(v))),
			scalar: true, typ: core.TypeInteger, src: v.src, deps: v.deps,
		}, nil
	default:
		return &value{
			sql:    fmt.Sprintf("CASE WHEN %s IS NULL THEN 0 ELSE 1 END", tr.json(v)),
			scalar: true, typ: core.TypeInteger, src: v.src, deps: v.deps,
		}, nil
	}
}

// aggregate builds a per-resource aggregation CTE over a flattened
// collection, joined back to the base table so resources without elements
// still get the default.
func (tr *translation) aggregate(v *value, agg, def string, typ core.Type) *value {
	c := tr.builder.Add("agg", &cte.CTE{
		BaseTable:    v.src.table,
		BaseAlias:    "f",
		SelectClause: fmt.Sprintf("f.id AS id, %s AS value", agg),
		GroupBy:      "f.id",
		Deps:         append([]string(nil), v.deps...),
	})
	s := tr.baseSource()
	s.joins = append(s.joins, fmt.Sprintf("LEFT JOIN %s ON %s.id = r.id", c.Name, c.Name))
	return &value{
		sql:    fmt.Sprintf("COALESCE(%s.value, %s)", c.Name, def),
		scalar: true,
		typ:    typ,
		src:    s,
		deps:   []string{c.Name},
	}
}

func (tr *translation) distinct(n *core.FunctionCall, target *value) (*value, error) {
	v, err := tr.ensureFlattened(n, target, "distinct")
	if err != nil {
		return nil, err
	}
	// Grouping instead of DISTINCT keeps each element's first-occurrence
	// position, so distinct() preserves the source order.
	c := tr.builder.Add("dedup", &cte.CTE{
		BaseTable:    v.src.table,
		BaseAlias:    "f",
		SelectClause: "f.id AS id, f.value AS value, MIN(f.ord) AS ord",
		GroupBy:      "f.id, f.value",
		Deps:         append([]string(nil), v.deps...),
	})
	return &value{
		root:       "f.value",
		typ:        v.typ,
		fhirType:   v.fhirType,
		collection: true,
		flattened:  true,
		src:        &source{table: c.Name, alias: "f", id: "f.id"},
		deps:       []string{c.Name},
	}, nil
}

// element returns the collection element at a fixed position; on singletons
// position 0 is the identity.
func (tr *translation) element(n *core.FunctionCall, v *value, idx string) (*value, error) {
	v, err := tr.normalize(n, v)
	if err != nil {
		return nil, err
	}
	if !v.collection {
		return v, nil
	}
	if !v.flattened {
		return &value{
			sql:      tr.d().JSONArrayElement(tr.json(v), idx),
			typ:      v.typ,
			fhirType: v.fhirType,
			src:      v.src,
			deps:     v.deps,
		}, nil
	}
	c := tr.positionCTE(v, "ord", fmt.Sprintf("f.rn = (%s) + 1", idx), "pick")
	return tr.joinSingleton(c, v.typ, v.fhirType), nil
}

func (tr *translation) last(n *core.FunctionCall, v *value) (*value, error) {
	v, err := tr.normalize(n, v)
	if err != nil {
		return nil, err
	}
	if !v.collection {
		return v, nil
	}
	if !v.flattened {
		arr := tr.json(v)
		return &value{
			sql:      tr.d().JSONArrayElement(arr, fmt.Sprintf("%s - 1", tr.d().JSONArrayLength(arr))),
			typ:      v.typ,
			fhirType: v.fhirType,
			src:      v.src,
			deps:     v.deps,
		}, nil
	}
	c := tr.positionCTE(v, "ord DESC", "f.rn = 1", "pick")
	return tr.joinSingleton(c, v.typ, v.fhirType), nil
}

// slice keeps the elements matching a row_number condition.
func (tr *translation) slice(n *core.FunctionCall, target *value, cond, prefix string) (*value, error) {
	v, err := tr.ensureFlattened(n, target, n.Name)
	if err != nil {
		return nil, err
	}
	c := tr.positionCTE(v, "ord", cond, prefix)
	return &value{
		root:       "f.value",
		typ:        v.typ,
		fhirType:   v.fhirType,
		collection: true,
		flattened:  true,
		src:        &source{table: c.Name, alias: "f", id: "f.id"},
		deps:       []string{c.Name},
	}, nil
}

func (tr *translation) iif(n *core.FunctionCall, focus *value) (*value, error) {
	if err := tr.wantArgs(n, 2, 3); err != nil {
		return nil, err
	}
	cond, err := tr.expr(n.Args[0], focus)
	if err != nil {
		return nil, err
	}
	then, err := tr.expr(n.Args[1], focus)
	if err != nil {
		return nil, err
	}
	var els *value
	if len(n.Args) == 3 {
		els, err = tr.expr(n.Args[2], focus)
		if err != nil {
			return nil, err
		}
	} else {
		els = &value{sql: "NULL", scalar: true, typ: core.TypeAny}
	}
	if cond.collection {
		return nil, tr.errf(n, "iif() condition must be a singleton")
	}
	if then.collection || els.collection {
		return nil, tr.errf(n, "iif() branches must be singletons")
	}

	src, err := tr.combine(n, cond, then, els)
	if err != nil {
		return nil, err
	}
	typ := then.typ
	if els.typ != then.typ && els.typ != core.TypeAny {
		typ = core.TypeAny
	}
	return &value{
		sql: fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END",
			tr.boolOf(cond), tr.scalarOf(then), tr.scalarOf(els)),
		scalar: true,
		typ:    typ,
		src:    src,
		deps:   mergeDeps(cond.deps, then.deps, els.deps),
	}, nil
}

// stringFn applies a single-argument SQL string function to a singleton.
func (tr *translation) stringFn(n *core.FunctionCall, target *value, f func(string) string, typ core.Type) (*value, error) {
	if err := tr.wantArgs(n, 0, 0); err != nil {
		return nil, err
	}
	if target.collection {
		return nil, tr.errf(n, "%s() requires a singleton", n.Name)
	}
	return &value{
		sql:    f(tr.scalarAs(target, core.TypeString)),
		scalar: true, typ: typ, src: target.src, deps: target.deps,
	}, nil
}

func (tr *translation) substring(n *core.FunctionCall, target *value, focus *value) (*value, error) {
	if err := tr.wantArgs(n, 1, 2); err != nil {
		return nil, err
	}
	if target.collection {
		return nil, tr.errf(n, "substring() requires a singleton")
	}
	s := tr.scalarAs(target, core.TypeString)
	start, err := tr.intArg(n.Args[0], focus)
	if err != nil {
		return nil, err
	}
	// FHIRPath start is zero-based, SQL SUBSTR is one-based.
	sql := fmt.Sprintf("SUBSTR(%s, (%s) + 1", s, start)
	if len(n.Args) == 2 {
		length, err := tr.intArg(n.Args[1], focus)
		if err != nil {
			return nil, err
		}
		sql += fmt.Sprintf(", %s", length)
	}
	sql += ")"
	return &value{sql: sql, scalar: true, typ: core.TypeString, src: target.src, deps: target.deps}, nil
}

// stringArgFn handles the string functions taking one string argument.
func (tr *translation) stringArgFn(n *core.FunctionCall, target *value, focus *value) (*value, error) {
	min, max := 1, 1
	if n.Name == "replace" {
		min, max = 2, 2
	}
	if err := tr.wantArgs(n, min, max); err != nil {
		return nil, err
	}
	if target.collection {
		return nil, tr.errf(n, "%s() requires a singleton", n.Name)
	}
	s := tr.scalarAs(target, core.TypeString)

	args := make([]string, len(n.Args))
	deps := [][]string{target.deps}
	for i, a := range n.Args {
		av, err := tr.expr(a, focus)
		if err != nil {
			return nil, err
		}
		args[i] = tr.scalarAs(av, core.TypeString)
		deps = append(deps, av.deps)
	}

	var sql string
	typ := core.TypeBoolean
	switch n.Name {
	case "startsWith":
		sql = fmt.Sprintf("(SUBSTR(%s, 1, LENGTH(%s)) = %s)", s, args[0], args[0])
	case "endsWith":
		sql = fmt.Sprintf("(SUBSTR(%s, LENGTH(%s) - LENGTH(%s) + 1) = %s)", s, s, args[0], args[0])
	case "contains":
		sql = fmt.Sprintf("(POSITION(%s IN %s) > 0)", args[0], s)
	case "indexOf":
		sql = fmt.Sprintf("(POSITION(%s IN %s) - 1)", args[0], s)
		typ = core.TypeInteger
	case "replace":
		sql = fmt.Sprintf("REPLACE(%s, %s, %s)", s, args[0], args[1])
		typ = core.TypeString
	}
	return &value{sql: sql, scalar: true, typ: typ, src: target.src, deps: mergeDeps(deps...)}, nil
}

func (tr *translation) convert(n *core.FunctionCall, target *value, typ core.Type) (*value, error) {
	if err := tr.wantArgs(n, 0, 0); err != nil {
		return nil, err
	}
	if target.collection {
		return nil, tr.errf(n, "%s() requires a singleton", n.Name)
	}
	return &value{
		sql:    tr.scalarAs(target, typ),
		scalar: true, typ: typ, src: target.src, deps: target.deps,
	}, nil
}

func (tr *translation) mathFn(n *core.FunctionCall, target *value, fn string) (*value, error) {
	if err := tr.wantArgs(n, 0, 0); err != nil {
		return nil, err
	}
	if target.collection {
		return nil, tr.errf(n, "%s() requires a singleton", n.Name)
	}
	typ := target.typ
	if !typ.IsNumeric() {
		typ = core.TypeDecimal
	}
	resultType := typ
	if fn == "CEIL" || fn == "FLOOR" || fn == "TRUNC" {
		resultType = core.TypeInteger
	}
	sql := fmt.Sprintf("%s(%s)", fn, tr.scalarAs(target, typ))
	if resultType == core.TypeInteger && typ != core.TypeInteger {
		sql = tr.d().CastTo(sql, core.TypeInteger)
	}
	return &value{sql: sql, scalar: true, typ: resultType, src: target.src, deps: target.deps}, nil
}

func (tr *translation) round(n *core.FunctionCall, target *value, focus *value) (*value, error) {
	if err := tr.wantArgs(n, 0, 1); err != nil {
		return nil, err
	}
	if target.collection {
		return nil, tr.errf(n, "round() requires a singleton")
	}
	s := tr.scalarAs(target, core.TypeDecimal)
	if len(n.Args) == 1 {
		prec, err := tr.intArg(n.Args[0], focus)
		if err != nil {
			return nil, err
		}
		return &value{
			sql:    fmt.Sprintf("ROUND(%s, %s)", s, prec),
			scalar: true, typ: core.TypeDecimal, src: target.src, deps: target.deps,
		}, nil
	}
	return &value{
		sql:    fmt.Sprintf("ROUND(%s)", s),
		scalar: true, typ: core.TypeDecimal, src: target.src, deps: target.deps,
	}, nil
}

// intArg translates an argument expected to be a singleton integer.
func (tr *translation) intArg(e core.Expr, focus *value) (string, error) {
	v, err := tr.expr(e, focus)
	if err != nil {
		return "", err
	}
	if v.collection {
		return "", tr.errf(e, "argument must be a singleton integer")
	}
	return tr.scalarAs(v, core.TypeInteger), nil
}

// typeArg extracts a type name from an ofType() argument, which parses as an
// identifier or qualified path.
func (tr *translation) typeArg(e core.Expr) (string, error) {
	switch n := e.(type) {
	case *core.IdentifierExpr:
		return n.Name, nil
	case *core.PathExpr:
		if base, ok := n.Expr.(*core.IdentifierExpr); ok {
			return base.Name + "." + n.Name, nil
		}
	}
	return "", tr.errf(e, "expected a type name")
}
