// Package translator lowers FHIRPath AST nodes to SQL. It owns all
// translation semantics: three-valued logic, type coercion, collection
// handling and choice-type expansion. Databases differ only through the
// dialect interface, never through translation logic.
package translator

import (
	"fmt"
	"strings"

	"github.com/fhir4ds/fhirsql/pkg/core"
	"github.com/fhir4ds/fhirsql/pkg/cte"
	"github.com/fhir4ds/fhirsql/pkg/dialect"
	"github.com/fhir4ds/fhirsql/pkg/fhirtypes"
	"github.com/fhir4ds/fhirsql/pkg/token"
)

// Options configures a Translator.
type Options struct {
	// ResourceType is the FHIR resource type the expression is evaluated
	// against, e.g. "Patient".
	ResourceType string

	// Table is the resource table name. Defaults to "fhir_resources".
	Table string

	// Env maps external constant names (%name) to string values.
	Env map[string]string
}

// Translator compiles FHIRPath expressions for one resource type and dialect.
// It is safe for concurrent use; per-expression state lives in a translation.
type Translator struct {
	dialect      dialect.Dialect
	registry     *fhirtypes.Registry
	resourceType string
	table        string
	env          map[string]string
}

// New creates a Translator.
func New(d dialect.Dialect, reg *fhirtypes.Registry, opts Options) *Translator {
	table := opts.Table
	if table == "" {
		table = "fhir_resources"
	}
	return &Translator{
		dialect:      d,
		registry:     reg,
		resourceType: opts.ResourceType,
		table:        table,
		env:          opts.Env,
	}
}

// Result is the output of one translation: the assembled query plus the
// final fragment and the CTEs behind it.
type Result struct {
	// SQL is the complete executable query. It selects two columns:
	// id (the resource id) and value (the expression result).
	SQL      string
	Fragment *core.SQLFragment
	CTEs     []*cte.CTE
}

// TranslateError reports an expression the translator cannot lower,
// with the source position of the offending node.
type TranslateError struct {
	Pos     token.Position
	Message string
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("translate error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Translate lowers an expression to a single SQL query over the resource
// table. The query yields one row per resource for singleton results and one
// row per collection element for flattened collection results.
func (t *Translator) Translate(expr core.Expr) (*Result, error) {
	tr := &translation{t: t, builder: cte.NewBuilder(t.dialect)}

	v, err := tr.expr(expr, tr.rootValue())
	if err != nil {
		return nil, err
	}
	if v.src == nil {
		v.src = tr.baseSource()
	}

	col := tr.valueColumn(v)
	final := fmt.Sprintf("SELECT %s AS id, %s AS value FROM %s", v.src.id, col, v.src.fromItem())
	if v.collection && v.flattened {
		// Flattened row sets carry their element order in ord; without it
		// the database is free to return rows in any order.
		final += fmt.Sprintf(" ORDER BY %s, %s.ord", v.src.id, v.src.alias)
	}

	sql, err := cte.Assemble(tr.builder.CTEs(), final)
	if err != nil {
		return nil, err
	}

	return &Result{
		SQL: sql,
		Fragment: &core.SQLFragment{
			SQL:         col,
			Type:        v.typ,
			Singleton:   !v.collection,
			SourceAlias: v.src.alias,
			Deps:        v.deps,
		},
		CTEs: tr.builder.CTEs(),
	}, nil
}

// translation is the per-expression state: the CTE builder and helpers.
type translation struct {
	t       *Translator
	builder *cte.Builder
}

func (tr *translation) d() dialect.Dialect { return tr.t.dialect }

func (tr *translation) errf(n core.Node, format string, args ...any) error {
	return &TranslateError{Pos: n.Pos(), Message: fmt.Sprintf(format, args...)}
}

// source is the row set a value's SQL references: the resource table, a CTE,
// or the resource table joined against aggregate CTEs.
type source struct {
	table string
	alias string
	id    string
	base  bool
	joins []string
}

func (s *source) fromItem() string {
	item := s.table + " " + s.alias
	for _, j := range s.joins {
		item += " " + j
	}
	return item
}

func (s *source) clone() *source {
	c := *s
	c.joins = append([]string(nil), s.joins...)
	return &c
}

// value is the translation state of one subexpression.
//
// A value is either rooted (root + path: a JSON navigation not yet rendered,
// so primitive leaves can extract text in one step) or computed (sql set;
// scalar marks SQL-typed rather than JSON-typed results).
type value struct {
	root   string
	path   []string
	sql    string
	scalar bool

	typ      core.Type
	fhirType string

	// collection is true for collection-valued expressions. flattened marks
	// collections already exploded into rows of a CTE; unflattened
	// collections are JSON arrays within the current row.
	collection bool
	flattened  bool

	src  *source
	deps []string

	// choice is set right after navigating a choice element, so is/as/ofType
	// can narrow to a concrete variant key.
	choice *choiceRef
}

type choiceRef struct {
	base    string // JSON expression of the parent object
	parent  string // parent FHIR type name
	element string // element name, e.g. "value" for value[x]
}

func (v *value) clone() *value {
	c := *v
	c.path = append([]string(nil), v.path...)
	c.deps = append([]string(nil), v.deps...)
	return &c
}

// rootValue is the resource itself: the JSON column of the base table.
func (tr *translation) rootValue() *value {
	return &value{
		root:     "r.resource",
		typ:      core.TypeComplex,
		fhirType: tr.t.resourceType,
		src:      tr.baseSource(),
	}
}

func (tr *translation) baseSource() *source {
	return &source{table: tr.t.table, alias: "r", id: "r.id", base: true}
}

// json renders the JSON-typed form of a value.
func (tr *translation) json(v *value) string {
	if v.root != "" {
		return tr.d().JSONExtract(v.root, v.path...)
	}
	return v.sql
}

// scalarOf renders the SQL-typed form of a value, casting JSON text to the
// value's static type.
func (tr *translation) scalarOf(v *value) string {
	return tr.scalarAs(v, v.typ)
}

// scalarAs renders a value as a SQL scalar of type t.
func (tr *translation) scalarAs(v *value, t core.Type) string {
	if v.scalar {
		if v.typ == t || t == core.TypeAny {
			return v.sql
		}
		return tr.d().CastTo(v.sql, t)
	}
	var s string
	if v.root != "" {
		s = tr.d().JSONExtractString(v.root, v.path...)
	} else {
		s = tr.d().JSONExtractString(v.sql)
	}
	switch t {
	case core.TypeString, core.TypeAny, core.TypeComplex:
		return s
	default:
		return tr.d().CastTo(s, t)
	}
}

// boolOf renders a value as a SQL boolean.
func (tr *translation) boolOf(v *value) string {
	return tr.scalarAs(v, core.TypeBoolean)
}

// valueColumn picks the final projection for a value: scalar results as-is,
// primitive leaves as typed scalars, complex values as JSON.
func (tr *translation) valueColumn(v *value) string {
	if v.scalar {
		return v.sql
	}
	switch v.typ {
	case core.TypeComplex, core.TypeAny, core.TypeQuantity:
		return tr.json(v)
	default:
		if v.collection && !v.flattened {
			// A JSON array of primitives stays JSON.
			return tr.json(v)
		}
		return tr.scalarOf(v)
	}
}

// expr dispatches translation over the AST. focus is the current context
// item: the resource at top level, the collection element inside where(),
// select() and friends.
func (tr *translation) expr(e core.Expr, focus *value) (*value, error) {
	switch n := e.(type) {
	case *core.Literal:
		return tr.literal(n)
	case *core.ParenExpr:
		return tr.expr(n.Expr, focus)
	case *core.IdentifierExpr:
		return tr.identifier(n, focus)
	case *core.PathExpr:
		base, err := tr.expr(n.Expr, focus)
		if err != nil {
			return nil, err
		}
		return tr.navigate(n, base, n.Name)
	case *core.IndexExpr:
		return tr.index(n, focus)
	case *core.FunctionCall:
		return tr.function(n, focus)
	case *core.BinaryExpr:
		return tr.binary(n, focus)
	case *core.UnaryExpr:
		return tr.unary(n, focus)
	case *core.TypeExpr:
		return tr.typeOp(n, focus)
	case *core.VariableExpr:
		return tr.variable(n, focus)
	case *core.ExternalConstant:
		return tr.external(n)
	default:
		return nil, tr.errf(e, "unsupported expression %T", e)
	}
}

func (tr *translation) identifier(n *core.IdentifierExpr, focus *value) (*value, error) {
	if tr.t.registry.IsResource(n.Name) {
		if n.Name != tr.t.resourceType {
			return nil, tr.errf(n, "expression targets %s but the translator is configured for %s", n.Name, tr.t.resourceType)
		}
		return tr.rootValue(), nil
	}
	return tr.navigate(n, focus, n.Name)
}

func (tr *translation) variable(n *core.VariableExpr, focus *value) (*value, error) {
	switch n.Name {
	case "this":
		return focus.clone(), nil
	default:
		return nil, tr.errf(n, "variable $%s is not supported", n.Name)
	}
}

func (tr *translation) external(n *core.ExternalConstant) (*value, error) {
	if n.Name == "resource" {
		return tr.rootValue(), nil
	}
	if val, ok := tr.t.env[n.Name]; ok {
		return &value{sql: quoteString(val), scalar: true, typ: core.TypeString}, nil
	}
	return nil, tr.errf(n, "undefined external constant %%%s", n.Name)
}

// navigate resolves element navigation: base.name. Collections are flattened
// first so navigation maps over each element.
func (tr *translation) navigate(n core.Node, base *value, name string) (*value, error) {
	v := base.clone()
	if v.collection && !v.flattened {
		var err error
		v, err = tr.flatten(n, v)
		if err != nil {
			return nil, err
		}
	}

	if v.choice != nil || v.fhirType == "" {
		// Untyped navigation: plain JSON extraction, cardinality unknown.
		nv := tr.extend(v, name)
		nv.typ = core.TypeAny
		nv.fhirType = ""
		nv.choice = nil
		return nv, nil
	}

	info, ok := tr.t.registry.Lookup(v.fhirType, name)
	if !ok {
		nv := tr.extend(v, name)
		nv.typ = core.TypeAny
		nv.fhirType = ""
		return nv, nil
	}

	if info.Choice {
		variants, err := tr.t.registry.ExpandChoice(v.fhirType, name)
		if err != nil {
			return nil, tr.errf(n, "%s", err)
		}
		parent := tr.json(v)
		parts := make([]string, len(variants))
		for i, variant := range variants {
			parts[i] = tr.d().JSONExtract(parent, variant.Key)
		}
		return &value{
			sql:        fmt.Sprintf("COALESCE(%s)", strings.Join(parts, ", ")),
			typ:        core.TypeAny,
			collection: v.collection,
			flattened:  v.flattened,
			src:        v.src,
			deps:       v.deps,
			choice:     &choiceRef{base: parent, parent: v.fhirType, element: name},
		}, nil
	}

	nv := tr.extend(v, name)
	nv.typ = info.Type
	nv.fhirType = info.Complex
	if info.Array {
		nv.collection = true
		nv.flattened = false
	}
	return nv, nil
}

// extend appends one path segment, keeping the rooted form when possible so
// primitive leaves render as a single extraction.
func (tr *translation) extend(v *value, name string) *value {
	nv := v.clone()
	if nv.root == "" {
		nv.root = nv.sql
		nv.sql = ""
		nv.path = nil
	}
	nv.path = append(nv.path, name)
	nv.scalar = false
	return nv
}

// flatten explodes an unflattened collection into a CTE with one row per
// element, exposed as f.value.
func (tr *translation) flatten(n core.Node, v *value) (*value, error) {
	if v.src == nil {
		return nil, tr.errf(n, "cannot flatten a literal")
	}
	if len(v.src.joins) > 0 {
		return nil, tr.errf(n, "cannot flatten across an aggregate result")
	}
	c := tr.builder.Flatten(v.src.table, v.src.alias, v.src.id, tr.json(v), v.deps...)
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

// ensureFlattened flattens a collection, rejecting singletons.
func (tr *translation) ensureFlattened(n core.Node, v *value, fn string) (*value, error) {
	if !v.collection {
		return nil, tr.errf(n, "%s() requires a collection", fn)
	}
	if v.flattened {
		return v, nil
	}
	return tr.flatten(n, v)
}

// elementFocus is the singleton view of a flattened collection element, used
// as the context item inside where(), select(), all() and exists(criteria).
func elementFocus(v *value) *value {
	f := v.clone()
	f.collection = false
	f.flattened = false
	return f
}

// index translates expr[i]. Unflattened collections index the JSON array
// directly; flattened collections go through a row_number CTE joined back to
// the resource table.
func (tr *translation) index(n *core.IndexExpr, focus *value) (*value, error) {
	v, err := tr.expr(n.Expr, focus)
	if err != nil {
		return nil, err
	}
	iv, err := tr.expr(n.Index, focus)
	if err != nil {
		return nil, err
	}
	idx := tr.scalarAs(iv, core.TypeInteger)

	if !v.collection {
		if idx == "0" {
			return v, nil
		}
		return &value{sql: "NULL", scalar: true, typ: v.typ, fhirType: v.fhirType, src: v.src, deps: v.deps}, nil
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

// positionCTE filters a flattened collection by element position. rn numbers
// the elements of the current collection by their carried source order; order
// is "ord" or "ord DESC" for position-from-the-end functions.
func (tr *translation) positionCTE(v *value, order, cond, prefix string) *cte.CTE {
	sub := fmt.Sprintf("(SELECT id, value, row_number() OVER (PARTITION BY id ORDER BY %s) AS rn FROM %s)", order, v.src.table)
	return tr.builder.Add(prefix, &cte.CTE{
		BaseTable:    sub,
		BaseAlias:    "f",
		SelectClause: "f.id AS id, f.value AS value, f.rn AS ord",
		Where:        cond,
		Deps:         append([]string(nil), v.deps...),
	})
}

// joinSingleton exposes a per-resource singleton CTE as a value over the
// base table via LEFT JOIN, so resources without a row still appear.
func (tr *translation) joinSingleton(c *cte.CTE, typ core.Type, fhirType string) *value {
	s := tr.baseSource()
	s.joins = append(s.joins, fmt.Sprintf("LEFT JOIN %s ON %s.id = r.id", c.Name, c.Name))
	return &value{
		root:     c.Name + ".value",
		typ:      typ,
		fhirType: fhirType,
		src:      s,
		deps:     []string{c.Name},
	}
}

// asRowSet turns any value into a flattened (id, value) row set whose value
// column is the element itself: singletons wrap into a one-row-per-resource
// CTE, and pending navigation off a flattened element materializes into a
// projection CTE. Used by union and membership.
func (tr *translation) asRowSet(n core.Node, v *value) (*value, error) {
	if v.collection {
		fv, err := tr.ensureFlattened(n, v, "collection")
		if err != nil {
			return nil, err
		}
		plain := (fv.root == "f.value" && len(fv.path) == 0) || (fv.scalar && fv.sql == "f.value")
		if plain {
			return fv, nil
		}
		col := tr.json(fv)
		if fv.scalar {
			col = fv.sql
		}
		c := tr.builder.Add("proj", &cte.CTE{
			BaseTable:    fv.src.table,
			BaseAlias:    "f",
			SelectClause: fmt.Sprintf("f.id AS id, %s AS value, f.ord AS ord", col),
			Deps:         append([]string(nil), fv.deps...),
		})
		return &value{
			root:       "f.value",
			typ:        fv.typ,
			fhirType:   fv.fhirType,
			collection: true,
			flattened:  true,
			src:        &source{table: c.Name, alias: "f", id: "f.id"},
			deps:       []string{c.Name},
		}, nil
	}
	if v.src == nil {
		return nil, tr.errf(n, "cannot build a collection from a literal")
	}
	j := tr.json(v)
	c := tr.builder.Add("row", &cte.CTE{
		BaseTable:    v.src.table,
		BaseAlias:    v.src.alias,
		SelectClause: fmt.Sprintf("%s AS id, %s AS value, 1 AS ord", v.src.id, j),
		Where:        j + " IS NOT NULL",
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

// combine merges the sources of sibling operands. Values over the same row
// set compose directly; base-table values additionally merge aggregate
// joins. Values over different flattened collections cannot be combined.
func (tr *translation) combine(n core.Node, vs ...*value) (*source, error) {
	var out *source
	for _, v := range vs {
		if v.src == nil {
			continue
		}
		if out == nil {
			out = v.src.clone()
			continue
		}
		if out.table == v.src.table && out.alias == v.src.alias {
			out.joins = mergeJoins(out.joins, v.src.joins)
			continue
		}
		if out.base && v.src.base {
			out.joins = mergeJoins(out.joins, v.src.joins)
			continue
		}
		return nil, tr.errf(n, "cannot combine expressions over different collections")
	}
	if out == nil {
		out = tr.baseSource()
	}
	return out, nil
}

func mergeJoins(a, b []string) []string {
	for _, j := range b {
		found := false
		for _, e := range a {
			if e == j {
				found = true
				break
			}
		}
		if !found {
			a = append(a, j)
		}
	}
	return a
}

func mergeDeps(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, d := range list {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
