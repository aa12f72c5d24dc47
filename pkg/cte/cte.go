// Package cte provides the CTE builder and assembler: fragments of SQL are
// wrapped into named common table expressions (flattening nested JSON arrays
// via the dialect's LATERAL UNNEST form), then assembled into a single
// dependency-ordered WITH query that executes over the whole resource table
// at once, never per row.
package cte

// CTE is one named common table expression in the generated query.
// Every CTE projects an `id` column (the resource id, carried through the
// whole chain) and a `value` column (the collection element). CTEs that
// represent ordered row sets additionally project an `ord` column holding
// the element's position in its source array, so position functions and
// the final projection stay deterministic.
type CTE struct {
	// Name is the unique CTE name within one translation.
	Name string

	// BaseTable is the FROM item: the resource table or an upstream CTE.
	BaseTable string

	// BaseAlias is the alias for BaseTable inside this CTE.
	BaseAlias string

	// SelectClause is the projected column list.
	SelectClause string

	// FlattenItem is an extra FROM item flattening a JSON array
	// (dialect LATERAL UNNEST form). Empty when the CTE does not flatten.
	FlattenItem string

	// Where is an optional filter predicate.
	Where string

	// GroupBy is an optional grouping clause (aggregate CTEs group by id).
	GroupBy string

	// Deps names the upstream CTEs this one references.
	Deps []string
}

// Render returns the CTE body: SELECT ... FROM ... [WHERE ...] [GROUP BY ...].
func (c *CTE) Render() string {
	sql := "SELECT " + c.SelectClause + " FROM " + c.BaseTable + " " + c.BaseAlias
	if c.FlattenItem != "" {
		sql += ", " + c.FlattenItem
	}
	if c.Where != "" {
		sql += " WHERE " + c.Where
	}
	if c.GroupBy != "" {
		sql += " GROUP BY " + c.GroupBy
	}
	return sql
}
