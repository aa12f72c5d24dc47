package cte

import (
	"fmt"

	"github.com/fhir4ds/fhirsql/pkg/dialect"
)

// Builder accumulates the CTEs produced during one translation. Names are
// assigned sequentially so the same expression always generates the same SQL,
// and structurally identical CTEs are deduplicated to a single definition.
type Builder struct {
	dialect dialect.Dialect
	ctes    []*CTE
	byName  map[string]*CTE
	dedup   map[string]string // rendered body -> existing name
	seq     int
}

// NewBuilder creates a builder targeting the given dialect.
func NewBuilder(d dialect.Dialect) *Builder {
	return &Builder{
		dialect: d,
		byName:  make(map[string]*CTE),
		dedup:   make(map[string]string),
	}
}

// Add registers a CTE and assigns it a sequential name derived from prefix.
// If a structurally identical CTE is already registered the existing one is
// returned and no new definition is created. The name never appears in the
// CTE body, so deduplication keys on the rendered body alone.
func (b *Builder) Add(prefix string, c *CTE) *CTE {
	key := c.Render()
	if name, ok := b.dedup[key]; ok {
		return b.byName[name]
	}
	if c.Name == "" {
		b.seq++
		c.Name = fmt.Sprintf("%s_%d", prefix, b.seq)
	}
	b.dedup[key] = c.Name
	b.byName[c.Name] = c
	b.ctes = append(b.ctes, c)
	return c
}

// Flatten registers a CTE that explodes a JSON array into one row per
// element, carrying the resource id through. baseTable is the FROM item the
// array expression is evaluated against (the resource table or an upstream
// CTE), idExpr the id column in that source, and arrayExpr the JSON array.
// The flattened element is exposed as column `value`, its 1-based array
// position as column `ord`.
func (b *Builder) Flatten(baseTable, baseAlias, idExpr, arrayExpr string, deps ...string) *CTE {
	c := &CTE{
		BaseTable:    baseTable,
		BaseAlias:    baseAlias,
		SelectClause: fmt.Sprintf("%s AS id, u.value AS value, u.ord AS ord", idExpr),
		FlattenItem:  b.dialect.LateralUnnest(arrayExpr, "u"),
		Deps:         append([]string(nil), deps...),
	}
	return b.Add("flat", c)
}

// Get returns a registered CTE by name.
func (b *Builder) Get(name string) (*CTE, bool) {
	c, ok := b.byName[name]
	return c, ok
}

// CTEs returns all registered CTEs in registration order.
func (b *Builder) CTEs() []*CTE {
	return b.ctes
}

// Dialect returns the dialect this builder targets.
func (b *Builder) Dialect() dialect.Dialect {
	return b.dialect
}
