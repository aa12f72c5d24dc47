package core

// SQLFragment is the unit of translation output: a SQL expression plus the
// static facts the rest of the compiler needs to compose it.
type SQLFragment struct {
	// SQL is the generated SQL expression. It references columns of the
	// row alias named by SourceAlias.
	SQL string

	// Type is the static FHIRPath type of the expression result.
	Type Type

	// Singleton is true when the expression yields at most one value.
	// Collection-valued fragments live behind a flattening CTE.
	Singleton bool

	// SourceAlias is the row alias the SQL references. For fragments over
	// the base resource table this is the table alias; for flattened
	// collections it is the flattening CTE's alias.
	SourceAlias string

	// Deps names the CTEs this fragment depends on, in creation order.
	Deps []string
}

// DependsOn records a CTE dependency, preserving order and uniqueness.
func (f *SQLFragment) DependsOn(name string) {
	for _, d := range f.Deps {
		if d == name {
			return
		}
	}
	f.Deps = append(f.Deps, name)
}

// MergeDeps folds another fragment's dependencies into this one.
func (f *SQLFragment) MergeDeps(other *SQLFragment) {
	for _, d := range other.Deps {
		f.DependsOn(d)
	}
}
