package repository

import "strings"

// updateBuilder assembles a parameterized UPDATE that only touches the
// columns that were explicitly set.  updated_at is always refreshed.
type updateBuilder struct {
	table string
	sets  []string
	args  []interface{}
}

func newUpdate(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

// set adds "col = ?" unconditionally.
func (b *updateBuilder) set(col string, v interface{}) *updateBuilder {
	b.sets = append(b.sets, col+" = ?")
	b.args = append(b.args, v)
	return b
}

// setOpt adds "col = ?" only when v is non-nil.
func setOpt[T any](b *updateBuilder, col string, v *T) {
	if v != nil {
		b.set(col, *v)
	}
}

// empty reports whether no column was set.
func (b *updateBuilder) empty() bool { return len(b.sets) == 0 }

// build returns the statement and its arguments, with the where argument
// last.
func (b *updateBuilder) build(whereCol string, whereArg interface{}) (string, []interface{}) {
	sets := append(append([]string{}, b.sets...), "updated_at = UTC_TIMESTAMP()")
	q := "UPDATE " + b.table + " SET " + strings.Join(sets, ", ") + " WHERE " + whereCol + " = ?"
	args := append(append([]interface{}{}, b.args...), whereArg)
	return q, args
}
