package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// argList collects bind values and hands out numbered postgres
// placeholders in the order values are bound.
type argList struct {
	vals []any
	next int
}

func (a *argList) bind(v any) string {
	a.vals = append(a.vals, v)
	a.next++
	return "$" + strconv.Itoa(a.next)
}

type Condition interface {
	writeTo(sb *strings.Builder, args *argList)
}

type eqCondition struct {
	column string
	value  any
}

func Eq(column string, value any) Condition {
	return eqCondition{column: column, value: value}
}

func (c eqCondition) writeTo(sb *strings.Builder, args *argList) {
	sb.WriteString(c.column)
	sb.WriteString(" = ")
	sb.WriteString(args.bind(c.value))
}

type ltCondition struct {
	column string
	value  any
}

func Lt(column string, value any) Condition {
	return ltCondition{column: column, value: value}
}

func (c ltCondition) writeTo(sb *strings.Builder, args *argList) {
	sb.WriteString(c.column)
	sb.WriteString(" < ")
	sb.WriteString(args.bind(c.value))
}

type inCondition struct {
	column string
	values []any
}

func In(column string, values []any) Condition {
	return inCondition{column: column, values: values}
}

func (c inCondition) writeTo(sb *strings.Builder, args *argList) {
	if len(c.values) == 0 {
		sb.WriteString("1=0")
		return
	}

	sb.WriteString(c.column)
	sb.WriteString(" IN (")
	for i, v := range c.values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(args.bind(v))
	}
	sb.WriteString(")")
}

type isNullCondition struct {
	column string
}

func IsNull(column string) Condition {
	return isNullCondition{column: column}
}

func (c isNullCondition) writeTo(sb *strings.Builder, _ *argList) {
	sb.WriteString(c.column)
	sb.WriteString(" IS NULL")
}

type exprCondition struct {
	expr string
	args []any
}

// Expr injects a raw fragment. Each ? in expr is rewritten to the next
// numbered placeholder.
func Expr(expr string, args ...any) Condition {
	return exprCondition{expr: expr, args: args}
}

func (c exprCondition) writeTo(sb *strings.Builder, args *argList) {
	writeExpr(sb, c.expr, c.args, args)
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	groupBy []string
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) GroupBy(parts ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, parts...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)

	args := &argList{vals: make([]any, 0, len(b.where))}
	writeWhere(&sb, b.where, args)
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(b.limit))
	}

	return sb.String(), args.vals, nil
}

type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
	suffix  string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

func (b *InsertBuilder) Suffix(sql string) *InsertBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(") VALUES ")

	args := &argList{vals: make([]any, 0, len(b.rows)*len(b.columns))}
	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		if rowIdx > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for colIdx, value := range row {
			if colIdx > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(args.bind(value))
		}
		sb.WriteString(")")
	}

	if b.suffix != "" {
		sb.WriteString(" ")
		writeExpr(&sb, b.suffix, nil, args)
	}

	return sb.String(), args.vals, nil
}

type setClause struct {
	column   string
	value    any
	expr     string
	exprArgs []any
	isExpr   bool
}

type UpdateBuilder struct {
	table  string
	sets   []setClause
	where  []Condition
	suffix string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, setClause{column: column, value: value})
	return b
}

func (b *UpdateBuilder) SetExpr(column, expr string, args ...any) *UpdateBuilder {
	b.sets = append(b.sets, setClause{column: column, expr: expr, exprArgs: args, isExpr: true})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) Suffix(sql string) *UpdateBuilder {
	b.suffix = strings.TrimSpace(sql)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	sb.WriteString(" SET ")

	args := &argList{vals: make([]any, 0, len(b.sets)+len(b.where))}
	for i, s := range b.sets {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(s.column)
		sb.WriteString(" = ")
		if s.isExpr {
			writeExpr(&sb, s.expr, s.exprArgs, args)
			continue
		}
		sb.WriteString(args.bind(s.value))
	}

	writeWhere(&sb, b.where, args)
	if b.suffix != "" {
		sb.WriteString(" ")
		writeExpr(&sb, b.suffix, nil, args)
	}

	return sb.String(), args.vals, nil
}

type DeleteBuilder struct {
	table string
	where []Condition
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Where(conditions ...Condition) *DeleteBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("delete table is required")
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("delete conditions are required")
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.table)

	args := &argList{vals: make([]any, 0, len(b.where))}
	writeWhere(&sb, b.where, args)

	return sb.String(), args.vals, nil
}

func writeWhere(sb *strings.Builder, conditions []Condition, args *argList) {
	if len(conditions) == 0 {
		return
	}
	sb.WriteString(" WHERE ")
	for i, c := range conditions {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		c.writeTo(sb, args)
	}
}

func writeExpr(sb *strings.Builder, expr string, exprArgs []any, args *argList) {
	if len(exprArgs) == 0 {
		sb.WriteString(expr)
		return
	}

	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] == '?' && next < len(exprArgs) {
			sb.WriteString(args.bind(exprArgs[next]))
			next++
			continue
		}
		sb.WriteByte(expr[i])
	}
}
