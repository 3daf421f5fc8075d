// Package stormsql translates a SQL SELECT statement into a storm query.
package stormsql

import (
	"fmt"
	"strconv"

	"github.com/araddon/dateparse"
	"github.com/asdine/storm/v3/q"
	"github.com/pkg/errors"
	"github.com/xwb1989/sqlparser"
)

type (
	// A SelectClause contains all the parsed SQL data.
	// Field names are resolved to the record's struct fields.
	SelectClause struct {
		SelectedFields  []string
		Count           bool
		Tablename       string
		Matcher         q.Matcher
		Skip            int
		Limit           int
		OrderBy         []string
		OrderByReversed bool
	}

	// A Resolver returns the struct field of the given column, it fails for unknown columns.
	Resolver func(table, column string) (string, error)

	parser struct {
		table   string
		resolve Resolver
	}
)

// ParseSelect parses the given SELECT statement.
func ParseSelect(sql string, resolve Resolver) (*SelectClause, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse SQL")
	}

	s, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, errors.New("not a select statement")
	}

	var sc SelectClause

	// FROM items
	if len(s.From) != 1 {
		return nil, errors.New("select from exactly one table")
	}
	from, ok := s.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, errors.New("unsupported table expression")
	}
	sc.Tablename = sqlparser.GetTableName(from.Expr).String()
	p := &parser{table: sc.Tablename, resolve: resolve}

	// SELECT * ...
	// SELECT title,updated_at ...
	// SELECT count(*) ...
	for _, se := range s.SelectExprs {
		switch v := se.(type) {
		case *sqlparser.StarExpr:
			sc.SelectedFields = []string{}
		case *sqlparser.AliasedExpr:
			switch v := v.Expr.(type) {
			case *sqlparser.ColName:
				field, err := p.field(v)
				if err != nil {
					return nil, err
				}
				sc.SelectedFields = append(sc.SelectedFields, field)
			case *sqlparser.FuncExpr:
				if !v.Name.EqualString("count") {
					return nil, errors.Errorf("unsupported function %s", v.Name.String())
				}
				sc.SelectedFields = []string{}
				sc.Count = true
			default:
				return nil, errors.New("unsupported select expression")
			}
		default:
			return nil, errors.New("unsupported select expression")
		}
	}

	// WHERE
	sc.Matcher = q.And()
	if s.Where != nil {
		if sc.Matcher, err = p.where(s.Where.Expr); err != nil {
			return nil, err
		}
	}

	// LIMIT 5
	// LIMIT 2,5
	if s.Limit != nil {
		if s.Limit.Offset != nil {
			if sc.Skip, err = p.integer(s.Limit.Offset); err != nil {
				return nil, err
			}
		}
		if sc.Limit, err = p.integer(s.Limit.Rowcount); err != nil {
			return nil, err
		}
	}

	// ORDER BY updated_at
	// ORDER BY updated_at DESC
	// ORDER BY updated_at DESC, created_at ASC     => All will be DESC due to storm limitation
	for _, ob := range s.OrderBy {
		if ob.Direction == sqlparser.DescScr {
			sc.OrderByReversed = true
		}
		col, ok := ob.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, errors.New("unsupported order by expression")
		}
		field, err := p.field(col)
		if err != nil {
			return nil, err
		}
		sc.OrderBy = append(sc.OrderBy, field)
	}

	return &sc, nil
}

func (p *parser) field(col *sqlparser.ColName) (string, error) {
	if p.resolve == nil {
		return col.Name.String(), nil
	}
	return p.resolve(p.table, col.Name.String())
}

func (p *parser) integer(expr sqlparser.Expr) (int, error) {
	v, ok := expr.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.IntVal {
		return 0, errors.New("expected an integer")
	}
	return strconv.Atoi(string(v.Val))
}

func (p *parser) where(expr sqlparser.Expr) (q.Matcher, error) {
	switch v := expr.(type) {
	case *sqlparser.ComparisonExpr:
		col, ok := v.Left.(*sqlparser.ColName)
		if !ok {
			return nil, errors.New("left operand must be a column")
		}
		field, err := p.field(col)
		if err != nil {
			return nil, err
		}

		value, err := p.value(v.Right)
		if err != nil {
			return nil, err
		}

		switch v.Operator {
		case sqlparser.EqualStr:
			return q.Eq(field, value), nil
		case sqlparser.NotEqualStr:
			return q.Not(q.Eq(field, value)), nil
		case sqlparser.GreaterThanStr:
			return q.Gt(field, value), nil
		case sqlparser.GreaterEqualStr:
			return q.Gte(field, value), nil
		case sqlparser.LessThanStr:
			return q.Lt(field, value), nil
		case sqlparser.LessEqualStr:
			return q.Lte(field, value), nil
		case sqlparser.InStr:
			return q.In(field, value), nil
		case sqlparser.LikeStr:
			return q.Re(field, fmt.Sprintf("%v", value)), nil
		default:
			return nil, errors.Errorf("unsupported operator %s", v.Operator)
		}
	case *sqlparser.IsExpr:
		col, ok := v.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, errors.New("operand must be a column")
		}
		field, err := p.field(col)
		if err != nil {
			return nil, err
		}

		switch v.Operator {
		case sqlparser.IsNullStr:
			return q.Eq(field, nil), nil
		case sqlparser.IsNotNullStr:
			return q.Not(q.Eq(field, nil)), nil
		case sqlparser.IsTrueStr:
			return q.Eq(field, true), nil
		case sqlparser.IsFalseStr:
			return q.Eq(field, false), nil
		default:
			return nil, errors.Errorf("unsupported operator %s", v.Operator)
		}
	case *sqlparser.AndExpr:
		left, err := p.where(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := p.where(v.Right)
		if err != nil {
			return nil, err
		}
		return q.And(left, right), nil
	case *sqlparser.OrExpr:
		left, err := p.where(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := p.where(v.Right)
		if err != nil {
			return nil, err
		}
		return q.Or(left, right), nil
	case *sqlparser.NotExpr:
		m, err := p.where(v.Expr)
		if err != nil {
			return nil, err
		}
		return q.Not(m), nil
	case *sqlparser.ParenExpr:
		return p.where(v.Expr)
	default:
		return nil, errors.Errorf("unsupported where expression %T", v)
	}
}

func (p *parser) value(expr sqlparser.Expr) (any, error) {
	switch v := expr.(type) {
	case sqlparser.BoolVal:
		return bool(v), nil
	case *sqlparser.NullVal:
		return nil, nil
	case sqlparser.ValTuple:
		var tuple []any
		for _, t := range v {
			value, err := p.value(t)
			if err != nil {
				return nil, err
			}
			tuple = append(tuple, value)
		}
		return tuple, nil
	case *sqlparser.SQLVal:
		return parseSQLVal(v)
	default:
		return nil, errors.Errorf("unsupported value %T", v)
	}
}

func parseSQLVal(v *sqlparser.SQLVal) (any, error) {
	switch v.Type {
	case sqlparser.StrVal:
		// Dates are compared as time.Time
		if t, err := dateparse.ParseAny(string(v.Val)); err == nil {
			return t.UTC(), nil
		}
		return string(v.Val), nil
	case sqlparser.IntVal:
		return strconv.Atoi(string(v.Val))
	case sqlparser.FloatVal:
		return strconv.ParseFloat(string(v.Val), 64)
	case sqlparser.HexNum:
		return strconv.ParseInt(string(v.Val), 16, 64)
	case sqlparser.HexVal:
		return v.HexDecode()
	case sqlparser.BitVal:
		return v.Val[0] == 1, nil
	default:
		return nil, errors.New("unsupported SQL value")
	}
}
