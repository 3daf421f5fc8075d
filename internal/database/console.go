package database

import (
	"github.com/asdine/storm/v3"
	"github.com/mdouchement/starving/internal/model"
	"github.com/mdouchement/starving/pkg/stormsql"
	"github.com/mdouchement/starving/pkg/structs"
	"github.com/pkg/errors"
)

type table struct {
	record  func() any
	records func() any
}

var tables = map[string]table{
	"items": {
		record:  func() any { return &model.Item{} },
		records: func() any { return &[]*model.Item{} },
	},
	"days": {
		record:  func() any { return &model.Day{} },
		records: func() any { return &[]*model.Day{} },
	},
	"preferences": {
		record:  func() any { return &model.UserPreferences{} },
		records: func() any { return &[]*model.UserPreferences{} },
	},
}

func resolve(name, column string) (string, error) {
	t, ok := tables[name]
	if !ok {
		return "", errors.Errorf("unknown tablename: %s", name)
	}

	columns, err := structs.Columns(t.record(), "json")
	if err != nil {
		return "", err
	}
	if field, ok := columns[column]; ok {
		return field, nil
	}
	for _, field := range columns {
		if field == column {
			return field, nil
		}
	}
	return "", errors.Errorf("unknown column %s in %s", column, name)
}

// Select runs a SQL SELECT statement over the items, days or preferences.
func (c *strm) Select(sql string) ([]map[string]any, error) {
	sc, err := stormsql.ParseSelect(sql, resolve)
	if err != nil {
		return nil, err
	}

	t, ok := tables[sc.Tablename]
	if !ok {
		return nil, errors.Errorf("unknown tablename: %s", sc.Tablename)
	}

	//
	// Prepare request

	query := c.db.Select(sc.Matcher)
	if sc.Skip > 0 {
		query.Skip(sc.Skip)
	}
	if sc.Limit > 0 {
		query.Limit(sc.Limit)
	}
	if len(sc.OrderBy) > 0 {
		query.OrderBy(sc.OrderBy...)
		if sc.OrderByReversed {
			query.Reverse()
		}
	}

	//
	// Execute

	if sc.Count {
		n, err := query.Count(t.record())
		if err != nil {
			return nil, errors.Wrap(err, "could not perform query")
		}
		return []map[string]any{{"count": n}}, nil
	}

	records := t.records()
	err = query.Find(records)
	if err == storm.ErrNotFound {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not perform query")
	}

	return project(records, sc.SelectedFields)
}

func project(records any, fields []string) ([]map[string]any, error) {
	var rows []map[string]any
	add := func(record any) error {
		row, err := structs.Project(record, fields)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	}

	switch records := records.(type) {
	case *[]*model.Item:
		for _, r := range *records {
			if err := add(r); err != nil {
				return nil, err
			}
		}
	case *[]*model.Day:
		for _, r := range *records {
			if err := add(r); err != nil {
				return nil, err
			}
		}
	case *[]*model.UserPreferences:
		for _, r := range *records {
			if err := add(r); err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}
