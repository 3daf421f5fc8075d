// Package structs reads struct fields by name.
package structs

import (
	"strings"

	"github.com/oleiade/reflections"
	"github.com/pkg/errors"
)

// Columns returns the field names of obj indexed by their tagKey name, embedded structs included.
// Fields without a name in the tag are skipped.
func Columns(obj any, tagKey string) (map[string]string, error) {
	tags, err := reflections.TagsDeep(obj, tagKey)
	if err != nil {
		return nil, errors.Wrap(err, "could not read tags")
	}

	columns := make(map[string]string, len(tags))
	for field, tag := range tags {
		name := strings.Split(tag, ",")[0]
		if name == "" || name == "-" {
			continue
		}
		columns[name] = field
	}
	return columns, nil
}

// Project returns the given fields of obj indexed by field name.
// All the exported fields are returned when fields is empty.
// obj can whether be a structure or pointer to structure.
func Project(obj any, fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		items, err := reflections.ItemsDeep(obj)
		return items, errors.Wrap(err, "could not read fields")
	}

	projection := make(map[string]any, len(fields))
	for _, field := range fields {
		v, err := reflections.GetField(obj, field)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read field %s", field)
		}
		projection[field] = v
	}
	return projection, nil
}
