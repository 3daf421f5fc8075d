package docstore

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/remote"
)

// normalize converts v to its JSON representation so stored and compared values share the same types.
func normalize(v any) (any, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, err.Error())
	}

	var n any
	if err = json.Unmarshal(payload, &n); err != nil {
		return nil, apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, err.Error())
	}
	return n, nil
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func contains(s []any, v any) bool {
	for _, e := range s {
		if equal(e, v) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	fa, oka := number(a)
	fb, okb := number(b)
	if oka && okb {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// less orders missing values first, then booleans, numbers and strings.
func less(a, b any) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}

	switch ra {
	case 1:
		return !a.(bool) && b.(bool)
	case 2:
		fa, _ := number(a)
		fb, _ := number(b)
		return fa < fb
	case 3:
		return a.(string) < b.(string)
	default:
		return false
	}
}

func rank(v any) int {
	if _, ok := number(v); ok {
		return 2
	}
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		return 3
	default:
		return 4
	}
}

// lookup returns the value at the dotted path.
func lookup(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var v any = data
	for _, p := range parts {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[p]
	}
	return v
}

// parent returns the map holding the last segment of path, creating intermediate maps.
func parent(data map[string]any, path string) (map[string]any, string) {
	parts := strings.Split(path, ".")
	m := data
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	return m, parts[len(parts)-1]
}

// apply runs the field operations on data.
func apply(data map[string]any, ops []remote.Op) error {
	for _, op := range ops {
		if op.Path == "" {
			return apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "missing field path")
		}
		m, field := parent(data, op.Path)

		switch op.Kind {
		case remote.OpSet:
			v, err := normalize(op.Value)
			if err != nil {
				return err
			}
			m[field] = v
		case remote.OpArrayUnion:
			s := asSlice(m[field])
			if s == nil {
				s = []any{}
			}
			for _, value := range op.Values {
				v, err := normalize(value)
				if err != nil {
					return err
				}
				if !contains(s, v) {
					s = append(s, v)
				}
			}
			m[field] = s
		case remote.OpMapSet:
			if op.Key == "" {
				return apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "missing map key")
			}
			v, err := normalize(op.Value)
			if err != nil {
				return err
			}
			entries := asMap(m[field])
			if entries == nil {
				entries = map[string]any{}
			}
			entries[op.Key] = v
			m[field] = entries
		default:
			return apperror.Newf(apperror.KindValidation, apperror.TagInvalidParameters, "unsupported operation %q", op.Kind)
		}
	}
	return nil
}

func match(data map[string]any, f remote.Filter) bool {
	v := lookup(data, f.Field)
	switch f.Operator {
	case remote.Equal:
		return equal(v, f.Value)
	case remote.ArrayContains:
		return contains(asSlice(v), f.Value)
	default:
		return false
	}
}
