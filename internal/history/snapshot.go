package history

import (
	"reflect"
	"time"
)

// Snapshot projects entity values onto the descriptor: every non-excluded
// scalar plus "<relation>Id" for each to-one relation.
func Snapshot(d Descriptor, values map[string]any) map[string]any {
	out := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		if f.Excluded {
			continue
		}
		out[f.Key()] = normalize(values[f.Name])
	}
	return out
}

// Diff returns the fields whose value differs between previous and current,
// keyed like Snapshot and holding the new value. Timestamps are ignored.
func Diff(d Descriptor, previous, current map[string]any) map[string]any {
	changes := make(map[string]any)
	for _, f := range d.Fields {
		if f.Excluded {
			continue
		}
		if _, ts := timestampFields[f.Name]; ts {
			continue
		}
		before := normalize(previous[f.Name])
		after := normalize(current[f.Name])
		if !reflect.DeepEqual(before, after) {
			changes[f.Key()] = after
		}
	}
	return changes
}

// normalize flattens pointers and times so that values loaded from the
// database compare equal to the in-memory ones.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return formatTime(*x)
	case time.Time:
		return formatTime(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	}

	// named string types such as invoice states
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return v
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
