package messaging

import (
	"encoding/json"
	"math"
)

// Content is a decoded JSON object. Accessors return zero values for missing
// keys or mismatched types rather than failing, since kernels differ in which
// optional fields they send.
type Content map[string]any

func (c Content) String(key string) string {
	s, _ := c[key].(string)
	return s
}

func (c Content) Bool(key string) bool {
	b, _ := c[key].(bool)
	return b
}

// Int reads a numeric field. JSON numbers decode as float64; json.Number and
// native integers are accepted as well.
func (c Content) Int(key string) (int, bool) {
	switch v := c[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Object returns a nested object, or an empty Content.
func (c Content) Object(key string) Content {
	switch v := c[key].(type) {
	case map[string]any:
		return Content(v)
	case Content:
		return v
	default:
		return Content{}
	}
}

// Strings returns a string array field, skipping non-string elements.
func (c Content) Strings(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
