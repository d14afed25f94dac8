package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// interpolate replaces every {{dotted.path}} placeholder in s with the
// value looked up from ctx, frozen at the time the node runs. Paths that
// don't resolve are left as the literal "" — a missing value is never
// fatal to template rendering, only to whatever consumes the result.
func interpolate(s string, ctx map[string]interface{}) string {
	var out strings.Builder
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "{{")
		if start < 0 {
			out.WriteString(s[i:])
			break
		}
		start += i
		out.WriteString(s[i:start])

		end := strings.Index(s[start:], "}}")
		if end < 0 {
			out.WriteString(s[start:])
			break
		}
		end += start

		path := strings.TrimSpace(s[start+2 : end])
		out.WriteString(renderValue(lookup(ctx, path)))
		i = end + 2
	}
	return out.String()
}

func lookup(ctx map[string]interface{}, path string) interface{} {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	var cur interface{} = ctx
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func renderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// interpolateMap walks a params map and interpolates every string value,
// leaving other types untouched.
func interpolateMap(params map[string]interface{}, ctx map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		switch val := v.(type) {
		case string:
			out[k] = interpolate(val, ctx)
		case map[string]interface{}:
			out[k] = interpolateMap(val, ctx)
		default:
			out[k] = val
		}
	}
	return out
}
