package validate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// String returns the value at key cast to a string the way the document layer
// casts scalars. Absent, null and non-scalar values give "".
func (p Payload) String(key string) string {
	switch t := p[key].(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// Int returns the value at key as an int. Numeric strings are parsed;
// fractions are truncated. Anything else gives 0.
func (p Payload) Int(key string) int {
	v := p[key]
	if n, ok := number(v); ok {
		return int(math.Trunc(n))
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return int(math.Trunc(f))
		}
	}
	return 0
}
