// Package validate checks request payloads against declarative per-field rule
// strings such as "required|integer|min:1|max:5".
//
// Every field is checked independently and every failing rule is reported, so
// callers always get the complete set of problems. Payload keys without rules
// are ignored.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Payload is a decoded JSON request body.
type Payload map[string]any

// Rules maps a field name to its rule expression.
type Rules map[string]string

type Result struct {
	Valid  bool                `json:"valid"`
	Errors map[string][]string `json:"errors"`
}

type ruleKind int

const (
	ruleRequired ruleKind = iota
	ruleString
	ruleInteger
	ruleMin
	ruleMax
)

type rule struct {
	kind  ruleKind
	bound float64
	arg   string
}

type fieldRules struct {
	field   string
	rules   []rule
	numeric bool
}

// RuleSet is a compiled Rules value, safe for concurrent use.
type RuleSet struct {
	fields []fieldRules
}

func Compile(rules Rules) (*RuleSet, error) {
	names := make([]string, 0, len(rules))
	for f := range rules {
		names = append(names, f)
	}
	sort.Strings(names)

	rs := &RuleSet{fields: make([]fieldRules, 0, len(names))}
	for _, f := range names {
		fr := fieldRules{field: f}
		for _, raw := range strings.Split(rules[f], "|") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			r, err := parseRule(raw)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f, err)
			}
			if r.kind == ruleInteger {
				fr.numeric = true
			}
			fr.rules = append(fr.rules, r)
		}
		rs.fields = append(rs.fields, fr)
	}
	return rs, nil
}

func MustCompile(rules Rules) *RuleSet {
	rs, err := Compile(rules)
	if err != nil {
		panic("validate: " + err.Error())
	}
	return rs
}

// Validate compiles rules and checks p against them. It panics on a malformed
// rule expression.
func Validate(p Payload, rules Rules) Result {
	return MustCompile(rules).Validate(p)
}

func parseRule(raw string) (rule, error) {
	name, arg, hasArg := strings.Cut(raw, ":")
	switch name {
	case "required":
		return rule{kind: ruleRequired}, nil
	case "string":
		return rule{kind: ruleString}, nil
	case "integer":
		return rule{kind: ruleInteger}, nil
	case "min", "max":
		if !hasArg {
			return rule{}, fmt.Errorf("rule %q needs an argument", name)
		}
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return rule{}, fmt.Errorf("rule %q: bad argument %q", name, arg)
		}
		k := ruleMin
		if name == "max" {
			k = ruleMax
		}
		return rule{kind: k, bound: n, arg: arg}, nil
	default:
		return rule{}, fmt.Errorf("unknown rule %q", name)
	}
}

func (rs *RuleSet) Validate(p Payload) Result {
	errs := make(map[string][]string)
	for _, fr := range rs.fields {
		v, ok := p[fr.field]
		present := ok && filled(v)
		for _, r := range fr.rules {
			if r.kind != ruleRequired && !present {
				continue
			}
			if msg, failed := fr.check(r, v); failed {
				errs[fr.field] = append(errs[fr.field], msg)
			}
		}
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func (fr fieldRules) check(r rule, v any) (string, bool) {
	attr := strings.ReplaceAll(fr.field, "_", " ")
	switch r.kind {
	case ruleRequired:
		if !filled(v) {
			return fmt.Sprintf("The %s field is required.", attr), true
		}
	case ruleString:
		if _, ok := v.(string); !ok {
			return fmt.Sprintf("The %s must be a string.", attr), true
		}
	case ruleInteger:
		if !isInteger(v) {
			return fmt.Sprintf("The %s must be an integer.", attr), true
		}
	case ruleMin, ruleMax:
		size, numeric := fr.size(v)
		if r.kind == ruleMin && !(size >= r.bound) {
			if numeric {
				return fmt.Sprintf("The %s must be at least %s.", attr, r.arg), true
			}
			return fmt.Sprintf("The %s must be at least %s characters.", attr, r.arg), true
		}
		if r.kind == ruleMax && !(size <= r.bound) {
			if numeric {
				return fmt.Sprintf("The %s may not be greater than %s.", attr, r.arg), true
			}
			return fmt.Sprintf("The %s may not be greater than %s characters.", attr, r.arg), true
		}
	}
	return "", false
}

// size is the value compared by min/max; NaN never satisfies a bound.
func (fr fieldRules) size(v any) (float64, bool) {
	if n, ok := number(v); ok {
		return n, true
	}
	switch t := v.(type) {
	case string:
		if fr.numeric {
			n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				return math.NaN(), true
			}
			return n, true
		}
		return float64(utf8.RuneCountInString(t)), false
	case []any:
		return float64(len(t)), false
	}
	return math.NaN(), fr.numeric
}

func filled(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	}
	return true
}

func isInteger(v any) bool {
	if n, ok := number(v); ok {
		return !math.IsInf(n, 0) && n == math.Trunc(n)
	}
	if s, ok := v.(string); ok {
		i, err := strconv.ParseInt(s, 10, 64)
		return err == nil && strconv.FormatInt(i, 10) == s
	}
	return false
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
