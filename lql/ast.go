package lql

import (
	"strconv"
	"strings"

	"github.com/repldef/repldef/syncerr"
)

// Expr is a parsed LQL expression.
type Expr interface {
	Eval(row map[string]any) (any, error)
}

// columnRef resolves a column reference (case-insensitive) against the
// source payload. Missing columns evaluate to empty string.
type columnRef struct{ name string }

func (c columnRef) Eval(row map[string]any) (any, error) {
	lower := strings.ToLower(c.name)
	for k, v := range row {
		if strings.ToLower(k) == lower {
			if v == nil {
				return "", nil
			}
			return v, nil
		}
	}
	return "", nil
}

type literal struct{ value any }

func (l literal) Eval(row map[string]any) (any, error) { return l.value, nil }

// call is a function application, fn applied to args in order.
type call struct {
	fn   string
	args []Expr
}

func (c call) Eval(row map[string]any) (any, error) {
	values := make([]any, len(c.args))
	for i, a := range c.args {
		v, err := a.Eval(row)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	fn, ok := functions[strings.ToLower(c.fn)]
	if !ok {
		return nil, syncerr.Invalid("lql: unknown function %q", c.fn)
	}
	return fn(values)
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func isEmpty(v any) bool {
	return v == nil || asString(v) == ""
}
