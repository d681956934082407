package lql

import (
	"strconv"
	"strings"
	"time"
)

type fn func(args []any) (any, error)

// functions is the curated, total LQL surface. Every entry is
// null-safe: it has a defined result when an argument is nil or the empty
// string.
var functions = map[string]fn{
	"upper": func(args []any) (any, error) {
		return strings.ToUpper(arg(args, 0)), nil
	},
	"lower": func(args []any) (any, error) {
		return strings.ToLower(arg(args, 0)), nil
	},
	"trim": func(args []any) (any, error) {
		return strings.TrimSpace(arg(args, 0)), nil
	},
	"length": func(args []any) (any, error) {
		return float64(len([]rune(arg(args, 0)))), nil
	},
	"coalesce": func(args []any) (any, error) {
		// Returns the first non-empty argument.
		for _, a := range args {
			if !isEmpty(a) {
				return a, nil
			}
		}
		return "", nil
	},
	"concat": func(args []any) (any, error) {
		// concat skips nulls.
		var b strings.Builder
		for _, a := range args {
			if a == nil {
				continue
			}
			b.WriteString(asString(a))
		}
		return b.String(), nil
	},
	"substring": func(args []any) (any, error) {
		v := arg(args, 0)
		start := intArg(args, 1)
		length := intArg(args, 2)
		runes := []rune(v)
		// 1-based start.
		idx := start - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(runes) {
			return "", nil
		}
		end := idx + length
		if length <= 0 || end > len(runes) {
			end = len(runes)
		}
		return string(runes[idx:end]), nil
	},
	"left": func(args []any) (any, error) {
		v := []rune(arg(args, 0))
		n := intArg(args, 1)
		if n < 0 {
			n = 0
		}
		if n > len(v) {
			n = len(v)
		}
		return string(v[:n]), nil
	},
	"right": func(args []any) (any, error) {
		v := []rune(arg(args, 0))
		n := intArg(args, 1)
		if n < 0 {
			n = 0
		}
		if n > len(v) {
			n = len(v)
		}
		return string(v[len(v)-n:]), nil
	},
	"replace": func(args []any) (any, error) {
		return strings.ReplaceAll(arg(args, 0), arg(args, 1), arg(args, 2)), nil
	},
	"dateformat": func(args []any) (any, error) {
		return dateFormat(arg(args, 0), arg(args, 1)), nil
	},
}

func arg(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	return asString(args[i])
}

func intArg(args []any, i int) int {
	if i >= len(args) {
		return 0
	}
	switch t := args[i].(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// dateFormatLayouts maps a curated set of input formats the mapping config
// may encounter to Go reference-time layouts for parsing.
var dateFormatLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// dateFormat parses v against a handful of common layouts and re-renders it
// using pattern (itself a Go reference-time layout). Invalid dates pass
// through unchanged rather than erroring.
func dateFormat(v, pattern string) string {
	if v == "" {
		return ""
	}
	for _, layout := range dateFormatLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(pattern)
		}
	}
	return v
}
