// Package defaultexpr translates a small default-expression DSL into each
// engine's native SQL. The translator is total: every recognized DSL form
// renders for every engine, and unrecognized function names pass through
// unmodified rather than failing.
package defaultexpr

import (
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v2"

	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/syncerr"
)

// curatedFuncs is the set of scalar functions with per-engine rendering
// rules. Anything else passes through unmodified.
var curatedFuncs = map[string]bool{
	"lower": true, "upper": true, "coalesce": true, "length": true,
	"trim": true, "abs": true, "round": true, "substring": true, "concat": true,
}

// Translate renders expr (a DSL string, case-insensitively recognized, with
// surrounding whitespace trimmed) as SQL for engine. Returns InvalidArgument
// for a null/empty input.
func Translate(expr string, engine porttype.Engine) (string, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return "", syncerr.Invalid("default expression must not be empty")
	}
	lower := strings.ToLower(trimmed)

	var result string
	switch {
	case lower == "now()" || lower == "current_timestamp()":
		result = translateTimestampNullary(engine)
	case lower == "current_date()":
		result = translateCurrentDate(engine)
	case lower == "current_time()":
		result = translateCurrentTime(engine)
	case lower == "gen_uuid()" || lower == "uuid()":
		result = translateUUID(engine)
	case lower == "true":
		result = translateBool(true, engine)
	case lower == "false":
		result = translateBool(false, engine)
	case isNumericLiteral(lower):
		result = lower
	case isStringLiteral(trimmed):
		// Documented design choice: the contents of
		// the quoted literal are lowercased as part of normalization.
		result = strings.ToLower(trimmed)
	default:
		if name, args, ok := parseCall(trimmed); ok {
			result = translateCall(name, args, engine)
		} else {
			result = lower
		}
	}

	if engine == porttype.Postgres {
		if _, err := pgquery.Parse("SELECT " + result + ";"); err != nil {
			return "", syncerr.Invalid("default expression is not valid postgres syntax: " + err.Error())
		}
	}
	return result, nil
}

func translateTimestampNullary(engine porttype.Engine) string {
	switch engine {
	case porttype.MSSQL:
		return "SYSDATETIME()"
	case porttype.SQLite3:
		return "CURRENT_TIMESTAMP"
	default:
		return "CURRENT_TIMESTAMP"
	}
}

func translateCurrentDate(engine porttype.Engine) string {
	switch engine {
	case porttype.MSSQL:
		return "CAST(SYSDATETIME() AS date)"
	default:
		return "CURRENT_DATE"
	}
}

func translateCurrentTime(engine porttype.Engine) string {
	switch engine {
	case porttype.MSSQL:
		return "CAST(SYSDATETIME() AS time)"
	default:
		return "CURRENT_TIME"
	}
}

func translateUUID(engine porttype.Engine) string {
	switch engine {
	case porttype.MySQL:
		return "(UUID())"
	case porttype.Postgres:
		return "gen_random_uuid()"
	case porttype.MSSQL:
		return "NEWID()"
	case porttype.SQLite3:
		// sqlite has no native random UUID function; this yields 32
		// lowercase hex characters from 16 random bytes, without the
		// dashes of the canonical UUID text form.
		return "(lower(hex(randomblob(16))))"
	default:
		return "NEWID()"
	}
}

func translateBool(v bool, engine porttype.Engine) string {
	switch engine {
	case porttype.MySQL, porttype.SQLite3, porttype.MSSQL:
		if v {
			return "1"
		}
		return "0"
	default:
		if v {
			return "true"
		}
		return "false"
	}
}

func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	seenDot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			continue
		case r == '-' && i == 0:
			continue
		case r == '.' && !seenDot:
			seenDot = true
		default:
			return false
		}
	}
	return true
}

func isStringLiteral(s string) bool {
	return len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\''
}

// parseCall splits "name(a, b, c)" into name and raw comma-split args. It
// does not attempt to understand nested parens beyond simple depth tracking,
// which suffices for the curated function set.
func parseCall(s string) (name string, args []string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return "", nil, false
	}
	name = strings.ToLower(strings.TrimSpace(s[:open]))
	if name == "" {
		return "", nil, false
	}
	inner := s[open+1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return name, nil, true
	}
	depth := 0
	var cur strings.Builder
	for _, r := range inner {
		switch r {
		case '(':
			depth++
			cur.WriteRune(r)
		case ')':
			depth--
			cur.WriteRune(r)
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	args = append(args, strings.TrimSpace(cur.String()))
	return name, args, true
}

func translateCall(name string, args []string, engine porttype.Engine) string {
	if !curatedFuncs[name] {
		// Unknown function names pass through unmodified.
		return name + "(" + strings.Join(args, ", ") + ")"
	}

	switch name {
	case "substring":
		return translateSubstring(args, engine)
	case "concat":
		return translateConcat(args, engine)
	default:
		return name + "(" + strings.Join(args, ", ") + ")"
	}
}

func translateSubstring(args []string, engine porttype.Engine) string {
	if len(args) != 3 {
		return "substring(" + strings.Join(args, ", ") + ")"
	}
	value, from, forLen := args[0], args[1], args[2]
	switch engine {
	case porttype.MySQL, porttype.SQLite3:
		return "substr(" + value + "," + from + "," + forLen + ")"
	default:
		return "substring(" + value + " from " + from + " for " + forLen + ")"
	}
}

func translateConcat(args []string, engine porttype.Engine) string {
	switch engine {
	case porttype.Postgres, porttype.SQLite3:
		return strings.Join(args, " || ")
	default:
		return "concat(" + strings.Join(args, ", ") + ")"
	}
}
