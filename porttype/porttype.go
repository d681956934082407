// Package porttype implements the portable column-type vocabulary: a small
// variant type with a total rendering function per target engine, driven by
// a declarative struct instead of re-parsed SQL text.
package porttype

import "fmt"

// Engine identifies a target SQL engine. Four engines (mysql, postgres,
// mssql, sqlite3) are named here so that every PortableType variant has
// somewhere to render.
type Engine int

const (
	MySQL Engine = iota
	Postgres
	MSSQL
	SQLite3
)

func (e Engine) String() string {
	switch e {
	case MySQL:
		return "mysql"
	case Postgres:
		return "postgres"
	case MSSQL:
		return "mssql"
	case SQLite3:
		return "sqlite3"
	default:
		return "unknown"
	}
}

// Kind is the tag of the PortableType variant.
type Kind int

const (
	KindInteger Kind = iota
	KindDecimal
	KindFloat
	KindDouble
	KindMoney
	KindBoolean
	KindChar
	KindVarChar
	KindNChar
	KindNVarChar
	KindText
	KindBinary
	KindVarBinary
	KindBlob
	KindDate
	KindTime
	KindDateTime
	KindDateTimeOffset
	KindUuid
	KindJson
	KindXml
)

// Type is the portable column type. Only the fields relevant to Kind are
// populated: Width for Integer, Precision/Scale for Decimal, N for the sized
// Char/Binary family.
type Type struct {
	Kind      Kind
	Width     int // Integer: bit width, e.g. 16/32/64
	Precision int // Decimal
	Scale     int // Decimal
	N         int // Char/VarChar/NChar/NVarChar/Binary/VarBinary length; 0 means unspecified/max
}

func Integer(width int) Type           { return Type{Kind: KindInteger, Width: width} }
func Decimal(precision, scale int) Type { return Type{Kind: KindDecimal, Precision: precision, Scale: scale} }
func Float() Type                      { return Type{Kind: KindFloat} }
func Double() Type                     { return Type{Kind: KindDouble} }
func Money() Type                      { return Type{Kind: KindMoney} }
func Boolean() Type                    { return Type{Kind: KindBoolean} }
func Char(n int) Type                  { return Type{Kind: KindChar, N: n} }
func VarChar(n int) Type               { return Type{Kind: KindVarChar, N: n} }
func NChar(n int) Type                 { return Type{Kind: KindNChar, N: n} }
func NVarChar(n int) Type              { return Type{Kind: KindNVarChar, N: n} }
func Text() Type                       { return Type{Kind: KindText} }
func Binary(n int) Type                { return Type{Kind: KindBinary, N: n} }
func VarBinary(n int) Type             { return Type{Kind: KindVarBinary, N: n} }
func Blob() Type                       { return Type{Kind: KindBlob} }
func Date() Type                       { return Type{Kind: KindDate} }
func Time() Type                       { return Type{Kind: KindTime} }
func DateTime() Type                   { return Type{Kind: KindDateTime} }
func DateTimeOffset() Type             { return Type{Kind: KindDateTimeOffset} }
func Uuid() Type                       { return Type{Kind: KindUuid} }
func Json() Type                       { return Type{Kind: KindJson} }
func Xml() Type                        { return Type{Kind: KindXml} }

// Render returns the native type name for engine. Rendering is total: every
// Kind has a case for every Engine, so Render never returns an error.
func (t Type) Render(engine Engine) string {
	switch engine {
	case MySQL:
		return t.renderMySQL()
	case Postgres:
		return t.renderPostgres()
	case MSSQL:
		return t.renderMSSQL()
	case SQLite3:
		return t.renderSQLite3()
	default:
		panic(fmt.Sprintf("porttype: unknown engine %v", engine))
	}
}

func (t Type) renderMySQL() string {
	switch t.Kind {
	case KindInteger:
		switch {
		case t.Width <= 16:
			return "smallint"
		case t.Width <= 32:
			return "int"
		default:
			return "bigint"
		}
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindMoney:
		return "decimal(19,4)"
	case KindBoolean:
		return "tinyint(1)"
	case KindChar:
		return fmt.Sprintf("char(%d)", t.N)
	case KindVarChar, KindNVarChar:
		return fmt.Sprintf("varchar(%d)", t.N)
	case KindNChar:
		return fmt.Sprintf("char(%d)", t.N)
	case KindText:
		return "text"
	case KindBinary:
		return fmt.Sprintf("binary(%d)", t.N)
	case KindVarBinary:
		return fmt.Sprintf("varbinary(%d)", t.N)
	case KindBlob:
		return "blob"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindDateTimeOffset:
		return "timestamp"
	case KindUuid:
		return "char(36)"
	case KindJson:
		return "json"
	case KindXml:
		return "text"
	default:
		panic(fmt.Sprintf("porttype: unknown kind %v", t.Kind))
	}
}

func (t Type) renderPostgres() string {
	switch t.Kind {
	case KindInteger:
		switch {
		case t.Width <= 16:
			return "smallint"
		case t.Width <= 32:
			return "integer"
		default:
			return "bigint"
		}
	case KindDecimal:
		return fmt.Sprintf("numeric(%d,%d)", t.Precision, t.Scale)
	case KindFloat:
		return "real"
	case KindDouble:
		return "double precision"
	case KindMoney:
		return "money"
	case KindBoolean:
		return "boolean"
	case KindChar:
		return fmt.Sprintf("character(%d)", t.N)
	case KindVarChar, KindNVarChar:
		return fmt.Sprintf("character varying(%d)", t.N)
	case KindNChar:
		return fmt.Sprintf("character(%d)", t.N)
	case KindText:
		return "text"
	case KindBinary, KindVarBinary, KindBlob:
		return "bytea"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "timestamp"
	case KindDateTimeOffset:
		return "timestamp with time zone"
	case KindUuid:
		return "uuid"
	case KindJson:
		return "jsonb"
	case KindXml:
		return "xml"
	default:
		panic(fmt.Sprintf("porttype: unknown kind %v", t.Kind))
	}
}

func (t Type) renderMSSQL() string {
	switch t.Kind {
	case KindInteger:
		switch {
		case t.Width <= 16:
			return "smallint"
		case t.Width <= 32:
			return "int"
		default:
			return "bigint"
		}
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case KindFloat:
		return "real"
	case KindDouble:
		return "float"
	case KindMoney:
		return "money"
	case KindBoolean:
		return "bit"
	case KindChar:
		return fmt.Sprintf("char(%d)", t.N)
	case KindVarChar:
		return fmt.Sprintf("varchar(%s)", sizeOrMax(t.N))
	case KindNChar:
		return fmt.Sprintf("nchar(%d)", t.N)
	case KindNVarChar:
		return fmt.Sprintf("nvarchar(%s)", sizeOrMax(t.N))
	case KindText:
		return "nvarchar(max)"
	case KindBinary:
		return fmt.Sprintf("binary(%d)", t.N)
	case KindVarBinary:
		return fmt.Sprintf("varbinary(%s)", sizeOrMax(t.N))
	case KindBlob:
		return "varbinary(max)"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime2"
	case KindDateTimeOffset:
		return "datetimeoffset"
	case KindUuid:
		return "uniqueidentifier"
	case KindJson:
		return "nvarchar(max)"
	case KindXml:
		return "xml"
	default:
		panic(fmt.Sprintf("porttype: unknown kind %v", t.Kind))
	}
}

// sizeOrMax renders MSSQL's "max" sentinel for a zero/unspecified length
// instead of emitting the invalid varchar(0).
func sizeOrMax(n int) string {
	if n <= 0 {
		return "max"
	}
	return fmt.Sprintf("%d", n)
}

func (t Type) renderSQLite3() string {
	switch t.Kind {
	case KindInteger:
		return "integer"
	case KindDecimal, KindMoney:
		return "numeric"
	case KindFloat, KindDouble:
		return "real"
	case KindBoolean:
		return "boolean"
	case KindChar, KindVarChar, KindNChar, KindNVarChar, KindText, KindUuid, KindXml:
		return "text"
	case KindBinary, KindVarBinary, KindBlob:
		return "blob"
	case KindDate, KindTime, KindDateTime, KindDateTimeOffset:
		return "text"
	case KindJson:
		return "text"
	default:
		panic(fmt.Sprintf("porttype: unknown kind %v", t.Kind))
	}
}
