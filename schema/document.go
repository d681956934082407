package schema

import (
	"encoding/json"
	"strings"

	"github.com/repldef/repldef/syncerr"
	"github.com/repldef/repldef/util"
)

// LoadDefinitionJSON decodes a Definition from its plain JSON representation
// (the Go struct's own field names). Unlike a SQL-text schema source, the
// document here is already structured, never SQL text. Indexes, foreign keys
// and unique constraints left with an empty Name are assigned one following
// PostgreSQL's own constraint-naming convention, so a hand-written document
// never has to spell out a name for every index.
func LoadDefinitionJSON(data []byte) (Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return Definition{}, syncerr.Invalid("schema: invalid schema document: %v", err)
	}
	assignDefaultNames(&def)
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// assignDefaultNames fills in any blank Index/ForeignKey/UniqueConstraint
// Name using BuildPostgresConstraintName's <table>_<column(s)>_<suffix>
// convention, applied uniformly regardless of the target engine so that a
// document's constraint names stay stable across MySQL/Postgres/MSSQL/SQLite.
func assignDefaultNames(def *Definition) {
	for ti := range def.Tables {
		t := &def.Tables[ti]
		for ii := range t.Indexes {
			idx := &t.Indexes[ii]
			if idx.Name != "" {
				continue
			}
			suffix := "idx"
			if idx.Unique {
				suffix = "key"
			}
			idx.Name = util.BuildPostgresConstraintName(t.Name, indexColumnPart(*idx), suffix)
		}
		for fi := range t.ForeignKeys {
			fk := &t.ForeignKeys[fi]
			if fk.Name == "" {
				fk.Name = util.BuildPostgresConstraintName(t.Name, strings.Join(fk.LocalColumns, "_"), "fkey")
			}
		}
		for ui := range t.UniqueConstraints {
			uc := &t.UniqueConstraints[ui]
			if uc.Name == "" {
				uc.Name = util.BuildPostgresConstraintName(t.Name, strings.Join(uc.Columns, "_"), "key")
			}
		}
	}
}

func indexColumnPart(idx IndexDefinition) string {
	if len(idx.Columns) > 0 {
		return strings.Join(idx.Columns, "_")
	}
	return "expr"
}
