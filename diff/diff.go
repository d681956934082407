// Package diff is the pure Schema Diff planner: it compares
// two schema.Definition values and emits an ordered list of Operations. It
// never touches a database; migrate.Runner is what applies its output.
package diff

import (
	"sort"

	"github.com/repldef/repldef/schema"
	"github.com/repldef/repldef/util"
)

// Kind tags an Operation's variant.
type Kind int

const (
	CreateTable Kind = iota
	DropTable
	AddColumn
	DropColumn
	CreateIndex
	DropIndex
	AddForeignKey
	DropForeignKey
	AddUniqueConstraint
	DropUniqueConstraint
)

func (k Kind) String() string {
	switch k {
	case CreateTable:
		return "CreateTable"
	case DropTable:
		return "DropTable"
	case AddColumn:
		return "AddColumn"
	case DropColumn:
		return "DropColumn"
	case CreateIndex:
		return "CreateIndex"
	case DropIndex:
		return "DropIndex"
	case AddForeignKey:
		return "AddForeignKey"
	case DropForeignKey:
		return "DropForeignKey"
	case AddUniqueConstraint:
		return "AddUniqueConstraint"
	case DropUniqueConstraint:
		return "DropUniqueConstraint"
	default:
		return "Unknown"
	}
}

// Destructive reports whether this kind removes something.
func (k Kind) Destructive() bool {
	switch k {
	case DropTable, DropColumn, DropIndex, DropForeignKey, DropUniqueConstraint:
		return true
	default:
		return false
	}
}

// Operation is one tagged-variant schema change. Only the fields relevant
// to Kind are populated.
type Operation struct {
	Kind  Kind
	Table schema.TableDefinition // CreateTable / DropTable (Name/SchemaName set for drop)

	TableName string // all column/index/FK/constraint kinds
	Column    schema.ColumnDefinition
	ColumnName string // DropColumn

	Index schema.IndexDefinition
	IndexName string // DropIndex

	ForeignKey   schema.ForeignKeyDefinition
	ForeignKeyName string // DropForeignKey

	UniqueConstraint     schema.UniqueConstraintDefinition
	UniqueConstraintName string // DropUniqueConstraint
}

// Policy controls whether destructive operations are emitted at all
//.
type Policy struct {
	AllowDestructive bool
}

// Diff compares current to desired and returns the ordered operation list
// transforming current into desired. Matching is case-insensitive by name
// throughout (schema.NormalizeIdentifier); index/FK/constraint bodies are
// matched by name only, so renaming a body without renaming its name is not
// auto-detected (a known limitation).
func Diff(current, desired schema.Definition, policy Policy) ([]Operation, error) {
	if err := current.Validate(); err != nil {
		return nil, err
	}
	if err := desired.Validate(); err != nil {
		return nil, err
	}

	var additive []Operation
	var destructive []Operation

	desiredByName := indexTables(desired)
	currentByName := indexTables(current)

	// Collected per desired table in source order, then grouped by kind
	// below: CreateTable / AddColumn / CreateIndex / AddForeignKey /
	// AddUniqueConstraint, every op of one kind before the next kind starts.
	// Grouping matters across tables, not just within one: an
	// AddForeignKey on an existing table may reference a table that is
	// itself being created in this same Diff, and that CreateTable must
	// run first regardless of which table comes first in desired order.
	for _, dt := range desired.Tables {
		ct, exists := currentByName[schema.NormalizeIdentifier(dt.Name)]
		if !exists {
			additive = append(additive, Operation{Kind: CreateTable, Table: dt})
			for _, idx := range dt.Indexes {
				additive = append(additive, Operation{Kind: CreateIndex, TableName: dt.Name, Index: idx})
			}
			continue
		}
		ops, err := diffExistingTable(ct, dt, policy)
		if err != nil {
			return nil, err
		}
		additive = append(additive, ops.additive...)
		destructive = append(destructive, ops.destructive...)
	}
	sortAdditiveByKind(additive)

	// DropTable, ordered so a table is dropped before any table it holds a
	// foreign key to (children before parents). A cycle among the tables
	// being dropped falls back to current's iteration order.
	var toDrop []schema.TableDefinition
	for _, ctable := range current.Tables {
		if _, exists := desiredByName[schema.NormalizeIdentifier(ctable.Name)]; !exists {
			toDrop = append(toDrop, ctable)
		}
	}
	for _, t := range dropOrder(toDrop) {
		destructive = append(destructive, Operation{Kind: DropTable, Table: t})
	}

	if !policy.AllowDestructive {
		return additive, nil
	}
	return append(additive, destructive...), nil
}

// sortAdditiveByKind stable-sorts ops so every op of one Kind precedes every
// op of the next: CreateTable(0) < AddColumn(2) < CreateIndex(4) <
// AddForeignKey(6) < AddUniqueConstraint(8), the exact forward order this
// package guarantees. Source order within a kind is preserved.
func sortAdditiveByKind(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Kind < ops[j].Kind })
}

// dropOrder orders tables so that a table is dropped before any other
// dropped table it references by foreign key, using util.TopologicalSort
// over the referenced-by relation restricted to the tables in dropped. A
// foreign-key cycle among those tables makes no drop order safe, so the
// original (current-schema) order is used instead of failing outright.
func dropOrder(dropped []schema.TableDefinition) []schema.TableDefinition {
	if len(dropped) == 0 {
		return dropped
	}

	names := make(map[string]bool, len(dropped))
	for _, t := range dropped {
		names[schema.NormalizeIdentifier(t.Name)] = true
	}

	dependencies := make(map[string][]string)
	for _, t := range dropped {
		for _, fk := range t.ForeignKeys {
			ref := schema.NormalizeIdentifier(fk.ReferencedTable)
			if names[ref] {
				dependencies[ref] = append(dependencies[ref], schema.NormalizeIdentifier(t.Name))
			}
		}
	}

	sorted := util.TopologicalSort(dropped, dependencies, func(t schema.TableDefinition) string {
		return schema.NormalizeIdentifier(t.Name)
	})
	if len(sorted) == 0 {
		return dropped
	}
	return sorted
}

type splitOps struct {
	additive    []Operation
	destructive []Operation
}

func diffExistingTable(current, desired schema.TableDefinition, policy Policy) (splitOps, error) {
	var out splitOps

	currentCols := indexColumns(current)
	desiredCols := indexColumns(desired)

	for _, dc := range desired.Columns {
		if _, exists := currentCols[schema.NormalizeIdentifier(dc.Name)]; !exists {
			out.additive = append(out.additive, Operation{Kind: AddColumn, TableName: desired.Name, Column: dc})
		}
	}
	for _, cc := range current.Columns {
		if _, exists := desiredCols[schema.NormalizeIdentifier(cc.Name)]; !exists {
			out.destructive = append(out.destructive, Operation{Kind: DropColumn, TableName: current.Name, ColumnName: cc.Name})
		}
	}

	currentIdx := indexIndexes(current)
	desiredIdx := indexIndexes(desired)
	for _, di := range desired.Indexes {
		if _, exists := currentIdx[schema.NormalizeIdentifier(di.Name)]; !exists {
			out.additive = append(out.additive, Operation{Kind: CreateIndex, TableName: desired.Name, Index: di})
		}
	}
	for _, ci := range current.Indexes {
		if _, exists := desiredIdx[schema.NormalizeIdentifier(ci.Name)]; !exists {
			out.destructive = append(out.destructive, Operation{Kind: DropIndex, TableName: current.Name, IndexName: ci.Name})
		}
	}

	currentFK := indexForeignKeys(current)
	desiredFK := indexForeignKeys(desired)
	for _, dfk := range desired.ForeignKeys {
		if _, exists := currentFK[schema.NormalizeIdentifier(dfk.Name)]; !exists {
			out.additive = append(out.additive, Operation{Kind: AddForeignKey, TableName: desired.Name, ForeignKey: dfk})
		}
	}
	for _, cfk := range current.ForeignKeys {
		if _, exists := desiredFK[schema.NormalizeIdentifier(cfk.Name)]; !exists {
			out.destructive = append(out.destructive, Operation{Kind: DropForeignKey, TableName: current.Name, ForeignKeyName: cfk.Name})
		}
	}

	currentUC := indexUniqueConstraints(current)
	desiredUC := indexUniqueConstraints(desired)
	for _, duc := range desired.UniqueConstraints {
		if _, exists := currentUC[schema.NormalizeIdentifier(duc.Name)]; !exists {
			out.additive = append(out.additive, Operation{Kind: AddUniqueConstraint, TableName: desired.Name, UniqueConstraint: duc})
		}
	}
	for _, cuc := range current.UniqueConstraints {
		if _, exists := desiredUC[schema.NormalizeIdentifier(cuc.Name)]; !exists {
			out.destructive = append(out.destructive, Operation{Kind: DropUniqueConstraint, TableName: current.Name, UniqueConstraintName: cuc.Name})
		}
	}

	return out, nil
}

func indexTables(d schema.Definition) map[string]schema.TableDefinition {
	m := make(map[string]schema.TableDefinition, len(d.Tables))
	for _, t := range d.Tables {
		m[schema.NormalizeIdentifier(t.Name)] = t
	}
	return m
}

func indexColumns(t schema.TableDefinition) map[string]schema.ColumnDefinition {
	m := make(map[string]schema.ColumnDefinition, len(t.Columns))
	for _, c := range t.Columns {
		m[schema.NormalizeIdentifier(c.Name)] = c
	}
	return m
}

func indexIndexes(t schema.TableDefinition) map[string]schema.IndexDefinition {
	m := make(map[string]schema.IndexDefinition, len(t.Indexes))
	for _, i := range t.Indexes {
		m[schema.NormalizeIdentifier(i.Name)] = i
	}
	return m
}

func indexForeignKeys(t schema.TableDefinition) map[string]schema.ForeignKeyDefinition {
	m := make(map[string]schema.ForeignKeyDefinition, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		m[schema.NormalizeIdentifier(fk.Name)] = fk
	}
	return m
}

func indexUniqueConstraints(t schema.TableDefinition) map[string]schema.UniqueConstraintDefinition {
	m := make(map[string]schema.UniqueConstraintDefinition, len(t.UniqueConstraints))
	for _, uc := range t.UniqueConstraints {
		m[schema.NormalizeIdentifier(uc.Name)] = uc
	}
	return m
}
