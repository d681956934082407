// Package mapping is the Mapping & Transform Engine: it
// applies a user-supplied mapping configuration between schemas so two
// peers can exchange data under non-identical schemas.
package mapping

import (
	"encoding/json"

	"github.com/repldef/repldef/lql"
	"github.com/repldef/repldef/synclog"
	"github.com/repldef/repldef/syncerr"
)

// Direction is the sync direction a mapping applies to.
type Direction string

const (
	Push      Direction = "push"
	Pull      Direction = "pull"
	BothDirs  Direction = "both"
)

// TransformKind tags a column mapping's transform.
type TransformKind string

const (
	TransformNone     TransformKind = "none"
	TransformConstant TransformKind = "constant"
	TransformLQL      TransformKind = "lql"
)

// TrackingStrategy is how sync_tracking detects whether a row changed.
type TrackingStrategy string

const (
	TrackingVersion TrackingStrategy = "version"
	TrackingHash    TrackingStrategy = "hash"
)

// UnmappedTableBehavior controls what happens to entries with no matching
// mapping.
type UnmappedTableBehavior string

const (
	Strict      UnmappedTableBehavior = "strict"
	Passthrough UnmappedTableBehavior = "passthrough"
)

// PKMapping renames the PK column between source and target schemas.
type PKMapping struct {
	SourceColumn string `json:"source_column"`
	TargetColumn string `json:"target_column"`
}

// ColumnMapping is one column-emission rule.
type ColumnMapping struct {
	Source    string        `json:"source,omitempty"`
	Target    string        `json:"target"`
	Transform TransformKind `json:"transform,omitempty"`
	Value     any           `json:"value,omitempty"`
	LQL       string        `json:"lql,omitempty"`
}

// SyncTracking describes how change detection is tagged on the target.
type SyncTracking struct {
	Enabled        bool             `json:"enabled"`
	TrackingColumn string           `json:"tracking_column"`
	Strategy       TrackingStrategy `json:"strategy"`
}

// Filter holds an LQL predicate gating whether a mapping applies to a row.
// Evaluation truthiness follows lql's null-safe conventions: empty string
// and false are "no match", anything else is "match".
type Filter struct {
	LQL string `json:"lql"`
}

// Target is one multi-target destination descriptor.
type Target struct {
	Table          string          `json:"table"`
	ColumnMappings []ColumnMapping `json:"column_mappings"`
}

// Mapping is one entry in MappingConfig.Mappings.
type Mapping struct {
	ID                string          `json:"id"`
	SourceTable       string          `json:"source_table"`
	TargetTable       string          `json:"target_table,omitempty"`
	Direction         Direction       `json:"direction"`
	Enabled           bool            `json:"enabled"`
	PKMapping         *PKMapping      `json:"pk_mapping,omitempty"`
	ColumnMappings    []ColumnMapping `json:"column_mappings,omitempty"`
	ExcludedColumns   []string        `json:"excluded_columns,omitempty"`
	Filter            *Filter         `json:"filter,omitempty"`
	SyncTracking      SyncTracking    `json:"sync_tracking,omitempty"`
	MultiTarget       bool            `json:"multi_target,omitempty"`
	Targets           []Target        `json:"targets,omitempty"`
}

// Config is the root mapping configuration document.
// Version "1.0" is the only defined schema version.
type Config struct {
	Version                string                 `json:"version"`
	UnmappedTableBehavior   UnmappedTableBehavior  `json:"unmapped_table_behavior"`
	Mappings               []Mapping              `json:"mappings"`
}

const SupportedVersion = "1.0"

// ParseConfig decodes and validates a mapping config document.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, syncerr.Invalid("mapping: invalid config JSON: %v", err)
	}
	if cfg.Version != SupportedVersion {
		return Config{}, syncerr.Invalid("mapping: unsupported config version %q (want %q)", cfg.Version, SupportedVersion)
	}
	return cfg, nil
}

// FindMapping returns the enabled mapping whose SourceTable matches
// entry.TableName and whose Direction applies to d.
func FindMapping(cfg Config, tableName string, d Direction) (Mapping, bool) {
	for _, m := range cfg.Mappings {
		if !m.Enabled || m.SourceTable != tableName {
			continue
		}
		if m.Direction == d || m.Direction == BothDirs {
			return m, true
		}
	}
	return Mapping{}, false
}

// Outcome is the per-entry result of Apply: either a (possibly multiplied)
// set of rewritten entries, or a reason the entry was skipped.
type Outcome struct {
	Entries      []synclog.Entry
	SkippedReason string
}

// Apply rewrites entry according to cfg for direction d. With no matching
// mapping: Passthrough returns entry unchanged, Strict skips it with a
// reason.
func Apply(cfg Config, entry synclog.Entry, d Direction) (Outcome, error) {
	m, ok := FindMapping(cfg, entry.TableName, d)
	if !ok {
		if cfg.UnmappedTableBehavior == Passthrough {
			return Outcome{Entries: []synclog.Entry{entry}}, nil
		}
		return Outcome{SkippedReason: "no enabled mapping for table " + entry.TableName}, nil
	}

	if m.Filter != nil && m.Filter.LQL != "" {
		row, err := decodePayload(entry)
		if err != nil {
			return Outcome{}, err
		}
		matched, err := evalTruthy(m.Filter.LQL, row)
		if err != nil {
			return Outcome{}, err
		}
		if !matched {
			return Outcome{SkippedReason: "filtered out by mapping " + m.ID}, nil
		}
	}

	if m.MultiTarget {
		var out []synclog.Entry
		for _, target := range m.Targets {
			e, err := applySingle(m, target.Table, target.ColumnMappings, entry)
			if err != nil {
				return Outcome{}, err
			}
			out = append(out, e)
		}
		return Outcome{Entries: out}, nil
	}

	targetTable := m.TargetTable
	if targetTable == "" {
		targetTable = m.SourceTable
	}
	e, err := applySingle(m, targetTable, m.ColumnMappings, entry)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Entries: []synclog.Entry{e}}, nil
}

func applySingle(m Mapping, targetTable string, columnMappings []ColumnMapping, entry synclog.Entry) (synclog.Entry, error) {
	out := entry
	out.TableName = targetTable

	if entry.Operation == synclog.Delete {
		// Delete carries payload=null through unchanged; only PK is
		// rewritten.
		out.Payload = nil
		if m.PKMapping != nil {
			rewritten, err := rewritePK(entry.PKValue, *m.PKMapping)
			if err != nil {
				return synclog.Entry{}, err
			}
			out.PKValue = rewritten
		}
		return out, nil
	}

	sourceRow, err := decodePayload(entry)
	if err != nil {
		return synclog.Entry{}, err
	}

	target := make(map[string]any)
	for _, cm := range columnMappings {
		switch cm.Transform {
		case "", TransformNone:
			target[cm.Target] = lookupColumn(sourceRow, cm.Source)
		case TransformConstant:
			target[cm.Target] = cm.Value
		case TransformLQL:
			v, err := lql.Eval(cm.LQL, sourceRow)
			if err != nil {
				return synclog.Entry{}, err
			}
			target[cm.Target] = v
		default:
			return synclog.Entry{}, syncerr.Invalid("mapping: unknown transform %q", cm.Transform)
		}
	}
	for _, excluded := range m.ExcludedColumns {
		delete(target, excluded)
	}

	payload, err := json.Marshal(target)
	if err != nil {
		return synclog.Entry{}, syncerr.Invalid("mapping: re-encoding target row: %v", err)
	}
	out.Payload = payload

	if m.PKMapping != nil {
		rewritten, err := rewritePK(entry.PKValue, *m.PKMapping)
		if err != nil {
			return synclog.Entry{}, err
		}
		out.PKValue = rewritten
	}

	return out, nil
}

func lookupColumn(row map[string]any, name string) any {
	for k, v := range row {
		if k == name {
			return v
		}
	}
	return nil
}

func decodePayload(e synclog.Entry) (map[string]any, error) {
	row := make(map[string]any)
	if len(e.Payload) == 0 {
		return row, nil
	}
	if err := json.Unmarshal(e.Payload, &row); err != nil {
		return nil, syncerr.Invalid("mapping: decoding payload for %s: %v", e.TableName, err)
	}
	return row, nil
}

func rewritePK(pk json.RawMessage, m PKMapping) (json.RawMessage, error) {
	var obj map[string]any
	if err := json.Unmarshal(pk, &obj); err != nil {
		return nil, syncerr.Invalid("mapping: decoding pk value: %v", err)
	}
	v, ok := obj[m.SourceColumn]
	if !ok {
		return pk, nil
	}
	out := map[string]any{m.TargetColumn: v}
	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, syncerr.Invalid("mapping: re-encoding pk value: %v", err)
	}
	return encoded, nil
}

func evalTruthy(expr string, row map[string]any) (bool, error) {
	v, err := lql.Eval(expr, row)
	if err != nil {
		return false, err
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return t != "", nil
	case nil:
		return false, nil
	default:
		return true, nil
	}
}
