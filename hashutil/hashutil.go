// Package hashutil is the Hash Verifier: canonical-JSON
// hashing of batches and table snapshots.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/repldef/repldef/synclog"
	"github.com/repldef/repldef/syncerr"
	"github.com/repldef/repldef/util"
)

// CanonicalJSON renders v as JSON with object keys sorted lexicographically
// and all insignificant whitespace removed. Null values are preserved.
func CanonicalJSON(v any) (string, error) {
	var generic any
	switch t := v.(type) {
	case json.RawMessage:
		if err := json.Unmarshal(t, &generic); err != nil {
			return "", syncerr.Invalid("canonicalJson: %v", err)
		}
	case []byte:
		if err := json.Unmarshal(t, &generic); err != nil {
			return "", syncerr.Invalid("canonicalJson: %v", err)
		}
	default:
		buf, err := json.Marshal(v)
		if err != nil {
			return "", syncerr.Invalid("canonicalJson: %v", err)
		}
		if err := json.Unmarshal(buf, &generic); err != nil {
			return "", syncerr.Invalid("canonicalJson: %v", err)
		}
	}

	var b strings.Builder
	writeCanonical(&b, generic)
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		b.WriteByte('{')
		first := true
		for k, v := range util.CanonicalMapIter(t) {
			if !first {
				b.WriteByte(',')
			}
			first = false
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			writeCanonical(b, v)
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	default:
		vb, _ := json.Marshal(t)
		b.Write(vb)
	}
}

// entryForHash is the subset of synclog.Entry that participates in a batch
// hash: everything the wire form carries.
type entryForHash struct {
	Version   int64           `json:"version"`
	Table     string          `json:"table"`
	PK        json.RawMessage `json:"pk"`
	Operation string          `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	Origin    string          `json:"origin"`
	Timestamp string          `json:"ts"`
}

// ComputeBatchHash is SHA-256 over the concatenation of CanonicalJSON(entry)
// for each entry in version order, rendered as lower-case hex.
func ComputeBatchHash(entries []synclog.Entry) (string, error) {
	h := sha256.New()
	for _, e := range entries {
		canon, err := CanonicalJSON(entryForHash{
			Version: e.Version, Table: e.TableName, PK: e.PKValue,
			Operation: string(e.Operation), Payload: e.Payload,
			Origin: e.Origin, Timestamp: e.Timestamp,
		})
		if err != nil {
			return "", err
		}
		h.Write([]byte(canon))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RowFetcher returns the rows of one table, already in PK order, as
// generic JSON-marshalable values.
type RowFetcher func(tableName string) ([]any, error)

// ComputeDatabaseHash folds every table's canonical-JSON rows into one
// running SHA-256, tables processed in alphabetical order.
func ComputeDatabaseHash(tableNames []string, fetch RowFetcher) (string, error) {
	sorted := append([]string(nil), tableNames...)
	sort.Strings(sorted)

	h := sha256.New()
	for _, table := range sorted {
		rows, err := fetch(table)
		if err != nil {
			return "", err
		}
		for _, row := range rows {
			canon, err := CanonicalJSON(row)
			if err != nil {
				return "", err
			}
			h.Write([]byte(canon))
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyHash compares expected and actual case-insensitively, returning a
// HashMismatch error on divergence.
func VerifyHash(expected, actual string) error {
	if strings.EqualFold(expected, actual) {
		return nil
	}
	return &syncerr.Error{Kind: syncerr.HashMismatch, Expected: expected, Actual: actual}
}
