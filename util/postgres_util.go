package util

import "fmt"

// BuildPostgresConstraintName generates a constraint/index name following
// PostgreSQL's NAMEDATALEN-1 (63 byte) truncation convention. schema uses it
// to assign default names to indexes, foreign keys and unique constraints
// left unnamed in a loaded schema document, applying the convention
// uniformly regardless of target engine.
func BuildPostgresConstraintName(tableName, columnName, suffix string) string {
	fullName := fmt.Sprintf("%s_%s_%s", tableName, columnName, suffix)
	if len(fullName) <= 63 {
		return fullName
	}

	overflow := len(fullName) - 63
	tableLen := len(tableName)
	columnLen := len(columnName)

	tableRemove := 0
	columnRemove := 0

	if columnLen > 28 {
		columnRemove = overflow
		if columnRemove > columnLen-28 {
			tableRemove = columnRemove - (columnLen - 28)
			columnRemove = columnLen - 28
		}
	} else {
		tableRemove = overflow
	}

	truncatedTable := tableName[:tableLen-tableRemove]
	truncatedColumn := columnName[:columnLen-columnRemove]

	return fmt.Sprintf("%s_%s_%s", truncatedTable, truncatedColumn, suffix)
}
