package postgres

import (
	"context"
	"fmt"
	"sort"
)

// requiredColumns lists, per table, the columns the collector writes.
var requiredColumns = map[string][]string{
	"eas":               {"magic_number", "account_id", "name", "description", "created_at"},
	"trades":            {"ticket", "account_id", "magic_number", "symbol", "type", "volume", "open_price", "close_price", "open_time", "close_time", "profit", "commission", "swap", "comment"},
	"account_snapshots": {"id", "account_id", "timestamp", "balance", "equity", "margin", "free_margin", "margin_level", "open_pnl", "extra_data"},
	"open_positions":    {"ticket", "account_id", "symbol", "magic_number", "type", "volume", "open_price", "current_price", "sl", "tp", "profit", "swap", "comment", "updated_at"},
	"app_config":        {"key", "value", "updated_at"},
}

// SchemaIssue describes a table or column the collector needs but the database lacks.
type SchemaIssue struct {
	Table  string
	Column string // empty when the whole table is missing
}

func (i SchemaIssue) String() string {
	if i.Column == "" {
		return fmt.Sprintf("table %s is missing", i.Table)
	}
	return fmt.Sprintf("column %s.%s is missing", i.Table, i.Column)
}

// CheckSchema compares information_schema against the columns the collector writes.
// An empty result means the schema is usable.
func CheckSchema(ctx context.Context, pool *Pool) ([]SchemaIssue, error) {
	rows, err := pool.Query(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
	`)
	if err != nil {
		return nil, fmt.Errorf("query information_schema: %w", err)
	}
	defer rows.Close()

	present := make(map[string]map[string]bool)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		if present[table] == nil {
			present[table] = make(map[string]bool)
		}
		present[table][column] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	tables := make([]string, 0, len(requiredColumns))
	for table := range requiredColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var issues []SchemaIssue
	for _, table := range tables {
		cols, ok := present[table]
		if !ok {
			issues = append(issues, SchemaIssue{Table: table})
			continue
		}
		for _, col := range requiredColumns[table] {
			if !cols[col] {
				issues = append(issues, SchemaIssue{Table: table, Column: col})
			}
		}
	}

	return issues, nil
}
