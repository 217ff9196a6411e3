package migrations

import "embed"

// PostgresFS embeds the collector schema migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the snapshot mirror migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
