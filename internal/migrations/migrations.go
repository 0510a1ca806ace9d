// Package migrations embeds the SQL schema for every supported dialect.
// Each dialect lives in its own directory so goose sees a flat file set.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
