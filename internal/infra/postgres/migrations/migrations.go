package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the schema history applied by the migrate command.
var Migrations = migrate.NewMigrations()
