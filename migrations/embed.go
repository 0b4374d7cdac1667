// Package migrations embeds the ForestOS schema migrations.
//
// Import it for its side effect to register the files with the database package:
//
//	import _ "github.com/nerrad567/forestos-core/migrations"
package migrations

import (
	"embed"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
