// Package migrations holds the schema for the postgres leaderboard store.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registered migration set, applied by the store on open
// and by the migrate command.
var Migrations = migrate.NewMigrations()

func init() {
	// Migration ids come from the registering file's name.
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
