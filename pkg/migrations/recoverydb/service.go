// Package recoverydb holds all the migrations for the recovery database
package recoverydb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the recovery database
var Migrations = migrate.NewMigrations()
