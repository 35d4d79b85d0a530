// Package migrations embeds the SQL migration files for the local store
package migrations

import (
	"embed"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql
var files embed.FS

// GetSource returns a migration source backed by the embedded SQL files
func GetSource() (source.Driver, error) {
	return iofs.New(files, "sql")
}
