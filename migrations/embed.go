// Package migrations ships the schema inside the binary.
//
// A FarmHub site install is a single executable plus a data directory;
// there are no SQL files on disk. The device, component, telemetry,
// rule, and alert tables all come from the files embedded here.
package migrations

import (
	"embed"

	"github.com/farmhub/farmhub-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Hand the embedded files to the database package, which applies
	// them in filename order during Migrate.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files sit at the root of the embedded FS
}
