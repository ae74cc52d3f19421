// Package migrations embeds all SQL migration files so the binary is self-contained.
// The server frequently runs in a container or as a scheduled job with an
// unpredictable working directory where ./migrations/ does not exist.
package migrations

import "embed"

// FS contains all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
