// Package migrations embeds the SQL schema migrations of the activity store.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS
