// Package migrations embeds the SQL migrations so the binary can bring the
// schema up to date without shipping a migrations directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
