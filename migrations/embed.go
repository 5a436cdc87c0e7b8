// Package migrations embeds the goose SQL migrations that own the
// production schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
