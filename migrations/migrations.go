// Package migrations embeds the numbered SQL migrations (NNN_description.sql).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
