// Package migrations embeds the directory's SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
