// Package migrations embeds the schema of the CLI's offline cache.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
