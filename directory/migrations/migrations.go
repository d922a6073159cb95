// Package migrations embeds the SQL schema of the Postgres account directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
