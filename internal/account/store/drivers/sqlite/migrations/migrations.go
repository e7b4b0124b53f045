// Package migrations embeds the SQL schema migrations so they ship inside the
// binary and are applied through golang-migrate's iofs source.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
