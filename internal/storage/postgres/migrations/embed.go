// Package migrations embeds the PostgreSQL schema of the server-side
// session store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
