// Package migrations holds the versioned PostgreSQL schema, embedded so the
// server and the migrate CLI ship with it.
package migrations

import "embed"

// FS contains every *.up.sql / *.down.sql pair
//
//go:embed *.sql
var FS embed.FS
