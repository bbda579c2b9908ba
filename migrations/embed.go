// Package migrations embeds the versioned SQL schema for the chat database.
package migrations

import "embed"

// FS holds the embedded *.up.sql / *.down.sql pairs applied by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
