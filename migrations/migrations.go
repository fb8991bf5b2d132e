// Package migrations holds the SQL schema applied by db.Migrate.
//
// Files are named NNNNNN_description.up.sql and applied in lexical order.
package migrations

import "embed"

// FS contains every *.up.sql file in this directory.
//
//go:embed *.up.sql
var FS embed.FS
