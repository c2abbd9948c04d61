// Package migrations embeds the SQL schema for the relational storage backends.
package migrations

import "embed"

// FS holds one goose migration directory per dialect: postgres/ and sqlite/.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
