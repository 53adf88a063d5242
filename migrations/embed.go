// Package migrations holds the SQL schema, one directory per database type.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
